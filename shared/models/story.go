package models

import "errors"

// StorySegment — сцена в составе истории плюс порядковый номер и короткий заголовок.
type StorySegment struct {
	SceneConfig
	SegmentNumber int    `json:"segmentNumber"` // 1-based, без пропусков
	Title         string `json:"title"`
}

// StoryPlan — упорядоченный план истории, полученный от AI.
type StoryPlan struct {
	StoryTitle       string         `json:"storyTitle"`
	StoryDescription string         `json:"storyDescription"`
	Segments         []StorySegment `json:"segments"`
}

// Validate проверяет, что план содержит хотя бы один сегмент и
// каждый сегмент проходит проверку видео-сцены.
func (p *StoryPlan) Validate() error {
	if len(p.Segments) == 0 {
		return errors.New("story plan: segments are empty")
	}
	for i := range p.Segments {
		if err := p.Segments[i].Validate(true); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeForChain приводит план к инвариантам цепочки:
// номера сегментов становятся плотными 1-based (позиция в массиве),
// длительность каждого сегмента фиксируется на StorySegmentDuration.
func (p *StoryPlan) NormalizeForChain() {
	for i := range p.Segments {
		p.Segments[i].SegmentNumber = i + 1
		p.Segments[i].SuggestedDuration = StorySegmentDuration
	}
}
