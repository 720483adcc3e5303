package schemas

import (
	"encoding/json"
	"errors"
	"strings"

	"storyvideo-server/shared/models"
)

// PlaceholderStoryTitle is assigned when the provider returns segments
// without a story title (bare array responses mostly).
const PlaceholderStoryTitle = "Historia sin título"

// ParseStoryResponse turns raw planner output into a StoryPlan using the
// same cascade as scene parsing, plus two story-specific recoveries:
// wrapping a bare top-level array, and assembling a plan from whatever
// scene-shaped objects the text contains.
func ParseStoryResponse(raw string, tracer ParseTracer) (*models.StoryPlan, error) {
	if tracer == nil {
		tracer = NopTracer{}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &models.ParseError{Context: "story", Reason: "empty response"}
	}

	type attempt struct {
		name string
		text string
	}
	attempts := []attempt{{StrategyDirect, trimmed}}
	if fenced := stripCodeFences(trimmed); fenced != trimmed {
		attempts = append(attempts, attempt{StrategyCodeFence, fenced})
	}
	for _, a := range attempts {
		plan, err := decodeStory(a.text)
		if err == nil {
			tracer.Success(a.name)
			return plan, nil
		}
		tracer.Attempt(a.name, err)
	}

	var lastErr error
	for _, candidate := range scanBalancedObjects(trimmed) {
		plan, err := decodeStory(candidate)
		if err == nil {
			tracer.Success(StrategyBalancedScan)
			return plan, nil
		}
		lastErr = err
	}
	tracer.Attempt(StrategyBalancedScan, lastErr)

	attempts = attempts[:0]
	if sliced, ok := outerSlice(trimmed, '{', '}'); ok && sliced != trimmed {
		attempts = append(attempts, attempt{StrategyOuterBraces, sliced})
	}
	if sliced, ok := outerSlice(collapseWhitespace(stripControlChars(trimmed)), '{', '}'); ok {
		attempts = append(attempts, attempt{StrategyControlChars, removeTrailingCommas(sliced)})
	}
	// Провайдер иногда возвращает голый массив сегментов вместо объекта.
	if arr, ok := outerSlice(stripCodeFences(trimmed), '[', ']'); ok {
		attempts = append(attempts, attempt{StrategyArrayWrap, wrapSegmentsArray(arr)})
	}
	for _, a := range attempts {
		plan, err := decodeStory(a.text)
		if err == nil {
			tracer.Success(a.name)
			return plan, nil
		}
		tracer.Attempt(a.name, err)
	}

	if plan, err := assembleStoryFromObjects(trimmed); err == nil {
		tracer.Success(StrategyFieldExtract)
		return plan, nil
	} else {
		tracer.Attempt(StrategyFieldExtract, err)
	}

	return nil, &models.ParseError{Context: "story", Reason: "all recovery strategies exhausted"}
}

func wrapSegmentsArray(arr string) string {
	return `{"storyTitle":"` + PlaceholderStoryTitle + `","segments":` + arr + `}`
}

func decodeStory(text string) (*models.StoryPlan, error) {
	var plan models.StoryPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, err
	}
	if len(plan.Segments) == 0 {
		return nil, errors.New("story plan: segments are empty")
	}
	for i := range plan.Segments {
		if err := plan.Segments[i].Validate(false); err != nil {
			return nil, err
		}
	}
	if plan.StoryTitle == "" {
		plan.StoryTitle = PlaceholderStoryTitle
	}
	return &plan, nil
}

// assembleStoryFromObjects is the story-side last resort: every balanced
// object in the text is decoded as a segment, and the scene-shaped ones are
// collected in order of appearance. The story title, if any, is pulled by regex.
func assembleStoryFromObjects(text string) (*models.StoryPlan, error) {
	var segments []models.StorySegment
	for _, candidate := range scanBalancedObjects(text) {
		var seg models.StorySegment
		if err := json.Unmarshal([]byte(candidate), &seg); err != nil {
			continue
		}
		if err := seg.Validate(false); err != nil {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return nil, errors.New("manual extraction: no scene-shaped objects found")
	}
	plan := &models.StoryPlan{StoryTitle: PlaceholderStoryTitle, Segments: segments}
	if m := fieldStringRe("storyTitle").FindStringSubmatch(text); m != nil {
		if title := decodeJSONString(m[1]); title != "" {
			plan.StoryTitle = title
		}
	}
	if m := fieldStringRe("storyDescription").FindStringSubmatch(text); m != nil {
		plan.StoryDescription = decodeJSONString(m[1])
	}
	return plan, nil
}
