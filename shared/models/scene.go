package models

import "errors"

// AllowedDurations — фиксированный набор допустимых длительностей сцены в секундах.
// Порядок важен: при совпадении расстояний выбирается меньшее значение.
var AllowedDurations = []int{2, 4, 6, 8}

// StorySegmentDuration — длительность сегмента истории. Цепочка всегда
// работает с максимальной единицей, чтобы продление шло одинаковыми шагами.
const StorySegmentDuration = 8

// SceneConfig описывает один запланированный кадр.
// Имена JSON-ключей являются частью контракта с AI-провайдером и не меняются.
type SceneConfig struct {
	Escena            string `json:"escena"`                      // описание сцены
	Fondo             string `json:"fondo,omitempty"`             // фоновый текст (опционально)
	Accion            string `json:"accion"`                      // действие
	Dialogo           string `json:"dialogo,omitempty"`           // реплика (только для видео)
	VoiceStyle        string `json:"voiceStyle,omitempty"`        // стиль голоса (опционально)
	Camera            string `json:"camera,omitempty"`            // камера/движение (опционально)
	Lighting          string `json:"lighting,omitempty"`          // освещение (вариант для изображений)
	SuggestedDuration int    `json:"suggestedDuration,omitempty"` // секунды, из AllowedDurations
}

// Validate проверяет обязательные поля сцены.
// Для видео-сцены дополнительно требуется непустой диалог.
func (s *SceneConfig) Validate(forVideo bool) error {
	if s.Escena == "" {
		return errors.New("scene config: escena is empty")
	}
	if s.Accion == "" {
		return errors.New("scene config: accion is empty")
	}
	if forVideo && s.Dialogo == "" {
		return errors.New("scene config: dialogo is empty for video scene")
	}
	return nil
}

// NormalizeDuration приводит длительность к ближайшему допустимому значению.
// При равном расстоянии выигрывает меньшее (порядок обхода AllowedDurations).
func NormalizeDuration(d int) int {
	best := AllowedDurations[0]
	bestDiff := abs(d - best)
	for _, allowed := range AllowedDurations[1:] {
		if diff := abs(d - allowed); diff < bestDiff {
			best = allowed
			bestDiff = diff
		}
	}
	return best
}

// NormalizeDuration корректирует поле SuggestedDuration на месте.
func (s *SceneConfig) NormalizeDuration() {
	s.SuggestedDuration = NormalizeDuration(s.SuggestedDuration)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
