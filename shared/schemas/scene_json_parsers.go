package schemas

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"storyvideo-server/shared/models"
)

// Strategy names, in cascade order. Later strategies are more aggressive
// and only run when everything before them failed.
const (
	StrategyDirect        = "direct"
	StrategyCodeFence     = "code_fence"
	StrategyBalancedScan  = "balanced_scan"
	StrategyOuterBraces   = "outer_braces"
	StrategyControlChars  = "control_chars"
	StrategyTrailingComma = "trailing_commas"
	StrategyArrayWrap     = "array_wrap"
	StrategyFieldExtract  = "field_extract"
)

// ParseSceneResponse turns raw planner output into a SceneConfig, trying
// recovery strategies in order until one yields a scene that passes basic
// validation. The cascade order is fixed: cheaper and less destructive
// strategies always win over aggressive ones.
func ParseSceneResponse(raw string, tracer ParseTracer) (*models.SceneConfig, error) {
	if tracer == nil {
		tracer = NopTracer{}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &models.ParseError{Context: "scene", Reason: "empty response"}
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
		scene, err := decodeScene(a.text)
		if err == nil {
			tracer.Success(a.name)
			return scene, nil
		}
		tracer.Attempt(a.name, err)
	}

	// Balanced candidates: the reply may hold several objects (commentary with
	// an example, then the real scene). The first decodable one wins.
	var lastErr error
	for _, candidate := range scanBalancedObjects(trimmed) {
		scene, err := decodeScene(candidate)
		if err == nil {
			tracer.Success(StrategyBalancedScan)
			return scene, nil
		}
		lastErr = err
	}
	tracer.Attempt(StrategyBalancedScan, lastErr)

	// Скан слепнет на непарных кавычках в прозе вокруг объекта, грубый срез
	// от первой { до последней } этим не страдает.
	if sliced, ok := outerSlice(trimmed, '{', '}'); ok && sliced != trimmed {
		scene, err := decodeScene(sliced)
		if err == nil {
			tracer.Success(StrategyOuterBraces)
			return scene, nil
		}
		tracer.Attempt(StrategyOuterBraces, err)
	}

	cleaned := collapseWhitespace(stripControlChars(trimmed))
	if sliced, ok := outerSlice(cleaned, '{', '}'); ok {
		scene, err := decodeScene(sliced)
		if err == nil {
			tracer.Success(StrategyControlChars)
			return scene, nil
		}
		tracer.Attempt(StrategyControlChars, err)
	}

	if sliced, ok := outerSlice(removeTrailingCommas(cleaned), '{', '}'); ok {
		scene, err := decodeScene(sliced)
		if err == nil {
			tracer.Success(StrategyTrailingComma)
			return scene, nil
		}
		tracer.Attempt(StrategyTrailingComma, err)
	}

	if scene, err := extractSceneFields(trimmed); err == nil {
		tracer.Success(StrategyFieldExtract)
		return scene, nil
	} else {
		tracer.Attempt(StrategyFieldExtract, err)
	}

	return nil, &models.ParseError{Context: "scene", Reason: "all recovery strategies exhausted"}
}

func decodeScene(text string) (*models.SceneConfig, error) {
	var scene models.SceneConfig
	if err := json.Unmarshal([]byte(text), &scene); err != nil {
		return nil, err
	}
	// Планировщик сцен отвечает по видео-контракту: диалог обязателен.
	if err := scene.Validate(true); err != nil {
		return nil, err
	}
	if scene.SuggestedDuration > 0 {
		scene.NormalizeDuration()
	}
	return &scene, nil
}

// extractSceneFields is the last-resort manual extraction: it pulls known
// fields out with regular expressions and accepts the result only when the
// required ones are present.
func extractSceneFields(text string) (*models.SceneConfig, error) {
	get := func(key string) string {
		if m := fieldStringRe(key).FindStringSubmatch(text); m != nil {
			return decodeJSONString(m[1])
		}
		return ""
	}
	scene := models.SceneConfig{
		Escena:     get("escena"),
		Fondo:      get("fondo"),
		Accion:     get("accion"),
		Dialogo:    get("dialogo"),
		VoiceStyle: get("voiceStyle"),
		Camera:     get("camera"),
		Lighting:   get("lighting"),
	}
	if m := fieldIntRe("suggestedDuration").FindStringSubmatch(text); m != nil {
		d, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("field extraction: bad suggestedDuration %q: %w", m[1], err)
		}
		scene.SuggestedDuration = models.NormalizeDuration(d)
	}
	if err := scene.Validate(true); err != nil {
		return nil, fmt.Errorf("field extraction: %w", err)
	}
	return &scene, nil
}
