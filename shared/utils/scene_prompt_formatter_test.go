package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyvideo-server/shared/models"
	"storyvideo-server/shared/utils"
)

func fullScene() models.SceneConfig {
	return models.SceneConfig{
		Escena:            "plaza central al atardecer",
		Fondo:             "fuente de piedra y faroles encendidos",
		Accion:            "la protagonista camina hacia la fuente",
		Dialogo:           "Por fin llegamos",
		VoiceStyle:        "susurro emocionado",
		Camera:            "slow dolly-in",
		Lighting:          "golden hour",
		SuggestedDuration: 6,
	}
}

func TestFormatVideoPrompt_FieldOrder(t *testing.T) {
	prompt := utils.FormatVideoPrompt(fullScene(), "mujer joven con abrigo rojo", "cinematic, 35mm film", 6)

	labels := []string{
		"Character:",
		"Scene:",
		"Background:",
		"Action:",
		"Dialogue:",
		"Voice style:",
		"Camera:",
		"Style:",
		"Duration: 6 seconds",
	}
	last := -1
	for _, label := range labels {
		idx := strings.Index(prompt, label)
		require.GreaterOrEqual(t, idx, 0, "label %q must be present", label)
		assert.Greater(t, idx, last, "label %q out of order", label)
		last = idx
	}
	assert.True(t, strings.HasSuffix(prompt, "across the whole output."),
		"consistency instruction must be the last line")
}

func TestFormatVideoPrompt_OmitsEmptyOptionals(t *testing.T) {
	scene := models.SceneConfig{
		Escena: "bosque nevado",
		Accion: "el zorro corre entre los arboles",
	}
	prompt := utils.FormatVideoPrompt(scene, "", "", 4)

	assert.NotContains(t, prompt, "Character:")
	assert.NotContains(t, prompt, "Background:")
	assert.NotContains(t, prompt, "Dialogue:")
	assert.NotContains(t, prompt, "Voice style:")
	assert.NotContains(t, prompt, "Camera:")
	assert.NotContains(t, prompt, "Style:")
	assert.Contains(t, prompt, "Scene: bosque nevado")
	assert.Contains(t, prompt, "Duration: 4 seconds")
}

func TestFormatVideoPrompt_Deterministic(t *testing.T) {
	a := utils.FormatVideoPrompt(fullScene(), "heroe", "anime", 8)
	b := utils.FormatVideoPrompt(fullScene(), "heroe", "anime", 8)
	assert.Equal(t, a, b)
}

func TestFormatImagePrompt_NoVideoOnlyFields(t *testing.T) {
	prompt := utils.FormatImagePrompt(fullScene(), "mujer joven", "watercolor")

	assert.NotContains(t, prompt, "Dialogue:")
	assert.NotContains(t, prompt, "Voice style:")
	assert.NotContains(t, prompt, "Duration:")
	assert.Contains(t, prompt, "Lighting: golden hour")
	assert.True(t, strings.HasSuffix(prompt, "across the whole output."))
}

func TestFormatImagePrompt_FieldOrder(t *testing.T) {
	prompt := utils.FormatImagePrompt(fullScene(), "mujer joven", "watercolor")

	labels := []string{"Character:", "Scene:", "Background:", "Action:", "Lighting:", "Camera:", "Style:"}
	last := -1
	for _, label := range labels {
		idx := strings.Index(prompt, label)
		require.GreaterOrEqual(t, idx, 0, "label %q must be present", label)
		assert.Greater(t, idx, last, "label %q out of order", label)
		last = idx
	}
}
