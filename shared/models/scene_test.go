package models_test

import (
	"testing"

	"storyvideo-server/shared/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"exact member 2", 2, 2},
		{"exact member 8", 8, 8},
		{"below range snaps up", 0, 2},
		{"negative snaps to smallest", -5, 2},
		{"above range snaps down", 15, 8},
		{"tie between 2 and 4 resolves low", 3, 2},
		{"tie between 4 and 6 resolves low", 5, 4},
		{"tie between 6 and 8 resolves low", 7, 6},
		{"nearest is 8", 9, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, models.NormalizeDuration(tc.input))
		})
	}
}

func TestSceneConfigValidate(t *testing.T) {
	scene := models.SceneConfig{
		Escena:            "Una playa al atardecer",
		Accion:            "El protagonista camina hacia el mar",
		SuggestedDuration: 4,
	}

	// Для изображения диалог не обязателен
	assert.NoError(t, scene.Validate(false))

	// Для видео требуется диалог
	err := scene.Validate(true)
	assert.Error(t, err)

	scene.Dialogo = "No puedo creer que estemos aquí"
	assert.NoError(t, scene.Validate(true))

	scene.Escena = ""
	assert.Error(t, scene.Validate(true))
}

func TestStoryPlanNormalizeForChain(t *testing.T) {
	plan := models.StoryPlan{
		StoryTitle: "Viaje",
		Segments: []models.StorySegment{
			{SceneConfig: models.SceneConfig{Escena: "a", Accion: "b", Dialogo: "c", SuggestedDuration: 4}, SegmentNumber: 7, Title: "uno"},
			{SceneConfig: models.SceneConfig{Escena: "d", Accion: "e", Dialogo: "f", SuggestedDuration: 2}, SegmentNumber: 1, Title: "dos"},
		},
	}

	plan.NormalizeForChain()

	for i, seg := range plan.Segments {
		assert.Equal(t, i+1, seg.SegmentNumber, "segment numbers must be dense and match position")
		assert.Equal(t, models.StorySegmentDuration, seg.SuggestedDuration)
	}
	assert.NoError(t, plan.Validate())

	empty := models.StoryPlan{}
	assert.Error(t, empty.Validate())
}
