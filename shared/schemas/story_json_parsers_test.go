package schemas_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyvideo-server/shared/models"
	"storyvideo-server/shared/schemas"
)

func TestParseStoryResponse_Direct(t *testing.T) {
	spy := &spyTracer{}
	raw := `{
		"storyTitle": "El faro",
		"storyDescription": "Una noche de tormenta",
		"segments": [
			{"segmentNumber": 1, "title": "Llegada", "escena": "faro en la costa", "accion": "la guardiana sube", "dialogo": "Otra noche mas"},
			{"segmentNumber": 2, "title": "Tormenta", "escena": "cima del faro", "accion": "enciende la luz", "dialogo": "Aguanta"}
		]
	}`
	plan, err := schemas.ParseStoryResponse(raw, spy)
	require.NoError(t, err)
	assert.Equal(t, schemas.StrategyDirect, spy.succeeded)
	assert.Equal(t, "El faro", plan.StoryTitle)
	require.Len(t, plan.Segments, 2)
	assert.Equal(t, "Llegada", plan.Segments[0].Title)
}

func TestParseStoryResponse_BareArrayGetsPlaceholderTitle(t *testing.T) {
	spy := &spyTracer{}
	raw := `[
		{"escena": "anden vacio", "accion": "espera el tren", "dialogo": "Llega tarde"},
		{"escena": "vagon", "accion": "se sienta", "dialogo": "Por fin"}
	]`
	plan, err := schemas.ParseStoryResponse(raw, spy)
	require.NoError(t, err)
	assert.Equal(t, schemas.StrategyArrayWrap, spy.succeeded)
	assert.Equal(t, schemas.PlaceholderStoryTitle, plan.StoryTitle)
	assert.Len(t, plan.Segments, 2)
}

func TestParseStoryResponse_FencedArray(t *testing.T) {
	raw := "```json\n[{\"escena\": \"patio\", \"accion\": \"juega\", \"dialogo\": \"Mira\"}]\n```"
	plan, err := schemas.ParseStoryResponse(raw, nil)
	require.NoError(t, err)
	require.Len(t, plan.Segments, 1)
	assert.Equal(t, "patio", plan.Segments[0].Escena)
}

func TestParseStoryResponse_AssemblesFromTruncatedObject(t *testing.T) {
	// Обрыв ответа: внешний объект не закрыт, но сегменты внутри целые.
	spy := &spyTracer{}
	raw := `{"storyTitle": "Viaje", "segments": [
		{"escena": "carretera", "accion": "conduce", "title": "Salida"},
		{"escena": "gasolinera", "accion": "reposta", "title": "Parada"}`
	plan, err := schemas.ParseStoryResponse(raw, spy)
	require.NoError(t, err)
	assert.Equal(t, schemas.StrategyFieldExtract, spy.succeeded)
	assert.Equal(t, "Viaje", plan.StoryTitle)
	require.Len(t, plan.Segments, 2)
	assert.Equal(t, "gasolinera", plan.Segments[1].Escena)
}

func TestParseStoryResponse_Unrecoverable(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":          "",
		"prose":          "lo siento, no puedo planear esa historia",
		"empty_segments": `{"storyTitle":"X","segments":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := schemas.ParseStoryResponse(raw, nil)
			require.Error(t, err)
			var parseErr *models.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "story", parseErr.Context)
		})
	}
}
