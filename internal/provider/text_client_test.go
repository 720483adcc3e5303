package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionServer(t *testing.T, content string, totalTokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{
				"prompt_tokens":     totalTokens - 5,
				"completion_tokens": 5,
				"total_tokens":      totalTokens,
			},
		})
	}))
}

func TestGenerateText_Success(t *testing.T) {
	srv := chatCompletionServer(t, `{"escena":"playa"}`, 42)
	defer srv.Close()

	client := NewOpenAITextClient(TextClientConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
	result, err := client.GenerateText(context.Background(), "u1", "eres un planificador", "un dia de playa")
	require.NoError(t, err)
	assert.Equal(t, `{"escena":"playa"}`, result.Text)
	assert.Equal(t, 42, result.Usage.TotalTokens)
	assert.False(t, result.Usage.Estimated)
}

func TestGenerateText_EmptySystemPromptRejected(t *testing.T) {
	client := NewOpenAITextClient(TextClientConfig{
		APIKey:  "k",
		BaseURL: "http://unused",
		Model:   "test-model",
		Timeout: time.Second,
	})
	_, err := client.GenerateText(context.Background(), "u1", "   ", "hola")
	require.Error(t, err)
}

func TestTextClientMetricsAreGatherable(t *testing.T) {
	srv := chatCompletionServer(t, "respuesta", 30)
	defer srv.Close()

	client := NewOpenAITextClient(TextClientConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		Model:   "metrics-model",
		Timeout: 5 * time.Second,
	})
	_, err := client.GenerateText(context.Background(), "u1", "sistema", "entrada")
	require.NoError(t, err)

	families, err := MetricsGatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	// Метрики запросов к провайдеру должны попадать в реестр, который
	// воркер реально отдает наружу
	assert.True(t, names["storyvideo_ai_requests_total"])
	assert.True(t, names["storyvideo_ai_request_duration_seconds"])
	assert.True(t, names["storyvideo_ai_total_tokens"])
}
