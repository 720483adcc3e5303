package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyvideo-server/shared/models"
)

func testMediaConfig(baseURL string) MediaClientConfig {
	return MediaClientConfig{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		ImageModel:   "img-model",
		VideoModel:   "vid-model",
		ImageTimeout: 5 * time.Second,
		VideoTimeout: 5 * time.Second,
		PollInterval: time.Millisecond,
		MaxPolls:     60,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

func TestGenerateImage_Success(t *testing.T) {
	payload := []byte("png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/img-model:generateImage", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req imageGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a red fox", req.Prompt)

		json.NewEncoder(w).Encode(imageGenerateResponse{
			Data:     base64.StdEncoding.EncodeToString(payload),
			MimeType: "image/png",
			Width:    1024,
			Height:   576,
		})
	}))
	defer srv.Close()

	client := NewHTTPMediaClient(testMediaConfig(srv.URL))
	result, err := client.GenerateImage(context.Background(), ImageRequest{
		UserID:      "u1",
		Prompt:      "a red fox",
		AspectRatio: "16:9",
	})
	require.NoError(t, err)
	assert.Equal(t, payload, result.Data)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, 1024, result.Width)
}

func TestGenerateImage_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "API key not valid", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPMediaClient(testMediaConfig(srv.URL))
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrAuthInvalid, provErr.Kind)
	assert.False(t, provErr.Retryable())
}

func TestGenerateVideo_PollsUntilDone(t *testing.T) {
	videoBytes := []byte("mp4-bytes")
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/models/vid-model:generateVideo", func(w http.ResponseWriter, r *http.Request) {
		var req videoGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 8, req.DurationSeconds)
		json.NewEncoder(w).Encode(videoGenerateResponse{OperationName: "operations/op-1"})
	})
	mux.HandleFunc("/operations/op-1", func(w http.ResponseWriter, _ *http.Request) {
		n := polls.Add(1)
		if n < 3 {
			json.NewEncoder(w).Encode(map[string]any{"done": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"done": true,
			"response": map[string]any{
				"video": map[string]any{
					"data":            base64.StdEncoding.EncodeToString(videoBytes),
					"mimeType":        "video/mp4",
					"durationSeconds": 8.2,
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPMediaClient(testMediaConfig(srv.URL))
	result, err := client.GenerateVideo(context.Background(), VideoRequest{
		UserID:          "u1",
		Prompt:          "fox runs",
		DurationSeconds: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, videoBytes, result.Data)
	assert.Equal(t, "video/mp4", result.MimeType)
	assert.InDelta(t, 8.2, result.DurationSeconds, 1e-9)
	assert.Equal(t, int32(3), polls.Load())
}

func TestGenerateVideo_PollWindowOutlivesRequestTimeout(t *testing.T) {
	videoBytes := []byte("slow-mp4")
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/models/vid-model:generateVideo", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(videoGenerateResponse{OperationName: "operations/op-slow"})
	})
	mux.HandleFunc("/operations/op-slow", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) < 4 {
			json.NewEncoder(w).Encode(map[string]any{"done": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"done": true,
			"response": map[string]any{
				"video": map[string]any{
					"data":            base64.StdEncoding.EncodeToString(videoBytes),
					"mimeType":        "video/mp4",
					"durationSeconds": 8.0,
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Таймаут стартового запроса короче суммарного времени опроса:
	// завершение на четвёртом опросе всё равно должно вернуть видео.
	cfg := testMediaConfig(srv.URL)
	cfg.VideoTimeout = 100 * time.Millisecond
	cfg.PollInterval = 60 * time.Millisecond
	cfg.MaxPolls = 60

	client := NewHTTPMediaClient(cfg)
	result, err := client.GenerateVideo(context.Background(), VideoRequest{
		UserID:          "u1",
		Prompt:          "fox walks slowly",
		DurationSeconds: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, videoBytes, result.Data)
	assert.Equal(t, int32(4), polls.Load())
}

func TestGenerateVideo_FetchesBytesByURI(t *testing.T) {
	videoBytes := []byte("remote-mp4")
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/models/vid-model:generateVideo", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(videoGenerateResponse{OperationName: "operations/op-2"})
	})
	mux.HandleFunc("/operations/op-2", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done": true,
			"response": map[string]any{
				"video": map[string]any{
					"uri":             srv.URL + "/files/clip.mp4",
					"mimeType":        "video/mp4",
					"durationSeconds": 6.0,
				},
			},
		})
	})
	mux.HandleFunc("/files/clip.mp4", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(videoBytes)
	})

	client := NewHTTPMediaClient(testMediaConfig(srv.URL))
	result, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x", DurationSeconds: 6})
	require.NoError(t, err)
	assert.Equal(t, videoBytes, result.Data)
}

func TestGenerateVideo_TimesOutAfterMaxPolls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models/vid-model:generateVideo", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(videoGenerateResponse{OperationName: "operations/op-3"})
	})
	var polls atomic.Int32
	mux.HandleFunc("/operations/op-3", func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"done": false})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testMediaConfig(srv.URL)
	cfg.MaxPolls = 4
	client := NewHTTPMediaClient(cfg)
	_, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x", DurationSeconds: 8})
	require.Error(t, err)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrTimeout, provErr.Kind)
	assert.Equal(t, int32(4), polls.Load())
}

func TestGenerateVideo_OperationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models/vid-model:generateVideo", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(videoGenerateResponse{OperationName: "operations/op-4"})
	})
	mux.HandleFunc("/operations/op-4", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done":  true,
			"error": map[string]any{"code": 400, "message": "prompt blocked by safety policy"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPMediaClient(testMediaConfig(srv.URL))
	_, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "x", DurationSeconds: 8})
	require.Error(t, err)

	var provErr *models.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, models.ProviderErrSafetyFiltered, provErr.Kind)
	assert.False(t, provErr.Retryable())
}
