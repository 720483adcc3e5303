package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storyvideo-server/shared/models"
)

// MediaClientConfig — настройки клиента изображений и видео.
type MediaClientConfig struct {
	APIKey       string
	BaseURL      string
	ImageModel   string
	VideoModel   string
	ImageTimeout time.Duration
	VideoTimeout time.Duration
	PollInterval time.Duration
	MaxPolls     int
	// HTTPClient подменяется в тестах. nil означает клиент с ImageTimeout.
	HTTPClient *http.Client
}

// httpMediaClient реализует MediaGenerator поверх REST API медиа-провайдера.
// Изображения возвращаются синхронно в теле ответа, видео генерируется через
// long-running operation с опросом статуса.
type httpMediaClient struct {
	cfg        MediaClientConfig
	httpClient *http.Client
}

// NewHTTPMediaClient создает клиент медиа-провайдера.
func NewHTTPMediaClient(cfg MediaClientConfig) MediaGenerator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ImageTimeout}
	}
	log.Info().
		Str("base_url", cfg.BaseURL).
		Str("image_model", cfg.ImageModel).
		Str("video_model", cfg.VideoModel).
		Dur("poll_interval", cfg.PollInterval).
		Int("max_polls", cfg.MaxPolls).
		Msg("media client created")
	return &httpMediaClient{cfg: cfg, httpClient: httpClient}
}

// Проводные структуры API.

type inlineMediaWire struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType"`
}

type imageGenerateRequest struct {
	Prompt      string           `json:"prompt"`
	AspectRatio string           `json:"aspectRatio,omitempty"`
	SeedImage   *inlineMediaWire `json:"seedImage,omitempty"`
}

type imageGenerateResponse struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type videoGenerateRequest struct {
	Prompt          string           `json:"prompt"`
	AspectRatio     string           `json:"aspectRatio,omitempty"`
	DurationSeconds int              `json:"durationSeconds"`
	GenerateAudio   bool             `json:"generateAudio,omitempty"`
	SeedMedia       *inlineMediaWire `json:"seedMedia,omitempty"`
}

type videoGenerateResponse struct {
	OperationName string `json:"operationName"`
}

type operationStatusResponse struct {
	Done  bool `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		Video struct {
			Data            string  `json:"data,omitempty"` // base64, либо URI
			URI             string  `json:"uri,omitempty"`
			MimeType        string  `json:"mimeType"`
			DurationSeconds float64 `json:"durationSeconds"`
		} `json:"video"`
	} `json:"response,omitempty"`
}

func toWire(m *InlineMedia) *inlineMediaWire {
	if m == nil {
		return nil
	}
	return &inlineMediaWire{
		Data:     base64.StdEncoding.EncodeToString(m.Data),
		MimeType: m.MimeType,
	}
}

func (c *httpMediaClient) GenerateImage(ctx context.Context, req ImageRequest) (*MediaResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ImageTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateImage", c.cfg.BaseURL, c.cfg.ImageModel)
	var resp imageGenerateResponse
	err := c.postJSON(ctx, url, imageGenerateRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		SeedImage:   toWire(req.SeedImage),
	}, &resp)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown,
			Message: fmt.Sprintf("image payload is not valid base64: %v", err)}
	}
	if len(data) == 0 {
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "image payload is empty"}
	}
	return &MediaResult{
		Data:     data,
		MimeType: resp.MimeType,
		Width:    resp.Width,
		Height:   resp.Height,
	}, nil
}

func (c *httpMediaClient) GenerateVideo(ctx context.Context, req VideoRequest) (*MediaResult, error) {
	// VideoTimeout ограничивает только стартовый запрос. Фазу опроса
	// ограничивает MaxPolls * PollInterval, иначе она обрезалась бы раньше
	// разрешённого окна ожидания.
	startCtx, cancel := context.WithTimeout(ctx, c.cfg.VideoTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateVideo", c.cfg.BaseURL, c.cfg.VideoModel)
	var started videoGenerateResponse
	err := c.postJSON(startCtx, url, videoGenerateRequest{
		Prompt:          req.Prompt,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: req.DurationSeconds,
		GenerateAudio:   req.GenerateAudio,
		SeedMedia:       toWire(req.SeedMedia),
	}, &started)
	if err != nil {
		return nil, err
	}
	if started.OperationName == "" {
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "provider did not return an operation name"}
	}

	return c.pollVideoOperation(ctx, req.UserID, started.OperationName)
}

// pollVideoOperation опрашивает long-running operation до завершения.
// После MaxPolls безрезультатных опросов возвращается ошибка тайм-аута:
// деньги за неподтверждённый результат не списываются.
func (c *httpMediaClient) pollVideoOperation(ctx context.Context, userID, operationName string) (*MediaResult, error) {
	url := fmt.Sprintf("%s/%s", c.cfg.BaseURL, operationName)

	for poll := 1; poll <= c.cfg.MaxPolls; poll++ {
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return nil, classify(err)
		}

		var status operationStatusResponse
		if err := c.getJSON(ctx, url, &status); err != nil {
			return nil, err
		}
		if !status.Done {
			log.Debug().
				Str("user_id", userID).
				Str("operation", operationName).
				Int("poll", poll).
				Msg("video operation still running")
			continue
		}
		if status.Error != nil {
			return nil, &models.ProviderError{
				Kind:    classifyStatus(status.Error.Code, status.Error.Message),
				Message: status.Error.Message,
			}
		}
		if status.Response == nil {
			return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "operation finished without a video payload"}
		}
		return c.resolveVideoPayload(ctx, status)
	}

	return nil, &models.ProviderError{
		Kind:    models.ProviderErrTimeout,
		Message: fmt.Sprintf("video operation %s did not complete after %d polls", operationName, c.cfg.MaxPolls),
	}
}

// resolveVideoPayload достает байты видео: либо inline base64, либо по URI.
func (c *httpMediaClient) resolveVideoPayload(ctx context.Context, status operationStatusResponse) (*MediaResult, error) {
	video := status.Response.Video
	result := &MediaResult{
		MimeType:        video.MimeType,
		DurationSeconds: video.DurationSeconds,
	}

	switch {
	case video.Data != "":
		data, err := base64.StdEncoding.DecodeString(video.Data)
		if err != nil {
			return nil, &models.ProviderError{Kind: models.ProviderErrUnknown,
				Message: fmt.Sprintf("video payload is not valid base64: %v", err)}
		}
		result.Data = data
	case video.URI != "":
		data, err := c.fetchBytes(ctx, video.URI)
		if err != nil {
			return nil, err
		}
		result.Data = data
	default:
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "video payload has neither data nor uri"}
	}

	if len(result.Data) == 0 {
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "video payload is empty"}
	}
	return result, nil
}

func (c *httpMediaClient) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &models.ProviderError{Kind: models.ProviderErrUnknown, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &models.ProviderError{Kind: models.ProviderErrUnknown, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *httpMediaClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &models.ProviderError{Kind: models.ProviderErrUnknown, Message: err.Error()}
	}
	return c.doJSON(req, out)
}

func (c *httpMediaClient) doJSON(req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.ProviderError{
			Kind:    classifyStatus(resp.StatusCode, string(body)),
			Message: fmt.Sprintf("provider returned %d: %s", resp.StatusCode, truncate(string(body), 512)),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.ProviderError{Kind: models.ProviderErrUnknown,
			Message: fmt.Sprintf("decoding provider response: %v", err)}
	}
	return nil
}

func (c *httpMediaClient) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: err.Error()}
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.ProviderError{
			Kind:    classifyStatus(resp.StatusCode, ""),
			Message: fmt.Sprintf("fetching video bytes returned %d", resp.StatusCode),
		}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 512<<20))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
