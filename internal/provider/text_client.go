package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"

	"storyvideo-server/shared/models"
)

// Метрики пакета живут в собственном реестре: воркер собирает его вместе
// со своим при отдаче /metrics и пуше в Pushgateway.
var metricsRegistry = prometheus.NewRegistry()

// MetricsGatherer отдает реестр метрик провайдеров.
func MetricsGatherer() prometheus.Gatherer {
	return metricsRegistry
}

var (
	aiRequestsTotal = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyvideo_ai_requests_total",
			Help: "Total number of requests to the text planning API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.With(metricsRegistry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyvideo_ai_request_duration_seconds",
			Help:    "Histogram of text planning request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiTotalTokens = promauto.With(metricsRegistry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyvideo_ai_total_tokens",
			Help:    "Histogram of total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(350, 350, 20),
		},
		[]string{"model"},
	)
)

// TextClientConfig — настройки текстового планировщика.
type TextClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// openAITextClient реализует TextGenerator поверх OpenAI-совместимого API.
type openAITextClient struct {
	client *openaigo.Client
	model  string
}

// NewOpenAITextClient создает клиент текстового планировщика.
func NewOpenAITextClient(cfg TextClientConfig) TextGenerator {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	client := openaigo.NewClientWithConfig(openaiConfig)

	log.Info().
		Str("base_url", cfg.BaseURL).
		Str("model", cfg.Model).
		Dur("timeout", cfg.Timeout).
		Msg("text planning client created")

	return &openAITextClient{client: client, model: cfg.Model}
}

func (c *openAITextClient) GenerateText(ctx context.Context, userID, systemPrompt, userInput string) (*TextResult, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "системный промт пуст"}
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	duration := time.Since(startTime)

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error"}).Inc()
		log.Warn().Str("user_id", userID).Dur("duration", duration).Err(err).Msg("text planning request failed")
		return nil, classify(fmt.Errorf("text planning: %w", err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response"}).Inc()
		return nil, &models.ProviderError{Kind: models.ProviderErrUnknown, Message: "получен пустой ответ"}
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	result := &TextResult{Text: text}

	if resp.Usage.TotalTokens > 0 {
		result.Usage = UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	} else {
		// Некоторые совместимые провайдеры не возвращают usage.
		// Считаем токены локально, помечая оценку как приблизительную.
		result.Usage = c.estimateUsage(systemPrompt+userInput, text)
	}
	aiTotalTokens.With(prometheus.Labels{"model": c.model}).Observe(float64(result.Usage.TotalTokens))

	log.Debug().
		Str("user_id", userID).
		Dur("duration", duration).
		Int("total_tokens", result.Usage.TotalTokens).
		Bool("tokens_estimated", result.Usage.Estimated).
		Msg("text planning response received")

	return result, nil
}

func (c *openAITextClient) estimateUsage(prompt, completion string) UsageInfo {
	tke, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		// Неизвестный словарь модели: берем базовый cl100k.
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return UsageInfo{Estimated: true}
		}
	}
	promptTokens := len(tke.Encode(prompt, nil, nil))
	completionTokens := len(tke.Encode(completion, nil, nil))
	return UsageInfo{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}
}
