package provider

import (
	"context"

	"github.com/rs/zerolog"
)

// Пакетный логгер в стиле zerolog, по аналогии с остальными низкоуровневыми
// клиентами. Верхние слои используют zap, провайдер самодостаточен.
var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "provider").Logger()

// UsageInfo содержит информацию об использовании токенов текстовым провайдером.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Estimated выставляется, когда провайдер не вернул usage и токены
	// посчитаны локально по словарю модели.
	Estimated bool
}

// TextResult — результат текстовой генерации.
type TextResult struct {
	Text  string
	Usage UsageInfo
}

// InlineMedia — байты изображения или видео с типом содержимого.
// Используется для затравки генерации (консистентность персонажа,
// продолжение клипа).
type InlineMedia struct {
	Data     []byte
	MimeType string
}

// MediaResult — результат генерации изображения или видео.
type MediaResult struct {
	Data            []byte
	MimeType        string
	Width           int
	Height          int
	DurationSeconds float64 // измеренная длительность готового ролика, 0 для изображений
}

// ImageRequest — запрос на генерацию изображения.
type ImageRequest struct {
	UserID      string
	Prompt      string
	AspectRatio string
	SeedImage   *InlineMedia // опциональная затравка для консистентности
}

// VideoRequest — запрос на генерацию видео-сегмента.
type VideoRequest struct {
	UserID          string
	Prompt          string
	AspectRatio     string
	DurationSeconds int
	GenerateAudio   bool
	SeedMedia       *InlineMedia // результат предыдущего сегмента при продлении
}

// TextGenerator — текстовый планировщик сцен и историй.
type TextGenerator interface {
	GenerateText(ctx context.Context, userID, systemPrompt, userInput string) (*TextResult, error)
}

// MediaGenerator — провайдер изображений и видео.
type MediaGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*MediaResult, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (*MediaResult, error)
}
