package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"

	"storyvideo-server/shared/models"
)

// classify приводит произвольную ошибку внешнего вызова к *models.ProviderError.
// Уже классифицированные ошибки проходят насквозь.
func classify(err error) *models.ProviderError {
	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		return provErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &models.ProviderError{Kind: models.ProviderErrTimeout, Message: err.Error()}
	}

	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		kind := classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
		return &models.ProviderError{Kind: kind, Message: apiErr.Message}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.ProviderError{Kind: models.ProviderErrTimeout, Message: err.Error()}
	}

	return &models.ProviderError{Kind: models.ProviderErrUnknown, Message: err.Error()}
}

// classifyStatus сопоставляет HTTP-статус и текст ошибки с видом ошибки провайдера.
func classifyStatus(status int, message string) models.ProviderErrorKind {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ProviderErrAuthInvalid
	case status == http.StatusTooManyRequests:
		return models.ProviderErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return models.ProviderErrTimeout
	case isSafetyMessage(lower):
		return models.ProviderErrSafetyFiltered
	case status >= 500:
		return models.ProviderErrUnavailable
	default:
		return models.ProviderErrUnknown
	}
}

// isSafetyMessage распознает отказ модерации по тексту ошибки.
// Провайдеры не дают отдельного статуса для content filter.
func isSafetyMessage(lower string) bool {
	for _, marker := range []string{"safety", "content_filter", "content filter", "blocked", "moderation"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
