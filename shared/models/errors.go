package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound        = errors.New("resource not found")
	ErrRecordImmutable = errors.New("generation record is already in a terminal status")

	// Billing Errors
	ErrUnpricedOperation = errors.New("operation type has no price, refusing to bill")
	ErrBalanceNotFound   = errors.New("credit balance not found")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)

// InsufficientCreditsError возвращается консультативной проверкой баланса,
// когда оценочная стоимость превышает доступный баланс. Никогда не ретраится.
type InsufficientCreditsError struct {
	Required  float64
	Available float64
	Currency  string
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %.2f %s, available %.2f %s",
		e.Required, e.Currency, e.Available, e.Currency)
}

// ProviderErrorKind классифицирует ошибку внешнего провайдера.
type ProviderErrorKind string

const (
	ProviderErrTimeout        ProviderErrorKind = "timeout"
	ProviderErrRateLimited    ProviderErrorKind = "rate_limited"
	ProviderErrSafetyFiltered ProviderErrorKind = "safety_filtered"
	ProviderErrAuthInvalid    ProviderErrorKind = "auth_invalid"
	ProviderErrUnavailable    ProviderErrorKind = "unavailable"
	ProviderErrUnknown        ProviderErrorKind = "unknown"
)

// ProviderError — унифицированная ошибка внешнего вызова (текст/изображение/видео).
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error: %s", e.Kind)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// Retryable сообщает, имеет ли смысл повторять вызов с тем же запросом.
// Ошибки авторизации и модерации повторять бесполезно.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ProviderErrAuthInvalid, ProviderErrSafetyFiltered:
		return false
	default:
		return true
	}
}

// UserMessage возвращает сообщение, пригодное для показа пользователю.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case ProviderErrAuthInvalid:
		return "provider rejected credentials, check API key configuration"
	case ProviderErrSafetyFiltered:
		return "request was blocked by the provider's content filter, try modifying the prompt"
	case ProviderErrRateLimited:
		return "provider rate limit reached, try again later"
	case ProviderErrTimeout:
		return "provider did not respond in time, the operation may be retried"
	case ProviderErrUnavailable:
		return "provider is temporarily unavailable"
	default:
		return e.Message
	}
}

// ParseError возвращается, когда ни одна из стратегий восстановления не смогла
// превратить текст провайдера в валидную структуру. Автоматически не ретраится:
// тот же самый текст лучше не станет.
type ParseError struct {
	Context string // "scene" или "story"
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %s", e.Context, e.Reason)
}

// ChainInterruptedError — частичный результат многосегментной цепочки.
// Сегменты до AtSegment завершены и оплачены; AtSegment упал; последующие
// не запускались. Несёт накопленный результат, а не теряет его.
type ChainInterruptedError struct {
	AtSegment int // 1-based номер упавшего сегмента
	Partial   *StoryChainResult
	Cause     error
}

func (e *ChainInterruptedError) Error() string {
	completed := 0
	if e.Partial != nil {
		completed = len(e.Partial.Segments)
	}
	return fmt.Sprintf("story chain interrupted at segment %d (%d segments completed): %v",
		e.AtSegment, completed, e.Cause)
}

func (e *ChainInterruptedError) Unwrap() error {
	return e.Cause
}
