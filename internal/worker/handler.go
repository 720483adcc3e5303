package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyvideo-server/internal/config"
	"storyvideo-server/internal/ledger"
	internalmsg "storyvideo-server/internal/messaging"
	"storyvideo-server/internal/provider"
	"storyvideo-server/internal/service"
	"storyvideo-server/shared/messaging"
	"storyvideo-server/shared/models"
)

// GenerationService — операции пайплайна, нужные обработчику задач.
type GenerationService interface {
	PlanScene(ctx context.Context, req service.PlanSceneRequest) (*service.PlanSceneResult, error)
	PlanStory(ctx context.Context, req service.PlanStoryRequest) (*service.PlanStoryResult, error)
	GenerateImage(ctx context.Context, req service.ImageGenRequest) (*service.ImageGenResult, error)
	GenerateVideo(ctx context.Context, req service.VideoGenRequest) (*service.VideoGenResult, error)
}

// ChainRunner запускает цепочку сегментов истории.
type ChainRunner interface {
	Run(ctx context.Context, req service.StoryChainRequest) (*models.StoryChainResult, error)
}

// TaskHandler обрабатывает задачи генерации из очереди.
type TaskHandler struct {
	cfg      *config.Config
	svc      GenerationService
	chain    ChainRunner
	ledger   ledger.Repository
	store    service.MediaStore
	notifier internalmsg.Notifier
	log      *zap.Logger
}

// NewTaskHandler создает новый экземпляр обработчика задач
func NewTaskHandler(
	cfg *config.Config,
	svc GenerationService,
	chain ChainRunner,
	repo ledger.Repository,
	store service.MediaStore,
	notifier internalmsg.Notifier,
	log *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		cfg:      cfg,
		svc:      svc,
		chain:    chain,
		ledger:   repo,
		store:    store,
		notifier: notifier,
		log:      log.With(zap.String("component", "task_handler")),
	}
}

// Handle обрабатывает одну задачу генерации. Возвращённая ошибка уводит
// сообщение в DLQ; бизнес-отказы (нехватка кредитов, кривой ввод)
// подтверждаются после уведомления пользователя, повторять их бессмысленно.
func (h *TaskHandler) Handle(ctx context.Context, payload messaging.GenerationTaskPayload) (err error) {
	MetricsTaskReceived(string(payload.TaskType))
	started := time.Now()
	taskLog := h.log.With(
		zap.String("task_id", payload.TaskID),
		zap.String("user_id", payload.UserID),
		zap.String("task_type", string(payload.TaskType)))
	taskLog.Info("task received")

	status := "success"
	defer func() {
		if err != nil || status != "success" {
			status = "error"
		}
		MetricsObserveTaskDuration(string(payload.TaskType), status, time.Since(started).Seconds())
		taskLog.Info("task finished",
			zap.String("status", status),
			zap.Duration("duration", time.Since(started)))
	}()

	switch payload.TaskType {
	case messaging.TaskTypeScenePlan:
		err = h.handleScenePlan(ctx, payload)
	case messaging.TaskTypeStoryPlan:
		err = h.handleStoryPlan(ctx, payload)
	case messaging.TaskTypeImage:
		err = h.handleImage(ctx, payload)
	case messaging.TaskTypeVideo, messaging.TaskTypeExtendedClip:
		err = h.handleVideo(ctx, payload)
	case messaging.TaskTypeStoryVideo:
		err = h.handleStoryVideo(ctx, payload)
	default:
		err = fmt.Errorf("%w: task type %q", models.ErrInvalidInput, payload.TaskType)
	}

	if err != nil {
		status = "error"
		reason := failureReason(err)
		MetricsTaskFailed(reason)
		h.notifyError(ctx, payload, err)
		if isBusinessRejection(err) {
			// Пользователь уведомлён, в DLQ такой задаче делать нечего.
			taskLog.Info("task rejected", zap.String("reason", reason), zap.Error(err))
			return nil
		}
		return err
	}

	MetricsTaskSucceeded(string(payload.TaskType))
	return nil
}

func (h *TaskHandler) handleScenePlan(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	result, err := h.svc.PlanScene(ctx, service.PlanSceneRequest{
		UserID:    payload.UserID,
		Title:     payload.Title,
		UserInput: payload.UserInput,
	})
	if err != nil {
		return err
	}
	MetricsAddBilledMXN(result.CostMXN)

	sceneJSON, _ := json.Marshal(result.Scene)
	return h.notify(ctx, messaging.NotificationPayload{
		TaskID:     payload.TaskID,
		UserID:     payload.UserID,
		TaskType:   payload.TaskType,
		Status:     messaging.NotificationStatusSuccess,
		RecordID:   result.RecordID.String(),
		CostMXN:    result.CostMXN,
		ResultJSON: string(sceneJSON),
	})
}

func (h *TaskHandler) handleStoryPlan(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	segments := payload.SegmentCount
	if segments < 1 {
		segments = h.cfg.DefaultStorySegments
	}
	result, err := h.svc.PlanStory(ctx, service.PlanStoryRequest{
		UserID:       payload.UserID,
		Title:        payload.Title,
		UserInput:    payload.UserInput,
		SegmentCount: segments,
	})
	if err != nil {
		return err
	}
	MetricsAddBilledMXN(result.CostMXN)

	planJSON, _ := json.Marshal(result.Plan)
	return h.notify(ctx, messaging.NotificationPayload{
		TaskID:     payload.TaskID,
		UserID:     payload.UserID,
		TaskType:   payload.TaskType,
		Status:     messaging.NotificationStatusSuccess,
		RecordID:   result.RecordID.String(),
		CostMXN:    result.CostMXN,
		ResultJSON: string(planJSON),
	})
}

func (h *TaskHandler) handleImage(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	scene, err := sceneFromPayload(payload)
	if err != nil {
		return err
	}
	seed, err := h.loadSeed(ctx, payload.SeedRecordID)
	if err != nil {
		return err
	}

	result, err := h.svc.GenerateImage(ctx, service.ImageGenRequest{
		UserID:      payload.UserID,
		Title:       payload.Title,
		Scene:       *scene,
		StyleID:     parseOptionalUUID(payload.StyleID),
		CharacterID: parseOptionalUUID(payload.CharacterID),
		AspectRatio: payload.AspectRatio,
		Seed:        seed,
	})
	if err != nil {
		return err
	}
	MetricsAddBilledMXN(result.CostMXN)

	return h.notify(ctx, messaging.NotificationPayload{
		TaskID:    payload.TaskID,
		UserID:    payload.UserID,
		TaskType:  payload.TaskType,
		Status:    messaging.NotificationStatusSuccess,
		RecordID:  result.RecordID.String(),
		OutputURL: result.OutputURL,
		CostMXN:   result.CostMXN,
	})
}

func (h *TaskHandler) handleVideo(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	scene, err := sceneFromPayload(payload)
	if err != nil {
		return err
	}
	seed, err := h.loadSeed(ctx, payload.SeedRecordID)
	if err != nil {
		return err
	}
	if payload.TaskType == messaging.TaskTypeExtendedClip && seed == nil {
		return fmt.Errorf("%w: extended clip requires a seed record", models.ErrInvalidInput)
	}

	result, err := h.svc.GenerateVideo(ctx, service.VideoGenRequest{
		UserID:          payload.UserID,
		Title:           payload.Title,
		Scene:           *scene,
		StyleID:         parseOptionalUUID(payload.StyleID),
		CharacterID:     parseOptionalUUID(payload.CharacterID),
		AspectRatio:     payload.AspectRatio,
		DurationSeconds: payload.DurationHint,
		GenerateAudio:   payload.GenerateAudio,
		Seed:            seed,
	})
	if err != nil {
		return err
	}
	MetricsAddBilledMXN(result.CostMXN)

	return h.notify(ctx, messaging.NotificationPayload{
		TaskID:    payload.TaskID,
		UserID:    payload.UserID,
		TaskType:  payload.TaskType,
		Status:    messaging.NotificationStatusSuccess,
		RecordID:  result.RecordID.String(),
		OutputURL: result.OutputURL,
		CostMXN:   result.CostMXN,
	})
}

func (h *TaskHandler) handleStoryVideo(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	plan, err := h.resolveStoryPlan(ctx, payload)
	if err != nil {
		return err
	}
	seed, err := h.loadSeed(ctx, payload.SeedRecordID)
	if err != nil {
		return err
	}

	total := len(plan.Segments)
	result, err := h.chain.Run(ctx, service.StoryChainRequest{
		UserID:        payload.UserID,
		Plan:          *plan,
		StyleID:       parseOptionalUUID(payload.StyleID),
		CharacterID:   parseOptionalUUID(payload.CharacterID),
		AspectRatio:   payload.AspectRatio,
		GenerateAudio: payload.GenerateAudio,
		Seed:          seed,
		Callbacks: service.ChainCallbacks{
			OnSegmentComplete: func(seg models.SegmentResult) {
				MetricsChainSegmentCompleted()
				MetricsAddBilledMXN(seg.CostMXN)
				// Промежуточный прогресс, потеря такого уведомления не критична.
				_ = h.notifier.Notify(ctx, messaging.NotificationPayload{
					TaskID:        payload.TaskID,
					UserID:        payload.UserID,
					TaskType:      payload.TaskType,
					Status:        messaging.NotificationStatusPartial,
					RecordID:      seg.RecordID,
					OutputURL:     seg.OutputURL,
					CostMXN:       seg.CostMXN,
					SegmentsDone:  seg.SegmentNumber,
					SegmentsTotal: total,
				})
			},
		},
	})
	if err != nil {
		return err
	}

	resultJSON, _ := json.Marshal(result)
	return h.notify(ctx, messaging.NotificationPayload{
		TaskID:        payload.TaskID,
		UserID:        payload.UserID,
		TaskType:      payload.TaskType,
		Status:        messaging.NotificationStatusSuccess,
		CostMXN:       result.TotalCostMXN(),
		SegmentsDone:  len(result.Segments),
		SegmentsTotal: total,
		ResultJSON:    string(resultJSON),
	})
}

// resolveStoryPlan берет план из задачи или планирует историю на месте.
func (h *TaskHandler) resolveStoryPlan(ctx context.Context, payload messaging.GenerationTaskPayload) (*models.StoryPlan, error) {
	if payload.StoryPlan != "" {
		var plan models.StoryPlan
		if err := json.Unmarshal([]byte(payload.StoryPlan), &plan); err != nil {
			return nil, fmt.Errorf("%w: story plan payload: %v", models.ErrInvalidInput, err)
		}
		return &plan, nil
	}

	segments := payload.SegmentCount
	if segments < 1 {
		segments = h.cfg.DefaultStorySegments
	}
	planned, err := h.svc.PlanStory(ctx, service.PlanStoryRequest{
		UserID:       payload.UserID,
		Title:        payload.Title,
		UserInput:    payload.UserInput,
		SegmentCount: segments,
	})
	if err != nil {
		return nil, err
	}
	MetricsAddBilledMXN(planned.CostMXN)
	return planned.Plan, nil
}

// loadSeed достает байты ранее завершённой генерации для затравки новой.
func (h *TaskHandler) loadSeed(ctx context.Context, seedRecordID string) (*provider.InlineMedia, error) {
	if seedRecordID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(seedRecordID)
	if err != nil {
		return nil, fmt.Errorf("%w: seed record id %q", models.ErrInvalidInput, seedRecordID)
	}
	rec, err := h.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.GenerationStatusCompleted || rec.OutputKey == "" {
		return nil, fmt.Errorf("%w: seed record %s has no completed output", models.ErrInvalidInput, seedRecordID)
	}
	data, err := h.store.Load(ctx, rec.OutputKey)
	if err != nil {
		return nil, err
	}
	return &provider.InlineMedia{Data: data, MimeType: rec.MimeType}, nil
}

func (h *TaskHandler) notify(ctx context.Context, payload messaging.NotificationPayload) error {
	if err := h.notifier.Notify(ctx, payload); err != nil {
		// Результат уже оплачен и сохранён, терять задачу из-за уведомления нельзя.
		h.log.Error("failed to publish success notification",
			zap.String("task_id", payload.TaskID), zap.Error(err))
	}
	return nil
}

func (h *TaskHandler) notifyError(ctx context.Context, payload messaging.GenerationTaskPayload, taskErr error) {
	notification := messaging.NotificationPayload{
		TaskID:       payload.TaskID,
		UserID:       payload.UserID,
		TaskType:     payload.TaskType,
		Status:       messaging.NotificationStatusError,
		ErrorDetails: userMessage(taskErr),
	}

	// Прерванная цепочка доносит частичный результат: оплаченные сегменты
	// не пропадают.
	var chainErr *models.ChainInterruptedError
	if errors.As(taskErr, &chainErr) && chainErr.Partial != nil {
		notification.Status = messaging.NotificationStatusPartial
		notification.SegmentsDone = len(chainErr.Partial.Segments)
		notification.CostMXN = chainErr.Partial.TotalCostMXN()
		if partialJSON, err := json.Marshal(chainErr.Partial); err == nil {
			notification.ResultJSON = string(partialJSON)
		}
	}

	if err := h.notifier.Notify(ctx, notification); err != nil {
		h.log.Error("failed to publish error notification",
			zap.String("task_id", payload.TaskID), zap.Error(err))
	}
}

// --- Вспомогательные функции ---

func sceneFromPayload(payload messaging.GenerationTaskPayload) (*models.SceneConfig, error) {
	if payload.SceneConfig == "" {
		return nil, fmt.Errorf("%w: scene config is required", models.ErrInvalidInput)
	}
	var scene models.SceneConfig
	if err := json.Unmarshal([]byte(payload.SceneConfig), &scene); err != nil {
		return nil, fmt.Errorf("%w: scene config payload: %v", models.ErrInvalidInput, err)
	}
	return &scene, nil
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// isBusinessRejection отличает отказ пользователю от технического сбоя.
func isBusinessRejection(err error) bool {
	var credits *models.InsufficientCreditsError
	if errors.As(err, &credits) {
		return true
	}
	return errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrUnpricedOperation)
}

func failureReason(err error) string {
	var credits *models.InsufficientCreditsError
	if errors.As(err, &credits) {
		return "insufficient_credits"
	}
	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		return "provider_" + string(provErr.Kind)
	}
	var parseErr *models.ParseError
	if errors.As(err, &parseErr) {
		return "parse_" + parseErr.Context
	}
	var chainErr *models.ChainInterruptedError
	if errors.As(err, &chainErr) {
		return "chain_interrupted"
	}
	if errors.Is(err, models.ErrInvalidInput) {
		return "invalid_input"
	}
	if errors.Is(err, models.ErrUnpricedOperation) {
		return "unpriced_operation"
	}
	return "internal"
}

// userMessage выбирает текст для уведомления пользователя.
func userMessage(err error) string {
	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		return provErr.UserMessage()
	}
	var chainErr *models.ChainInterruptedError
	if errors.As(err, &chainErr) {
		return chainErr.Error()
	}
	return err.Error()
}
