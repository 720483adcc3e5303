package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyvideo-server/internal/provider"
	"storyvideo-server/shared/models"
)

// ChainCallbacks уведомляют вызывающего о продвижении цепочки.
// Любое поле может быть nil.
type ChainCallbacks struct {
	OnSegmentStart    func(segmentNumber int, title string)
	OnSegmentComplete func(result models.SegmentResult)
}

// StoryChainRequest — запрос на генерацию цепочки видео-сегментов по плану.
type StoryChainRequest struct {
	UserID               string
	Plan                 models.StoryPlan
	StyleID              *uuid.UUID
	CharacterID          *uuid.UUID
	StyleAttributes      string
	CharacterDescription string
	AspectRatio          string
	GenerateAudio        bool
	// Seed — опциональная затравка первого сегмента (например, сгенерированное
	// ранее изображение персонажа).
	Seed      *provider.InlineMedia
	Callbacks ChainCallbacks
}

// StoryChainOrchestrator генерирует сегменты истории строго последовательно:
// результат каждого сегмента становится затравкой следующего, иначе
// визуальная непрерывность теряется. Каждый сегмент оплачивается отдельно
// через общий пайплайн.
type StoryChainOrchestrator struct {
	segments SegmentGenerator
	log      *zap.Logger
}

func NewStoryChainOrchestrator(segments SegmentGenerator, log *zap.Logger) *StoryChainOrchestrator {
	return &StoryChainOrchestrator{
		segments: segments,
		log:      log.With(zap.String("component", "story_chain")),
	}
}

// Run выполняет цепочку. При сбое сегмента возвращается
// *models.ChainInterruptedError с накопленным частичным результатом:
// завершённые сегменты уже оплачены и не теряются.
func (o *StoryChainOrchestrator) Run(ctx context.Context, req StoryChainRequest) (*models.StoryChainResult, error) {
	plan := req.Plan
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	plan.NormalizeForChain()

	result := &models.StoryChainResult{}
	seed := req.Seed

	o.log.Info("story chain started",
		zap.String("user_id", req.UserID),
		zap.String("story_title", plan.StoryTitle),
		zap.Int("segments", len(plan.Segments)))

	for i, segment := range plan.Segments {
		if req.Callbacks.OnSegmentStart != nil {
			req.Callbacks.OnSegmentStart(segment.SegmentNumber, segment.Title)
		}

		videoResult, err := o.segments.GenerateVideo(ctx, VideoGenRequest{
			UserID:               req.UserID,
			Title:                fmt.Sprintf("%s - %d. %s", plan.StoryTitle, segment.SegmentNumber, segment.Title),
			Scene:                segment.SceneConfig,
			StyleID:              req.StyleID,
			CharacterID:          req.CharacterID,
			StyleAttributes:      req.StyleAttributes,
			CharacterDescription: req.CharacterDescription,
			AspectRatio:          req.AspectRatio,
			DurationSeconds:      segment.SuggestedDuration,
			GenerateAudio:        req.GenerateAudio,
			Seed:                 seed,
		})
		if err != nil {
			o.log.Warn("story chain interrupted",
				zap.String("user_id", req.UserID),
				zap.Int("at_segment", segment.SegmentNumber),
				zap.Int("completed", len(result.Segments)),
				zap.Error(err))
			return nil, &models.ChainInterruptedError{
				AtSegment: segment.SegmentNumber,
				Partial:   result,
				Cause:     err,
			}
		}

		segResult := models.SegmentResult{
			SegmentNumber: segment.SegmentNumber,
			Title:         segment.Title,
			RecordID:      videoResult.RecordID.String(),
			Payload:       videoResult.Data,
			OutputURL:     videoResult.OutputURL,
			MimeType:      videoResult.MimeType,
			CostMXN:       videoResult.CostMXN,
			// Первый сегмент не продолжение, даже если он засеян картинкой.
			WasExtended: i > 0,
		}
		result.Segments = append(result.Segments, segResult)
		if req.Callbacks.OnSegmentComplete != nil {
			req.Callbacks.OnSegmentComplete(segResult)
		}

		// Результат сегмента сеет следующий.
		seed = &provider.InlineMedia{Data: videoResult.Data, MimeType: videoResult.MimeType}
	}

	o.log.Info("story chain completed",
		zap.String("user_id", req.UserID),
		zap.Int("segments", len(result.Segments)),
		zap.Float64("total_cost_mxn", result.TotalCostMXN()))
	return result, nil
}
