package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyvideo-server/internal/billing"
	"storyvideo-server/internal/ledger"
	"storyvideo-server/internal/provider"
	"storyvideo-server/shared/models"
	"storyvideo-server/shared/schemas"
	"storyvideo-server/shared/utils"
)

// Pipeline проводит каждый оплачиваемый вызов по единому пути:
// оценка стоимости, консультативная проверка кредитов, запись pending в
// журнал, перевод в processing, вызов провайдера с повторами, фиксация
// результата. Запись получает РОВНО ОДИН конечный статус независимо от
// исхода.
type Pipeline struct {
	calc   *billing.Calculator
	gate   *billing.Gate
	ledger ledger.Repository
	text   provider.TextGenerator
	media  provider.MediaGenerator
	store  MediaStore
	retry  provider.RetryPolicy
	tracer schemas.ParseTracer
	log    *zap.Logger
}

func NewPipeline(
	calc *billing.Calculator,
	gate *billing.Gate,
	repo ledger.Repository,
	text provider.TextGenerator,
	media provider.MediaGenerator,
	store MediaStore,
	retry provider.RetryPolicy,
	tracer schemas.ParseTracer,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		calc:   calc,
		gate:   gate,
		ledger: repo,
		text:   text,
		media:  media,
		store:  store,
		retry:  retry,
		tracer: tracer,
		log:    log.With(zap.String("component", "pipeline")),
	}
}

// --- Запросы и результаты операций ---

type PlanSceneRequest struct {
	UserID    string
	Title     string
	UserInput string
}

type PlanSceneResult struct {
	Scene    *models.SceneConfig
	RecordID uuid.UUID
	CostMXN  float64
}

type PlanStoryRequest struct {
	UserID       string
	Title        string
	UserInput    string
	SegmentCount int
}

type PlanStoryResult struct {
	Plan     *models.StoryPlan
	RecordID uuid.UUID
	CostMXN  float64
}

type ImageGenRequest struct {
	UserID               string
	Title                string
	Scene                models.SceneConfig
	StyleID              *uuid.UUID
	CharacterID          *uuid.UUID
	StyleAttributes      string
	CharacterDescription string
	AspectRatio          string
	Seed                 *provider.InlineMedia
}

type ImageGenResult struct {
	RecordID  uuid.UUID
	Data      []byte
	OutputURL string
	MimeType  string
	CostMXN   float64
}

type VideoGenRequest struct {
	UserID               string
	Title                string
	Scene                models.SceneConfig
	StyleID              *uuid.UUID
	CharacterID          *uuid.UUID
	StyleAttributes      string
	CharacterDescription string
	AspectRatio          string
	DurationSeconds      int
	GenerateAudio        bool
	Seed                 *provider.InlineMedia
}

type VideoGenResult struct {
	RecordID        uuid.UUID
	Data            []byte
	OutputURL       string
	MimeType        string
	CostMXN         float64
	DurationSeconds float64
}

// SegmentGenerator — то, что нужно оркестратору цепочки от пайплайна.
// Выделен в интерфейс ради тестируемости оркестратора.
type SegmentGenerator interface {
	GenerateVideo(ctx context.Context, req VideoGenRequest) (*VideoGenResult, error)
}

// --- Общий каркас оплачиваемого вызова ---

// begin выполняет всё, что предшествует вызову провайдера. При отказе
// гейта или неоцениваемом типе операции запись в журнале НЕ создаётся.
func (p *Pipeline) begin(ctx context.Context, meta models.GenerationMeta, videoSeconds int) (*models.GenerationRecord, float64, error) {
	estimated, err := p.calc.Estimate(meta.GenerationType, videoSeconds)
	if err != nil {
		return nil, 0, err
	}
	if err := p.gate.Check(ctx, meta.UserID, estimated); err != nil {
		return nil, 0, err
	}
	rec, err := p.ledger.Create(ctx, meta)
	if err != nil {
		return nil, 0, err
	}
	if err := p.ledger.MarkProcessing(ctx, rec.ID); err != nil {
		// Запись есть, но выдать вызов не удалось: закрываем её сбоем.
		p.failRecord(ctx, rec.ID, "internal: "+err.Error(), 0)
		return nil, 0, err
	}
	return rec, estimated, nil
}

// failRecord закрывает запись сбоем. Ошибка самой фиксации логируется,
// но не подменяет исходную ошибку операции.
func (p *Pipeline) failRecord(ctx context.Context, id uuid.UUID, message string, elapsed float64) {
	if err := p.ledger.Fail(ctx, id, message, elapsed); err != nil {
		p.log.Error("failed to mark generation as failed",
			zap.String("record_id", id.String()), zap.Error(err))
	}
}

// userFacingMessage выбирает текст ошибки для журнала.
func userFacingMessage(err error) string {
	var provErr *models.ProviderError
	if errors.As(err, &provErr) {
		return provErr.UserMessage()
	}
	var parseErr *models.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Error()
	}
	return err.Error()
}

// --- Операции планирования ---

// PlanScene превращает идею пользователя в конфигурацию сцены.
func (p *Pipeline) PlanScene(ctx context.Context, req PlanSceneRequest) (*PlanSceneResult, error) {
	rec, estimated, err := p.begin(ctx, models.GenerationMeta{
		UserID:         req.UserID,
		Title:          req.Title,
		GenerationType: models.GenerationTypeStyle,
		Prompt:         req.UserInput,
	}, 0)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	textResult, err := provider.Do(ctx, p.retry, "plan_scene", func(ctx context.Context) (*provider.TextResult, error) {
		return p.text.GenerateText(ctx, req.UserID, scenePlanSystemPrompt, req.UserInput)
	})
	if err != nil {
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}

	scene, err := schemas.ParseSceneResponse(textResult.Text, p.tracer)
	if err != nil {
		// Парсинг не ретраится: тот же текст лучше не станет.
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}

	tokens := textResult.Usage.TotalTokens
	if err := p.ledger.Complete(ctx, rec.ID, models.GenerationOutput{
		CostMXN:               estimated,
		GenerationTimeSeconds: time.Since(started).Seconds(),
		TokensUsed:            &tokens,
	}); err != nil {
		return nil, err
	}
	return &PlanSceneResult{Scene: scene, RecordID: rec.ID, CostMXN: estimated}, nil
}

// PlanStory превращает идею пользователя в план многосегментной истории.
func (p *Pipeline) PlanStory(ctx context.Context, req PlanStoryRequest) (*PlanStoryResult, error) {
	if req.SegmentCount < 1 {
		return nil, fmt.Errorf("%w: segment count %d", models.ErrInvalidInput, req.SegmentCount)
	}
	rec, estimated, err := p.begin(ctx, models.GenerationMeta{
		UserID:         req.UserID,
		Title:          req.Title,
		GenerationType: models.GenerationTypeStyle,
		Prompt:         req.UserInput,
	}, 0)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	systemPrompt := storyPlanSystemPrompt(req.SegmentCount)
	textResult, err := provider.Do(ctx, p.retry, "plan_story", func(ctx context.Context) (*provider.TextResult, error) {
		return p.text.GenerateText(ctx, req.UserID, systemPrompt, req.UserInput)
	})
	if err != nil {
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}

	plan, err := schemas.ParseStoryResponse(textResult.Text, p.tracer)
	if err != nil {
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}
	plan.NormalizeForChain()

	tokens := textResult.Usage.TotalTokens
	if err := p.ledger.Complete(ctx, rec.ID, models.GenerationOutput{
		CostMXN:               estimated,
		GenerationTimeSeconds: time.Since(started).Seconds(),
		TokensUsed:            &tokens,
	}); err != nil {
		return nil, err
	}
	return &PlanStoryResult{Plan: plan, RecordID: rec.ID, CostMXN: estimated}, nil
}

// --- Операции генерации медиа ---

// GenerateImage синтезирует изображение по конфигурации сцены.
func (p *Pipeline) GenerateImage(ctx context.Context, req ImageGenRequest) (*ImageGenResult, error) {
	if err := req.Scene.Validate(false); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	prompt := utils.FormatImagePrompt(req.Scene, req.CharacterDescription, req.StyleAttributes)
	sceneJSON, _ := json.Marshal(req.Scene)

	rec, estimated, err := p.begin(ctx, models.GenerationMeta{
		UserID:         req.UserID,
		Title:          req.Title,
		GenerationType: models.GenerationTypeImage,
		Prompt:         prompt,
		StyleID:        req.StyleID,
		CharacterID:    req.CharacterID,
		SceneConfig:    sceneJSON,
	}, 0)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	media, err := provider.Do(ctx, p.retry, "generate_image", func(ctx context.Context) (*provider.MediaResult, error) {
		return p.media.GenerateImage(ctx, provider.ImageRequest{
			UserID:      req.UserID,
			Prompt:      prompt,
			AspectRatio: req.AspectRatio,
			SeedImage:   req.Seed,
		})
	})
	if err != nil {
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}

	key := mediaKey(req.UserID, rec.ID, media.MimeType)
	outputURL, err := p.store.Save(ctx, key, media.Data, media.MimeType)
	if err != nil {
		p.failRecord(ctx, rec.ID, "storing output: "+err.Error(), time.Since(started).Seconds())
		return nil, err
	}

	if err := p.ledger.Complete(ctx, rec.ID, models.GenerationOutput{
		OutputURL:             outputURL,
		OutputKey:             key,
		MimeType:              media.MimeType,
		Width:                 intPtrNonZero(media.Width),
		Height:                intPtrNonZero(media.Height),
		CostMXN:               estimated,
		GenerationTimeSeconds: time.Since(started).Seconds(),
	}); err != nil {
		return nil, err
	}
	return &ImageGenResult{
		RecordID:  rec.ID,
		Data:      media.Data,
		OutputURL: outputURL,
		MimeType:  media.MimeType,
		CostMXN:   estimated,
	}, nil
}

// GenerateVideo синтезирует один видео-сегмент. Оценка делается по
// запрошенной длительности, итоговая стоимость считается по измеренной
// длительности готового ролика.
func (p *Pipeline) GenerateVideo(ctx context.Context, req VideoGenRequest) (*VideoGenResult, error) {
	if err := req.Scene.Validate(true); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	duration := models.NormalizeDuration(req.DurationSeconds)
	prompt := utils.FormatVideoPrompt(req.Scene, req.CharacterDescription, req.StyleAttributes, duration)
	sceneJSON, _ := json.Marshal(req.Scene)

	rec, estimated, err := p.begin(ctx, models.GenerationMeta{
		UserID:         req.UserID,
		Title:          req.Title,
		GenerationType: models.GenerationTypeVideo,
		Prompt:         prompt,
		StyleID:        req.StyleID,
		CharacterID:    req.CharacterID,
		SceneConfig:    sceneJSON,
	}, duration)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	media, err := provider.Do(ctx, p.retry, "generate_video", func(ctx context.Context) (*provider.MediaResult, error) {
		return p.media.GenerateVideo(ctx, provider.VideoRequest{
			UserID:          req.UserID,
			Prompt:          prompt,
			AspectRatio:     req.AspectRatio,
			DurationSeconds: duration,
			GenerateAudio:   req.GenerateAudio,
			SeedMedia:       req.Seed,
		})
	})
	if err != nil {
		p.failRecord(ctx, rec.ID, userFacingMessage(err), time.Since(started).Seconds())
		return nil, err
	}

	key := mediaKey(req.UserID, rec.ID, media.MimeType)
	outputURL, err := p.store.Save(ctx, key, media.Data, media.MimeType)
	if err != nil {
		p.failRecord(ctx, rec.ID, "storing output: "+err.Error(), time.Since(started).Seconds())
		return nil, err
	}

	// Платим за то, что реально получили, а не за то, что просили.
	measuredSeconds := media.DurationSeconds
	if measuredSeconds <= 0 {
		measuredSeconds = float64(duration)
	}
	cost := p.calc.RealizedVideoCost(measuredSeconds)
	if cost != estimated {
		p.log.Debug("realized video cost differs from estimate",
			zap.String("record_id", rec.ID.String()),
			zap.Float64("estimated_mxn", estimated),
			zap.Float64("realized_mxn", cost))
	}

	if err := p.ledger.Complete(ctx, rec.ID, models.GenerationOutput{
		OutputURL:             outputURL,
		OutputKey:             key,
		MimeType:              media.MimeType,
		DurationSeconds:       &measuredSeconds,
		CostMXN:               cost,
		GenerationTimeSeconds: time.Since(started).Seconds(),
	}); err != nil {
		return nil, err
	}
	return &VideoGenResult{
		RecordID:        rec.ID,
		Data:            media.Data,
		OutputURL:       outputURL,
		MimeType:        media.MimeType,
		CostMXN:         cost,
		DurationSeconds: measuredSeconds,
	}, nil
}

func mediaKey(userID string, recordID uuid.UUID, mimeType string) string {
	return fmt.Sprintf("%s/%s%s", userID, recordID, ExtensionForMime(mimeType))
}

func intPtrNonZero(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
