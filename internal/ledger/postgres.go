package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyvideo-server/shared/models"
)

// postgresRepository реализует Repository для PostgreSQL.
type postgresRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

// NewPostgresRepository создает новый экземпляр журнала для PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepository{db: db, log: log.With(zap.String("component", "ledger"))}
}

func (r *postgresRepository) Create(ctx context.Context, meta models.GenerationMeta) (*models.GenerationRecord, error) {
	now := time.Now().UTC()
	rec := &models.GenerationRecord{
		ID:               uuid.New(),
		UserID:           meta.UserID,
		Title:            meta.Title,
		GenerationType:   meta.GenerationType,
		Status:           models.GenerationStatusPending,
		Prompt:           meta.Prompt,
		StyleID:          meta.StyleID,
		CharacterID:      meta.CharacterID,
		SceneConfig:      meta.SceneConfig,
		GenerationParams: meta.GenerationParams,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	query := `
        INSERT INTO generations
        (id, user_id, title, generation_type, status, prompt, style_id, character_id,
         scene_config, generation_params, cost_mxn, generation_time_seconds, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, $11, $11)
    `
	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Title, rec.GenerationType, rec.Status, rec.Prompt,
		rec.StyleID, rec.CharacterID, rec.SceneConfig, rec.GenerationParams, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания записи генерации: %w", err)
	}

	r.log.Debug("generation record created",
		zap.String("record_id", rec.ID.String()),
		zap.String("user_id", rec.UserID),
		zap.String("type", string(rec.GenerationType)))
	return rec, nil
}

func (r *postgresRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	// processing выставляется только из pending.
	query := `
        UPDATE generations
        SET status = $2, updated_at = now()
        WHERE id = $1 AND status = $3
    `
	tag, err := r.db.Exec(ctx, query, id, models.GenerationStatusProcessing, models.GenerationStatusPending)
	if err != nil {
		return fmt.Errorf("ошибка перевода записи %s в processing: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}
	return nil
}

func (r *postgresRepository) Complete(ctx context.Context, id uuid.UUID, out models.GenerationOutput) error {
	query := `
        UPDATE generations
        SET status = $2,
            output_url = $3, output_key = $4, mime_type = $5,
            width = $6, height = $7, duration_seconds = $8,
            cost_mxn = $9, generation_time_seconds = $10, tokens_used = $11,
            updated_at = now()
        WHERE id = $1 AND status IN ($12, $13)
    `
	tag, err := r.db.Exec(ctx, query, id,
		models.GenerationStatusCompleted,
		out.OutputURL, out.OutputKey, out.MimeType,
		out.Width, out.Height, out.DurationSeconds,
		out.CostMXN, out.GenerationTimeSeconds, out.TokensUsed,
		models.GenerationStatusPending, models.GenerationStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("ошибка завершения записи %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}

	r.log.Info("generation completed",
		zap.String("record_id", id.String()),
		zap.Float64("cost_mxn", out.CostMXN),
		zap.Float64("generation_time_s", out.GenerationTimeSeconds))
	return nil
}

func (r *postgresRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, elapsedSeconds float64) error {
	query := `
        UPDATE generations
        SET status = $2, error_message = $3, generation_time_seconds = $4, updated_at = now()
        WHERE id = $1 AND status IN ($5, $6)
    `
	tag, err := r.db.Exec(ctx, query, id,
		models.GenerationStatusFailed, errorMessage, elapsedSeconds,
		models.GenerationStatusPending, models.GenerationStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("ошибка фиксации сбоя записи %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}

	r.log.Info("generation failed",
		zap.String("record_id", id.String()),
		zap.String("error", errorMessage))
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationRecord, error) {
	var rec models.GenerationRecord
	query := `SELECT * FROM generations WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &rec, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения записи %s: %w", id, err)
	}
	return &rec, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.GenerationRecord, error) {
	var recs []*models.GenerationRecord
	query := `
        SELECT * FROM generations
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	if err := pgxscan.Select(ctx, r.db, &recs, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ошибка чтения записей пользователя %s: %w", userID, err)
	}
	return recs, nil
}

// classifyMissedUpdate различает отсутствующую запись и запись в конечном
// статусе, когда UPDATE не затронул ни одной строки.
func (r *postgresRepository) classifyMissedUpdate(ctx context.Context, id uuid.UUID) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return models.ErrRecordImmutable
	}
	// Гонка двух параллельных переходов: запись есть, но условие статуса
	// не совпало. Считаем её неизменяемой для вызывающего.
	return models.ErrRecordImmutable
}
