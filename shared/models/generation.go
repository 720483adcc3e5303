package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenerationType определяет тип оплачиваемой внешней операции.
type GenerationType string

const (
	GenerationTypeImage GenerationType = "image"
	GenerationTypeVideo GenerationType = "video"
	GenerationTypeStyle GenerationType = "style" // текстовое планирование сцены/истории
)

// GenerationStatus — статус записи о генерации.
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// IsTerminal сообщает, является ли статус конечным.
// Запись в конечном статусе больше не изменяется.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// GenerationRecord — запись о единичном оплачиваемом вызове внешнего провайдера.
// Создаётся в статусе pending непосредственно перед вызовом и живёт независимо
// от времени жизни инициировавшего её клиента.
type GenerationRecord struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           string           `json:"user_id" db:"user_id"`
	Title            string           `json:"title" db:"title"`
	GenerationType   GenerationType   `json:"generation_type" db:"generation_type"`
	Status           GenerationStatus `json:"status" db:"status"`
	Prompt           string           `json:"prompt" db:"prompt"`
	StyleID          *uuid.UUID       `json:"style_id,omitempty" db:"style_id"`
	CharacterID      *uuid.UUID       `json:"character_id,omitempty" db:"character_id"`
	SceneConfig      json.RawMessage  `json:"scene_config,omitempty" db:"scene_config"`
	GenerationParams json.RawMessage  `json:"generation_params,omitempty" db:"generation_params"`

	// Выходные данные (заполняются при завершении)
	OutputURL             string   `json:"output_url,omitempty" db:"output_url"`
	OutputKey             string   `json:"output_key,omitempty" db:"output_key"`
	MimeType              string   `json:"mime_type,omitempty" db:"mime_type"`
	Width                 *int     `json:"width,omitempty" db:"width"`
	Height                *int     `json:"height,omitempty" db:"height"`
	DurationSeconds       *float64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	CostMXN               float64  `json:"cost_mxn" db:"cost_mxn"`
	GenerationTimeSeconds float64  `json:"generation_time_seconds" db:"generation_time_seconds"`
	TokensUsed            *int     `json:"tokens_used,omitempty" db:"tokens_used"`
	ErrorMessage          string   `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GenerationMeta — входные данные для создания записи (до внешнего вызова).
type GenerationMeta struct {
	UserID           string
	Title            string
	GenerationType   GenerationType
	Prompt           string
	StyleID          *uuid.UUID
	CharacterID      *uuid.UUID
	SceneConfig      json.RawMessage
	GenerationParams json.RawMessage
}

// GenerationOutput — результат успешного внешнего вызова для фиксации в записи.
type GenerationOutput struct {
	OutputURL             string
	OutputKey             string
	MimeType              string
	Width                 *int
	Height                *int
	DurationSeconds       *float64
	CostMXN               float64
	GenerationTimeSeconds float64
	TokensUsed            *int
}
