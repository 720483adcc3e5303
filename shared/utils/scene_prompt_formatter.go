package utils

import (
	"fmt"
	"strings"

	"storyvideo-server/shared/models"
)

// consistencyInstruction — завершающая инструкция для провайдера.
// Является частью контракта: провайдеры визуальной генерации стабильнее
// держат персонажа, когда инструкция идет последней строкой.
const consistencyInstruction = "Maintain strict visual consistency of the character and style across the whole output."

// FormatImagePrompt собирает промпт для генерации изображения.
// Порядок полей фиксирован: персонаж → сцена → фон → действие → освещение →
// камера → атрибуты стиля → инструкция консистентности.
// Пустые опциональные поля полностью опускаются (не выводятся пустыми метками).
// Функция чистая: одинаковый вход всегда даёт одинаковую строку.
func FormatImagePrompt(scene models.SceneConfig, characterDescription, styleAttributes string) string {
	var sb strings.Builder

	if characterDescription != "" {
		sb.WriteString("Character: ")
		sb.WriteString(characterDescription)
		sb.WriteString("\n")
	}
	sb.WriteString("Scene: ")
	sb.WriteString(scene.Escena)
	sb.WriteString("\n")
	if scene.Fondo != "" {
		sb.WriteString("Background: ")
		sb.WriteString(scene.Fondo)
		sb.WriteString("\n")
	}
	sb.WriteString("Action: ")
	sb.WriteString(scene.Accion)
	sb.WriteString("\n")
	if scene.Lighting != "" {
		sb.WriteString("Lighting: ")
		sb.WriteString(scene.Lighting)
		sb.WriteString("\n")
	}
	if scene.Camera != "" {
		sb.WriteString("Camera: ")
		sb.WriteString(scene.Camera)
		sb.WriteString("\n")
	}
	if styleAttributes != "" {
		sb.WriteString("Style: ")
		sb.WriteString(styleAttributes)
		sb.WriteString("\n")
	}
	sb.WriteString(consistencyInstruction)

	return sb.String()
}

// FormatVideoPrompt собирает промпт для генерации видео.
// Порядок полей фиксирован: персонаж → сцена → фон → действие → диалог →
// стиль голоса → камера → атрибуты стиля → длительность → инструкция
// консистентности. Диалог и длительность присутствуют только в видео-промпте.
func FormatVideoPrompt(scene models.SceneConfig, characterDescription, styleAttributes string, durationSeconds int) string {
	var sb strings.Builder

	if characterDescription != "" {
		sb.WriteString("Character: ")
		sb.WriteString(characterDescription)
		sb.WriteString("\n")
	}
	sb.WriteString("Scene: ")
	sb.WriteString(scene.Escena)
	sb.WriteString("\n")
	if scene.Fondo != "" {
		sb.WriteString("Background: ")
		sb.WriteString(scene.Fondo)
		sb.WriteString("\n")
	}
	sb.WriteString("Action: ")
	sb.WriteString(scene.Accion)
	sb.WriteString("\n")
	if scene.Dialogo != "" {
		sb.WriteString("Dialogue: \"")
		sb.WriteString(scene.Dialogo)
		sb.WriteString("\"\n")
	}
	if scene.VoiceStyle != "" {
		sb.WriteString("Voice style: ")
		sb.WriteString(scene.VoiceStyle)
		sb.WriteString("\n")
	}
	if scene.Camera != "" {
		sb.WriteString("Camera: ")
		sb.WriteString(scene.Camera)
		sb.WriteString("\n")
	}
	if styleAttributes != "" {
		sb.WriteString("Style: ")
		sb.WriteString(styleAttributes)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Duration: %d seconds\n", durationSeconds))
	sb.WriteString(consistencyInstruction)

	return sb.String()
}
