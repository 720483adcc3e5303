package messaging

// TaskType определяет тип запроса к генеративному провайдеру
type TaskType string

// Константы для типов задач генерации
const (
	TaskTypeScenePlan    TaskType = "scene_plan"    // Планирование одной сцены по идее пользователя
	TaskTypeStoryPlan    TaskType = "story_plan"    // Планирование многосегментной истории
	TaskTypeImage        TaskType = "image"         // Генерация изображения по конфигурации сцены
	TaskTypeVideo        TaskType = "video"         // Генерация одиночного видео-сегмента
	TaskTypeStoryVideo   TaskType = "story_video"   // Цепочка видео-сегментов по плану истории
	TaskTypeExtendedClip TaskType = "extended_clip" // Продление существующего клипа
)

// IsValidTaskType проверяет, является ли строка допустимым TaskType.
func IsValidTaskType(tt TaskType) bool {
	switch tt {
	case TaskTypeScenePlan, TaskTypeStoryPlan, TaskTypeImage, TaskTypeVideo, TaskTypeStoryVideo, TaskTypeExtendedClip:
		return true
	default:
		return false
	}
}

// GenerationTaskPayload - структура сообщения для задачи генерации
type GenerationTaskPayload struct {
	TaskID        string   `json:"taskId"`                  // Уникальный ID задачи
	UserID        string   `json:"userId"`                  // ID пользователя
	TaskType      TaskType `json:"taskType"`                // Тип задачи генерации
	UserInput     string   `json:"userInput"`               // Идея/запрос пользователя для планирования
	Title         string   `json:"title,omitempty"`         // Название, заданное пользователем
	StyleID       string   `json:"styleId,omitempty"`       // ID визуального стиля
	CharacterID   string   `json:"characterId,omitempty"`   // ID персонажа для консистентности
	SceneConfig   string   `json:"sceneConfig,omitempty"`   // JSON SceneConfig (для image/video задач)
	StoryPlan     string   `json:"storyPlan,omitempty"`     // JSON StoryPlan (для story_video)
	SegmentCount  int      `json:"segmentCount,omitempty"`  // Желаемое число сегментов истории
	SeedRecordID  string   `json:"seedRecordId,omitempty"`  // ID записи, чей результат сеет первый сегмент
	AspectRatio   string   `json:"aspectRatio,omitempty"`   // Соотношение сторон (16:9, 9:16)
	DurationHint  int      `json:"durationHint,omitempty"`  // Желаемая длительность сегмента (сек)
	GenerateAudio bool     `json:"generateAudio,omitempty"` // Генерировать ли аудиодорожку
}

// NotificationStatus определяет статус уведомления
type NotificationStatus string

const (
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusError   NotificationStatus = "error"
	NotificationStatusPartial NotificationStatus = "partial" // Цепочка прервана, но часть сегментов готова
)

// NotificationPayload - структура сообщения для уведомления пользователя
type NotificationPayload struct {
	TaskID        string             `json:"task_id"`                  // ID задачи, которая завершилась
	UserID        string             `json:"user_id"`                  // ID пользователя для отправки уведомления
	TaskType      TaskType           `json:"task_type"`                // Тип задачи, которая выполнялась
	Status        NotificationStatus `json:"status"`                   // Статус выполнения (success/error/partial)
	RecordID      string             `json:"record_id,omitempty"`      // ID записи в журнале генераций
	OutputURL     string             `json:"output_url,omitempty"`     // URL готового результата (при успехе)
	ResultJSON    string             `json:"result_json,omitempty"`    // JSON результата планирования (сцена или план истории)
	CostMXN       float64            `json:"cost_mxn,omitempty"`       // Списанная стоимость
	SegmentsDone  int                `json:"segments_done,omitempty"`  // Завершённые сегменты (для цепочек)
	SegmentsTotal int                `json:"segments_total,omitempty"` // Всего сегментов в плане
	ErrorDetails  string             `json:"error_details,omitempty"`  // Детали ошибки (при ошибке)
}
