package messaging

// Exchange Names
const (
	ClientUpdateExchangeName = "client_updates_exchange"
	TaskDLXName              = "generation_tasks_dlx" // Dead letter exchange для задач генерации
)

// Queue Names
const (
	GenerationTaskQueueName = "generation_tasks_queue"
	GenerationTaskDLQName   = "generation_tasks_dlq"
	ClientUpdateQueueName   = "client_updates_queue"
)
