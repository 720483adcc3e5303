package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storyvideo-server/shared/messaging"
)

// Notifier определяет интерфейс для отправки уведомлений о ходе задачи.
type Notifier interface {
	Notify(ctx context.Context, payload messaging.NotificationPayload) error
}

// rabbitMQNotifier реализует Notifier для отправки сообщений в RabbitMQ.
type rabbitMQNotifier struct {
	channel   *amqp.Channel
	queueName string
	log       *zap.Logger
}

// NewRabbitMQNotifier создает новый экземпляр Notifier для RabbitMQ.
// Важно: предполагается, что канал уже открыт и будет закрыт в другом месте.
func NewRabbitMQNotifier(ch *amqp.Channel, queueName string, log *zap.Logger) (Notifier, error) {
	_, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось объявить очередь уведомлений '%s': %w", queueName, err)
	}
	log.Info("notification queue declared", zap.String("queue", queueName))

	return &rabbitMQNotifier{
		channel:   ch,
		queueName: queueName,
		log:       log.With(zap.String("component", "notifier")),
	}, nil
}

// Notify публикует уведомление в очередь RabbitMQ.
func (n *rabbitMQNotifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "storyvideo-worker",
			MessageId:    payload.TaskID + "-notif",
		},
	)
	if err != nil {
		return fmt.Errorf("ошибка публикации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	n.log.Debug("notification published",
		zap.String("task_id", payload.TaskID),
		zap.String("status", string(payload.Status)))
	return nil
}
