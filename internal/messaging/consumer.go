package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storyvideo-server/shared/messaging"
)

// TaskHandlerFunc обрабатывает одну задачу генерации.
// Возвращённая ошибка отправляет сообщение в DLQ (без повторной постановки:
// оплачиваемые вызовы нельзя бесконтрольно повторять).
type TaskHandlerFunc func(ctx context.Context, payload messaging.GenerationTaskPayload) error

// TaskConsumer читает задачи генерации из RabbitMQ.
type TaskConsumer struct {
	conn    *amqp.Connection
	handler TaskHandlerFunc
	log     *zap.Logger
	channel *amqp.Channel
	done    chan struct{}
}

func NewTaskConsumer(conn *amqp.Connection, handler TaskHandlerFunc, log *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		conn:    conn,
		handler: handler,
		log:     log.Named("TaskConsumer"),
		done:    make(chan struct{}),
	}
}

// Start объявляет топологию (DLX, DLQ, основную очередь) и запускает
// обработку сообщений в отдельной горутине.
func (c *TaskConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		_ = c.channel.Close()
		return err
	}

	// По одной задаче за раз: задачи долгие и дорогие.
	if err := c.channel.Qos(1, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		messaging.GenerationTaskQueueName,
		"",    // consumer tag
		false, // auto-ack: подтверждаем вручную после обработки
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("task consumer started", zap.String("queue", messaging.GenerationTaskQueueName))

	go c.consumeLoop(ctx, msgs)
	return nil
}

func (c *TaskConsumer) declareTopology() error {
	if err := c.channel.ExchangeDeclare(
		messaging.TaskDLXName,
		"direct",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare DLX: %w", err)
	}

	if _, err := c.channel.QueueDeclare(
		messaging.GenerationTaskDLQName,
		true, false, false, false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Ключ маршрутизации DLQ — имя основной очереди.
	if err := c.channel.QueueBind(
		messaging.GenerationTaskDLQName,
		messaging.GenerationTaskQueueName,
		messaging.TaskDLXName,
		false, nil,
	); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	if _, err := c.channel.QueueDeclare(
		messaging.GenerationTaskQueueName,
		true, false, false, false,
		amqp.Table{
			"x-dead-letter-exchange":    messaging.TaskDLXName,
			"x-dead-letter-routing-key": messaging.GenerationTaskQueueName,
		},
	); err != nil {
		return fmt.Errorf("failed to declare task queue: %w", err)
	}
	return nil
}

func (c *TaskConsumer) consumeLoop(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic recovered in task consumer", zap.Any("panic", r))
		}
		close(c.done)
		if c.channel != nil {
			_ = c.channel.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("task consumer stopping: context cancelled")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn("task consumer stopping: delivery channel closed")
				return
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

func (c *TaskConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var payload messaging.GenerationTaskPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.log.Error("malformed task payload, sending to DLQ", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	if !messaging.IsValidTaskType(payload.TaskType) {
		c.log.Error("unknown task type, sending to DLQ",
			zap.String("task_id", payload.TaskID),
			zap.String("task_type", string(payload.TaskType)))
		_ = msg.Nack(false, false)
		return
	}

	if err := c.handler(ctx, payload); err != nil {
		c.log.Error("task handling failed, sending to DLQ",
			zap.String("task_id", payload.TaskID),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

// Done возвращает канал, закрываемый после остановки потребителя.
func (c *TaskConsumer) Done() <-chan struct{} {
	return c.done
}
