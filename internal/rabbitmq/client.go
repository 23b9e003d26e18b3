package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AuthService/internal/config"
	"github.com/GoArmGo/AuthService/internal/messaging/payloads"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client — клиент RabbitMQ для очереди писем сброса пароля.
// Реализует ports.PasswordResetNotifier (публикация) и ports.PasswordResetConsumer (воркер).
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

// NewClient подключается к брокеру и объявляет durable-очередь
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	log := logger.With("component", "rabbitmq")

	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// идемпотентно: существующая очередь с теми же параметрами не пересоздаётся
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.RabbitMQ.RabbitMQQueueName, err)
	}

	log.Info("connected to RabbitMQ", "queue", q.Name, "messages", q.Messages)

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   q,
		logger:  log,
	}, nil
}

// Close закрывает канал и соединение
func (c *Client) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("error closing RabbitMQ connection", "error", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
}

// NotifyPasswordReset публикует задачу на отправку письма; доставит воркер.
func (c *Client) NotifyPasswordReset(ctx context.Context, payload payloads.PasswordResetPayload) error {
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish password reset for %s: %w", payload.Username, err)
	}

	c.logger.Info("password reset queued", "queue", c.queue.Name, "username", payload.Username)
	return nil
}

// StartConsumingPasswordResets регистрирует потребителя и обрабатывает сообщения в фоне до отмены ctx.
// Нечитаемые сообщения отбрасываются, ошибка handler возвращает сообщение в очередь.
func (c *Client) StartConsumingPasswordResets(ctx context.Context, handler func(context.Context, payloads.PasswordResetPayload) error) error {
	msgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("consumer registered, waiting for messages", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("delivery channel closed, stopping consumer")
					return
				}
				settle(ctx, c.logger, msg.Body, msg, handler)
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping consumer")
				return
			}
		}
	}()

	return nil
}

// acknowledger — часть amqp.Delivery, нужная для подтверждения
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle декодирует сообщение, вызывает handler и подтверждает доставку по результату
func settle(ctx context.Context, log *slog.Logger, body []byte, ack acknowledger, handler func(context.Context, payloads.PasswordResetPayload) error) {
	payload, err := decodePayload(body)
	if err != nil {
		log.Error("dropping undecodable message", "error", err)
		if err := ack.Nack(false, false); err != nil {
			log.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := handler(ctx, payload); err != nil {
		log.Error("failed to process password reset, requeueing", "username", payload.Username, "error", err)
		if err := ack.Nack(false, true); err != nil {
			log.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := ack.Ack(false); err != nil {
		log.Error("failed to ack message", "error", err)
		return
	}
	log.Info("password reset processed", "username", payload.Username)
}

func encodePayload(p payloads.PasswordResetPayload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload to JSON: %w", err)
	}
	return body, nil
}

func decodePayload(body []byte) (payloads.PasswordResetPayload, error) {
	var p payloads.PasswordResetPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("unmarshal password reset payload: %w", err)
	}
	if p.Email == "" || p.ResetLink == "" {
		return p, errors.New("password reset payload missing email or link")
	}
	return p, nil
}
