package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/domain/notify"
	logx "github.com/Miraines/gentlemale/backend/internal/infra/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// Consumer drains the mail queue and delivers each message with Sender.
type Consumer struct {
	url    string
	queue  string
	sender notify.Sender
	log    *zap.Logger
}

func NewConsumer(url, queue string, sender notify.Sender, log *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, sender: sender, log: log}
}

// Run reconnects with exponential backoff until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("mail consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("mail consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn("mail consumer: set QoS failed", zap.Error(err))
	}
	if _, err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info("mail consumer started", zap.String("queue", c.queue))
	for d := range msgs {
		err := c.handle(ctx, d.Body)
		switch {
		case err == nil:
			_ = d.Ack(false)
		case !retryable(err, d.Headers):
			c.log.Error("mail consumer: dropping message", zap.Error(err), zap.Int64("attempts", attempts(d.Headers)+1))
			_ = d.Ack(false)
		default:
			c.log.Warn("mail consumer: delivery failed, will retry", zap.Error(err), zap.Duration("retry_in", retryDelay))
			// rejected messages go through the retry queue
			_ = d.Nack(false, false)
		}
	}
	return errors.New("deliveries channel closed")
}

// errMalformed marks messages that no retry can deliver.
var errMalformed = errors.New("malformed mail message")

func retryable(err error, headers amqp.Table) bool {
	if errors.Is(err, errMalformed) {
		return false
	}
	return attempts(headers)+1 < maxAttempts
}

// attempts counts earlier rejections from the broker's x-death header.
func attempts(headers amqp.Table) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	var n int64
	for _, d := range deaths {
		t, ok := d.(amqp.Table)
		if !ok || t["reason"] != "rejected" {
			continue
		}
		if c, ok := t["count"].(int64); ok {
			n += c
		}
	}
	return n
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var m notify.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if m.To == "" {
		return fmt.Errorf("%w: no recipient", errMalformed)
	}
	if err := c.sender.SendEmail(ctx, m.Body, m.To, m.Subject); err != nil {
		return err
	}
	c.log.Debug("mail delivered", logx.Email(m.To))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
