package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/domain/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher hands mail to a durable queue instead of sending it inline. It
// keeps one connection and redials when the broker dropped it.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

func (p *Publisher) SendEmail(ctx context.Context, body, to, subject string) error {
	payload, err := json.Marshal(notify.Message{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish mail: %w", err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

const (
	retryDelay  = 30 * time.Second
	maxAttempts = 10
)

func retryQueue(queue string) string { return queue + ".retry" }

// declare sets up queue and its retry queue. Rejected messages dead-letter
// into the retry queue, wait there for retryDelay and dead-letter back.
func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	retry := retryQueue(queue)
	if _, err := ch.QueueDeclare(retry, true, false, false, false, amqp.Table{
		"x-message-ttl":             int64(retryDelay / time.Millisecond),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare %s: %w", retry, err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": retry,
	})
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare %s: %w", queue, err)
	}
	return q, nil
}
