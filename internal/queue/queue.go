package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"

	"github.com/rabbitmq/amqp091-go"
)

const (
	Exchange    = "pubsub_exchange"
	StatusTopic = "graph.status"
)

// Channel is the part of *amqp091.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return conn, nil
}

// SetupExchange declares the topic exchange status events go to.
func SetupExchange(ch Channel) error {
	err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}

	return nil
}

func PublishTopic(ctx context.Context, ch Channel, topic string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.PublishWithContext(
		ctx,
		Exchange,
		topic,
		false,
		false,
		publishing,
	)
}

// StatusPublisher publishes finalization status transitions to StatusTopic.
// It implements session.StatusNotifier.
type StatusPublisher struct {
	// amqp channels must not be used by concurrent publishers
	mu sync.Mutex
	ch Channel
}

func NewStatusPublisher(ch Channel) (*StatusPublisher, error) {
	if err := SetupExchange(ch); err != nil {
		return nil, err
	}
	return &StatusPublisher{ch: ch}, nil
}

func (p *StatusPublisher) NotifyStatus(ctx context.Context, st session.GraphStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := PublishTopic(ctx, p.ch, StatusTopic, data); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	logger.Debug("[Queue] Published status", "topic", StatusTopic, "status", st.Status, "progress", st.Progress)

	return nil
}
