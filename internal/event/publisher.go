package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"quizwhiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "quiz.events"

	RoundRevealed = "quiz.round.revealed"
	GameFinished  = "quiz.game.finished"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	QuizID     string    `json:"quizId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends quiz lifecycle events to a RabbitMQ topic exchange.
// A publisher built without a URL is disabled and only logs.
type Publisher struct {
	conn    *amqp091.Connection
	channel channel
	enabled bool
	now     func() time.Time
}

func NewPublisher(rabbitURL string) (*Publisher, error) {
	if rabbitURL == "" {
		log.Println("rabbitmq url is empty, event publishing is disabled")
		return &Publisher{enabled: false, now: time.Now}, nil
	}

	conn, err := amqp091.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, enabled: true, now: time.Now}, nil
}

func (p *Publisher) PublishRoundRevealed(ctx context.Context, summary domain.RoundSummary) error {
	return p.publish(ctx, RoundRevealed, summary.QuizID, summary)
}

func (p *Publisher) PublishGameFinished(ctx context.Context, result domain.GameResult) error {
	return p.publish(ctx, GameFinished, result.QuizID, result)
}

func (p *Publisher) publish(ctx context.Context, routingKey, quizID string, data any) error {
	if !p.enabled {
		log.Printf("event publishing disabled, skipping %s for quiz %s", routingKey, quizID)
		return nil
	}

	body, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		QuizID:     quizID,
		OccurredAt: p.now(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	log.Printf("published %s for quiz %s", routingKey, quizID)
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Printf("close rabbitmq channel: %v", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
