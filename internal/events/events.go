package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TypeParticipationPlaced  = "participation.placed"
	TypeParticipationAmended = "participation.amended"
	TypeBetSettled           = "bet.settled"
	TypeBalanceAdjusted      = "balance.adjusted"
)

// Event is the envelope written to the topic. Key decides the partition.
type Event struct {
	Type       string          `json:"type"`
	Key        string          `json:"-"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event with the payload encoded as JSON.
func New(eventType, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: b}, nil
}

type ParticipationPlaced struct {
	BetID    uint            `json:"bet_id"`
	UserID   string          `json:"user_id"`
	OptionID int             `json:"option_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type ParticipationAmended struct {
	BetID       uint            `json:"bet_id"`
	UserID      string          `json:"user_id"`
	OldOptionID int             `json:"old_option_id"`
	NewOptionID int             `json:"new_option_id"`
	OldAmount   decimal.Decimal `json:"old_amount"`
	NewAmount   decimal.Decimal `json:"new_amount"`
}

type BetSettled struct {
	BetID             uint            `json:"bet_id"`
	WinningOptionID   int             `json:"winning_option_id"`
	TotalPool         decimal.Decimal `json:"total_pool"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	PrizePool         decimal.Decimal `json:"prize_pool"`
	WinnersCount      int             `json:"winners_count"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	RetainedAmount    decimal.Decimal `json:"retained_amount"`
}

type BalanceAdjusted struct {
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ActorID       string          `json:"actor_id"`
}

// Publisher delivers domain events after the transaction that produced them
// has committed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key),
			Value: b,
			Time:  e.OccurredAt,
		})
	}
	return p.Writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
func (Noop) Close() error                            { return nil }
