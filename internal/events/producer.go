package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Type string

const (
	IndividualRegistered Type = "individual_registered"
	CompanyRegistered    Type = "company_registered"
	LoginSucceeded       Type = "login_succeeded"
	LoginFailed          Type = "login_failed"
	AccountLocked        Type = "account_locked"
	TokenRefreshed       Type = "token_refreshed"
	LoggedOut            Type = "logged_out"
)

// Event is an audit record of something the auth service did. It never
// carries secrets or refresh values.
type Event struct {
	Type        Type      `json:"type"`
	PrincipalID string    `json:"principal_id,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	IP          string    `json:"ip,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

// NewProducer returns an async writer: Publish only enqueues, delivery
// failures are logged from the completion callback.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	p := &Producer{
		topic: topic,
		log:   log.With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion:             p.completion,
	}
	return p
}

func (p *Producer) completion(messages []kafka.Message, err error) {
	if err != nil {
		p.log.Warn("kafka delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
		return
	}
	p.log.Debug("messages delivered", zap.Int("messages", len(messages)))
}

func (p *Producer) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func encode(e Event) (kafka.Message, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.PrincipalID),
		Value: data,
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
