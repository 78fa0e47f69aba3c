package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	TopicUserCreated     = "accounts.user_created"
	TopicPasswordChanged = "accounts.password_changed"
	TopicUserDeleted     = "accounts.user_deleted"
)

// Topics lists every topic the account service publishes.
func Topics() []string {
	return []string{TopicUserCreated, TopicPasswordChanged, TopicUserDeleted}
}

// AccountEvent is the payload of every account topic.
type AccountEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	Role       int       `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits account events after the corresponding change commits.
// A nil *Publisher drops events.
type Publisher struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger *slog.Logger
}

// NewPublisher publishes to Kafka when brokers are given and to an
// in-process channel otherwise.
func NewPublisher(brokers []string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return NewInProcess(logger), nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}

	logger.Info("account events publishing to kafka", "brokers", brokers)
	return &Publisher{pub: pub, logger: logger}, nil
}

// NewInProcess returns a publisher backed by a gochannel pub/sub, whose
// subscriber side is available through Subscribe.
func NewInProcess(logger *slog.Logger) *Publisher {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return &Publisher{pub: ch, sub: ch, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, topic string, ev AccountEvent) error {
	if p == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("topic", topic)
	return p.pub.Publish(topic, msg)
}

// Emit publishes and only logs failures; the account change it reports has
// already been committed.
func (p *Publisher) Emit(ctx context.Context, topic string, ev AccountEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, ev); err != nil {
		p.logger.ErrorContext(ctx, "publish account event failed",
			"topic", topic,
			"user_id", ev.UserID.String(),
			"error", err,
		)
	}
}

// Subscribe is only available for in-process publishers.
func (p *Publisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if p == nil || p.sub == nil {
		return nil, fmt.Errorf("subscribe %s: publisher has no local subscriber", topic)
	}
	return p.sub.Subscribe(ctx, topic)
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.pub.Close()
}

// Decode parses the payload of an account event message.
func Decode(msg *message.Message) (AccountEvent, error) {
	var ev AccountEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode account event %s: %w", msg.UUID, err)
	}
	return ev, nil
}
