package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_lending/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	jsoniter "github.com/json-iterator/go"
)

const TopicBorrowEvents = "borrow.events"

// BorrowEvent is published after every committed borrow transition.
type BorrowEvent struct {
	BorrowID   string    `json:"borrow_id"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	BorrowerID string    `json:"borrower_id"`
	ItemID     string    `json:"item_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	At         time.Time `json:"at"`
}

// FromBorrow builds the event for a borrow that just went through action.
func FromBorrow(b *models.Borrow, action models.LogAction, actorID string) BorrowEvent {
	return BorrowEvent{
		BorrowID:   b.ID,
		Action:     string(action),
		Status:     string(b.Status),
		BorrowerID: b.BorrowerID,
		ItemID:     b.ItemID,
		ActorID:    actorID,
		At:         b.UpdatedAt,
	}
}

type Handler func(ctx context.Context, ev BorrowEvent) error

// Bus fans borrow events out in-process and, when brokers are configured, to Kafka.
type Bus struct {
	local    *gochannel.GoChannel
	external message.Publisher
	log      *slog.Logger
}

func NewBus(log *slog.Logger, kafkaBrokers []string) (*Bus, error) {
	if log == nil {
		log = slog.Default()
	}
	wmLog := watermill.NewSlogLogger(log)
	b := &Bus{
		local: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLog),
		log:   log,
	}
	if len(kafkaBrokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   kafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLog)
		if err != nil {
			_ = b.local.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		b.external = pub
		log.Info("borrow events forwarded to kafka", "brokers", kafkaBrokers)
	}
	return b, nil
}

func (b *Bus) Publish(ctx context.Context, ev BorrowEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := jsoniter.ConfigFastest.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("action", ev.Action)
	msg.Metadata.Set("borrow_id", ev.BorrowID)
	msg.SetContext(ctx)

	if err := b.local.Publish(TopicBorrowEvents, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	if b.external != nil {
		if err := b.external.Publish(TopicBorrowEvents, msg.Copy()); err != nil {
			// external forwarding is best effort
			b.log.Warn("kafka publish failed", "borrow_id", ev.BorrowID, "err", err)
		}
	}
	return nil
}

// Subscribe runs h for every event until ctx is done. Handler errors are logged
// and the message acked so a bad event cannot wedge the subscription.
func (b *Bus) Subscribe(ctx context.Context, name string, h Handler) error {
	msgs, err := b.local.Subscribe(ctx, TopicBorrowEvents)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	go func() {
		for msg := range msgs {
			var ev BorrowEvent
			if err := jsoniter.ConfigFastest.Unmarshal(msg.Payload, &ev); err != nil {
				b.log.Error("bad borrow event", "subscriber", name, "msg_id", msg.UUID, "err", err)
				msg.Ack()
				continue
			}
			if err := h(ctx, ev); err != nil {
				b.log.Error("borrow event handler failed",
					"subscriber", name, "borrow_id", ev.BorrowID, "action", ev.Action, "err", err)
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	var errs []error
	if b.external != nil {
		errs = append(errs, b.external.Close())
	}
	errs = append(errs, b.local.Close())
	return errors.Join(errs...)
}
