// Package events carries record lifecycle notifications over an in-process
// Watermill pub/sub. The bus decouples the request path from consumers such
// as the metrics pump: publishing is best-effort and never fails a request.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/podmeta/podmeta/internal/domain"
)

// TopicRecordLifecycle carries every create/update/delete notification.
const TopicRecordLifecycle = "records.lifecycle"

// Kind tags one lifecycle transition.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event is the JSON payload published per transition.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus wraps a Watermill gochannel pub/sub. It satisfies app.EventSink.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
	now    func() time.Time
}

// NewBus constructs an in-process bus. A nil logger falls back to
// slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	ps := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)
	return &Bus{pubsub: ps, logger: logger.With("domain", "events"), now: time.Now}
}

// RecordCreated publishes a created event.
func (b *Bus) RecordCreated(ctx context.Context, id domain.RecordID) {
	b.publish(ctx, KindCreated, id)
}

// RecordUpdated publishes an updated event.
func (b *Bus) RecordUpdated(ctx context.Context, id domain.RecordID) {
	b.publish(ctx, KindUpdated, id)
}

// RecordDeleted publishes a deleted event.
func (b *Bus) RecordDeleted(ctx context.Context, id domain.RecordID) {
	b.publish(ctx, KindDeleted, id)
}

func (b *Bus) publish(_ context.Context, kind Kind, id domain.RecordID) {
	payload, err := json.Marshal(Event{ID: id.String(), Kind: kind, OccurredAt: b.now().UTC()})
	if err != nil {
		b.logger.Error("marshal event", "kind", string(kind), "error", err)
		return
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := b.pubsub.Publish(TopicRecordLifecycle, msg); err != nil {
		b.logger.Error("publish event", "kind", string(kind), "error", err)
	}
}

// Subscribe returns a channel of decoded lifecycle events. Messages are
// acked once decoded; undecodable payloads are acked and dropped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicRecordLifecycle)
	if err != nil {
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Error("decode event", "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the underlying pub/sub down, closing subscriber channels.
func (b *Bus) Close() error { return b.pubsub.Close() }
