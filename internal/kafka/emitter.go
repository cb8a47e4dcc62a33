package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Emitter wraps domain events into a v1 envelope and publishes them.
type Emitter struct {
	Producer *Producer
	Service  string
}

var _ crm.EventSink = (*Emitter)(nil)

func (e *Emitter) Emit(ctx context.Context, eventType, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "encode event payload", "event_type", eventType, "err", err)
		return
	}
	ev := crm.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: key,
		Payload:       body,
	}
	e.Producer.Publish(crm.PartitionKey(key), MustMarshal(ev),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
