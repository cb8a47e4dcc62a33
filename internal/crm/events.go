package crm

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced  = "OrderPlaced"
	EventOrderUpdated = "OrderUpdated"
	EventOrderDeleted = "OrderDeleted"
)

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

// EventSink receives domain events. Emitting is fire-and-forget.
type EventSink interface {
	Emit(ctx context.Context, eventType, key string, payload any)
}

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderEventPayload struct {
	OrderID    string    `json:"order_id"`
	ClientID   string    `json:"client_id"`
	SellerID   string    `json:"seller_id"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Items      []ItemQty `json:"items"`
}

func orderPayload(o *Order) OrderEventPayload {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	return OrderEventPayload{
		OrderID:    o.ID,
		ClientID:   o.ClientID,
		SellerID:   o.SellerID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		Items:      items,
	}
}
