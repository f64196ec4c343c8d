package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Типы событий, которые сервис кладёт в outbox.
const (
	EventTypeOrderCreated = "order.created"
	EventTypeStoreDeleted = "store.deleted"
)

// Типы агрегатов для outbox.
const (
	AggregateOrder = "order"
	AggregateStore = "store"
)

// OutboxPublisher публикует события из outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// DeadLetter — событие, которое не удалось опубликовать после всех попыток.
// Кладётся в DLQ-топик и читается утилитой повторной отправки.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"failed_at"`
}

// Message восстанавливает исходное outbox-событие.
func (d DeadLetter) Message() OutboxMessage {
	var payload []byte
	if len(d.Payload) > 0 && string(d.Payload) != "null" {
		payload = append([]byte(nil), d.Payload...)
	}
	return OutboxMessage{
		ID:            d.OutboxID,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		EventType:     d.EventType,
		Payload:       payload,
	}
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OrderCreatedPayload — тело события order.created.
type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	StoreID     string    `json:"store_id"`
	UserName    string    `json:"user_name"`
	ItemCount   int       `json:"item_count"`
	TotalAmount float64   `json:"total_amount"`
	OrderDate   time.Time `json:"order_date"`
}

// StoreDeletedPayload — тело события store.deleted.
type StoreDeletedPayload struct {
	StoreID         string `json:"store_id"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	ProductsDeleted int    `json:"products_deleted"`
}
