package kafka

import (
	"errors"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxPublisher отправляет outbox-сообщения в один topic с идентификатором агрегата в качестве ключа.
type OutboxPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher создаёт publisher; пустой topic заменяется на TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxPublisher{producer: producer, topic: topic, now: time.Now}
}

// Topic возвращает topic назначения.
func (p *OutboxPublisher) Topic() string {
	return p.topic
}

// Publish публикует сообщение в конверте Envelope.
func (p *OutboxPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	headers := map[string]string{
		HeaderEventType:     msg.EventType,
		HeaderAggregateType: msg.AggregateType,
	}
	return p.producer.Publish(p.topic, key, NewEnvelope(msg, p.now()), headers)
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
