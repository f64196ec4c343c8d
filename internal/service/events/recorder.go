package events

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Recorder кладёт доменные события в outbox по принципу best effort:
// ошибка записи логируется и не прерывает операцию, породившую событие.
type Recorder struct {
	outbox  domain.OutboxRepository
	metrics *metrics.ShopMetrics
	logger  *log.Entry
}

// NewRecorder создаёт Recorder. Nil outbox превращает Record в no-op (Kafka не настроена).
func NewRecorder(outbox domain.OutboxRepository, m *metrics.ShopMetrics, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.New().WithField("component", "events")
	}
	return &Recorder{outbox: outbox, metrics: m, logger: logger}
}

// Enabled сообщает, пишутся ли события.
func (r *Recorder) Enabled() bool {
	return r != nil && r.outbox != nil
}

// Record сериализует payload и ставит событие в очередь публикации.
func (r *Recorder) Record(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	if !r.Enabled() {
		return
	}

	fields := log.Fields{
		"aggregate_type": aggregateType,
		"aggregate_id":   aggregateID,
		"event":          eventType,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Error("marshal event failed")
		r.metrics.RecordOutboxEnqueueFailed()
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := r.outbox.Enqueue(ctx, msg); err != nil {
		r.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
		r.metrics.RecordOutboxEnqueueFailed()
		return
	}
	r.logger.WithFields(fields).Debug("event enqueued")
}
