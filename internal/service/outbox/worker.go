package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

// Config задаёт параметры воркера. Нулевые значения заменяются значениями по умолчанию.
type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics подключает метрики публикации и backlog.
func WithMetrics(m *metrics.ShopMetrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithDLQPublisher задаёт publisher для событий, исчерпавших попытки.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) {
		w.dlq = publisher
	}
}

// WithConfig задаёт интервал опроса, размер батча и политику повторов.
func WithConfig(cfg Config) Option {
	return func(w *Worker) {
		if cfg.PollInterval > 0 {
			w.pollInterval = cfg.PollInterval
		}
		if cfg.BatchSize > 0 {
			w.batchSize = cfg.BatchSize
		}
		if cfg.MaxAttempts > 0 {
			w.maxAttempts = cfg.MaxAttempts
		}
		if cfg.RetryBaseDelay > 0 {
			w.retryBaseDelay = cfg.RetryBaseDelay
		}
	}
}

// WithRetryBaseDelay задаёт базовую задержку backoff; 0 отключает паузы между попытками.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay < 0 {
			delay = 0
		}
		w.retryBaseDelay = delay
	}
}

// WithClock подменяет источник времени (возраст backlog в тестах).
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// Worker переносит события магазина из outbox в брокер.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	metrics   *metrics.ShopMetrics
	logger    *log.Entry
	now       func() time.Time

	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт воркер поверх outbox-репозитория и publisher.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		logger:         log.WithField("component", "outbox-worker"),
		now:            time.Now,
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker disabled: repository or publisher is nil")
		return
	}

	w.logger.WithFields(log.Fields{
		"poll_interval": w.pollInterval.String(),
		"batch_size":    w.batchSize,
		"max_attempts":  w.maxAttempts,
	}).Info("outbox worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce публикует один батч pending-событий и возвращает число отправленных.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	w.refreshBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("pull pending outbox messages")
		return 0
	}

	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		entry := w.logger.WithFields(log.Fields{
			"outbox_id":    msg.ID,
			"event_type":   msg.EventType,
			"aggregate_id": msg.AggregateID,
		})

		if err := w.publishWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				// событие остаётся pending и уйдёт после рестарта
				break
			}
			entry.WithError(err).Error("outbox publish failed")
			w.metrics.RecordOutboxPublish("failed")

			if dlqErr := w.publishToDLQ(msg, err); dlqErr != nil {
				entry.WithError(dlqErr).Warn("dead-letter publish failed")
				w.metrics.RecordOutboxPublish("dlq_failed")
			}
			if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
				entry.WithError(markErr).Warn("mark outbox message failed")
			}
			continue
		}

		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("mark outbox message sent")
			continue
		}
		sent++
	}

	if len(batch) > 0 {
		w.refreshBacklog(ctx)
	}
	return sent
}

func (w *Worker) publishWithRetry(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.publisher.Publish(msg)
		if err == nil {
			w.metrics.RecordOutboxPublish("sent")
			return nil
		}
		lastErr = err
		w.metrics.RecordOutboxPublish("retry_error")

		if attempt == w.maxAttempts {
			break
		}
		delay := backoff(w.retryBaseDelay, attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *Worker) refreshBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("collect outbox backlog stats")
		return
	}
	var age time.Duration
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = w.now().Sub(stats.OldestPendingAt)
	}
	w.metrics.SetOutboxBacklog(stats.PendingCount, age)
}

// backoff удваивает базовую задержку на каждую попытку, не переполняя Duration.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	const maxDelay = time.Duration(1<<63 - 1)
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	return delay
}

func (w *Worker) publishToDLQ(msg domain.OutboxMessage, publishErr error) error {
	if w.dlq == nil {
		return nil
	}

	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(domain.DeadLetter{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishError:  publishErr.Error(),
		FailedAt:      w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	if err := w.dlq.Publish(domain.OutboxMessage{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       body,
	}); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
