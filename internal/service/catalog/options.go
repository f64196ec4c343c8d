package catalog

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
)

type options struct {
	logger   *log.Entry
	metrics  *metrics.ShopMetrics
	recorder *events.Recorder
	now      func() time.Time
}

// Option настраивает сервисы каталога.
type Option func(*options)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.ShopMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEvents включает запись доменных событий.
func WithEvents(r *events.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{
		logger: log.New().WithField("component", component),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// reject учитывает отклонённый клиентский запрос в метриках и возвращает ошибку без изменений.
func (o options) reject(operation string, err error) error {
	if err != nil {
		o.metrics.RecordRejection(operation, domain.KindLabel(err))
	}
	return err
}
