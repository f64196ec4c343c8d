package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics содержит метрики HTTP API и доменных операций магазина.
// Nil-значение безопасно: все методы становятся no-op.
type ShopMetrics struct {
	// Заказы
	ordersCreated prometheus.Counter
	orderAmount   prometheus.Histogram
	totalMismatch prometheus.Counter

	// Каталог
	catalogOps       *prometheus.CounterVec
	cascadeDeleted   prometheus.Counter
	validationFailed *prometheus.CounterVec

	// Outbox
	outboxEnqueueFailed prometheus.Counter
	outboxPublish       *prometheus.CounterVec
	outboxPending       prometheus.Gauge
	outboxOldestAge     prometheus.Gauge

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// NewShopMetrics регистрирует метрики в глобальном реестре.
func NewShopMetrics() *ShopMetrics {
	return NewShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewShopMetricsWithRegisterer регистрирует метрики в переданном реестре (изолированные реестры в тестах).
func NewShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		ordersCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders persisted",
		})),
		orderAmount: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_order_total_amount",
			Help:    "Server-computed total amount of created orders",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		})),
		totalMismatch: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_total_mismatch_total",
			Help: "Orders whose client-supplied total differed from the computed total",
		})),
		catalogOps: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_operations_total",
			Help: "Successful store and product mutations",
		}, []string{"entity", "operation"})),
		cascadeDeleted: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cascade_deleted_products_total",
			Help: "Products removed together with their store",
		})),
		validationFailed: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_request_rejections_total",
			Help: "Requests rejected by validation, lookups or ownership checks",
		}, []string{"operation", "kind"})),
		outboxEnqueueFailed: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_outbox_enqueue_failures_total",
			Help: "Domain events that could not be written to the outbox",
		})),
		outboxPublish: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_publish_attempts_total",
			Help: "Outbox publish attempts grouped by result",
		}, []string{"result"})),
		outboxPending: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_outbox_pending_records",
			Help: "Pending records in the outbox",
		})),
		outboxOldestAge: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_outbox_oldest_pending_age_seconds",
			Help: "Age of the oldest pending outbox record",
		})),
		httpRequests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"})),
		httpDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "route"})),
		httpInFlight: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		})),
	}
}

// register регистрирует коллектор; при повторной регистрации возвращает уже существующий.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordOrderCreated учитывает сохранённый заказ и его сумму.
func (m *ShopMetrics) RecordOrderCreated(total float64) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderAmount.Observe(total)
}

// RecordTotalMismatch учитывает расхождение клиентской и серверной суммы.
func (m *ShopMetrics) RecordTotalMismatch() {
	if m == nil {
		return
	}
	m.totalMismatch.Inc()
}

// RecordCatalogOperation учитывает успешную мутацию магазина или товара.
func (m *ShopMetrics) RecordCatalogOperation(entity, operation string) {
	if m == nil {
		return
	}
	m.catalogOps.WithLabelValues(entity, operation).Inc()
}

// RecordCascadeDeleted учитывает товары, удалённые каскадом.
func (m *ShopMetrics) RecordCascadeDeleted(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.cascadeDeleted.Add(float64(count))
}

// RecordRejection учитывает отклонённый запрос; kind задаёт короткое имя вида ошибки.
func (m *ShopMetrics) RecordRejection(operation, kind string) {
	if m == nil {
		return
	}
	m.validationFailed.WithLabelValues(operation, kind).Inc()
}

// RecordOutboxEnqueueFailed учитывает событие, не попавшее в outbox.
func (m *ShopMetrics) RecordOutboxEnqueueFailed() {
	if m == nil {
		return
	}
	m.outboxEnqueueFailed.Inc()
}

// RecordOutboxPublish учитывает попытку публикации: sent, retry_error, failed, dlq_failed.
func (m *ShopMetrics) RecordOutboxPublish(result string) {
	if m == nil {
		return
	}
	m.outboxPublish.WithLabelValues(result).Inc()
}

// SetOutboxBacklog выставляет размер backlog и возраст самой старой записи.
func (m *ShopMetrics) SetOutboxBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.outboxPending.Set(float64(pending))
	m.outboxOldestAge.Set(oldestAge.Seconds())
}

// HTTPRequestStarted увеличивает число обрабатываемых запросов.
func (m *ShopMetrics) HTTPRequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

// HTTPRequestFinished фиксирует завершённый запрос.
func (m *ShopMetrics) HTTPRequestFinished(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
