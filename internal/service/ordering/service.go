package ordering

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
)

// Service оформляет и читает заказы.
type Service struct {
	builder  *Builder
	orders   domain.OrderRepository
	recorder *events.Recorder
	metrics  *metrics.ShopMetrics
	logger   *log.Entry
}

// NewService создаёт сервис заказов. recorder и m могут быть nil.
func NewService(
	builder *Builder,
	orders domain.OrderRepository,
	recorder *events.Recorder,
	m *metrics.ShopMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		builder:  builder,
		orders:   orders,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

// Create проверяет заявку, сохраняет заказ с серверной суммой и ставит событие order.created.
func (s *Service) Create(ctx context.Context, sub Submission) (domain.Order, error) {
	draft, err := s.builder.Build(ctx, sub)
	if err != nil {
		if domain.IsClientError(err) {
			s.metrics.RecordRejection("create_order", domain.KindLabel(err))
			s.logger.WithError(err).WithField("store_id", sub.StoreID).Debug("order rejected")
		}
		return domain.Order{}, err
	}
	order := draft.Order

	if draft.TotalMismatch {
		s.metrics.RecordTotalMismatch()
		s.logger.WithFields(log.Fields{
			"store_id":       order.StoreID,
			"client_total":   *draft.ClientTotal,
			"computed_total": order.TotalAmount,
			"items":          len(order.Items),
		}).Warn("total amount mismatch, using computed total")
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	s.metrics.RecordOrderCreated(order.TotalAmount)
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"store_id":     order.StoreID,
		"total_amount": order.TotalAmount,
	}).Info("order created")

	s.recorder.Record(ctx, domain.AggregateOrder, order.ID, domain.EventTypeOrderCreated, domain.OrderCreatedPayload{
		OrderID:     order.ID,
		StoreID:     order.StoreID,
		UserName:    order.UserName,
		ItemCount:   len(order.Items),
		TotalAmount: order.TotalAmount,
		OrderDate:   order.OrderDate,
	})

	return order, nil
}

// Get возвращает сохранённый заказ. Некорректный идентификатор маскируется под NotFound.
func (s *Service) Get(ctx context.Context, rawID string) (domain.Order, error) {
	id, ok := domain.NormalizeID(rawID)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}
