package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	msgStoreFieldsRequired = "Please provide name and location for the store"
	msgStoreDuplicate      = "Store already exists with this name and location"
	msgStoreNothingToApply = "Please provide name or location to update"
)

// StoreInput — данные для создания магазина.
type StoreInput struct {
	Name     string
	Location string
}

// StorePatch — частичное обновление магазина. Nil или пустая строка означает "не менять".
type StorePatch struct {
	Name     *string
	Location *string
}

// DeleteStoreResult описывает итог каскадного удаления.
type DeleteStoreResult struct {
	Store           domain.Store
	ProductsDeleted int
}

// StoreService реализует жизненный цикл магазинов.
type StoreService struct {
	stores   domain.StoreRepository
	products domain.ProductRepository
	opts     options
}

// NewStoreService создаёт сервис магазинов.
func NewStoreService(stores domain.StoreRepository, products domain.ProductRepository, opts ...Option) *StoreService {
	return &StoreService{
		stores:   stores,
		products: products,
		opts:     buildOptions("store-service", opts),
	}
}

// List возвращает все магазины.
func (s *StoreService) List(ctx context.Context) ([]domain.Store, error) {
	stores, err := s.stores.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// Create создаёт магазин, отклоняя точный дубликат пары name+location.
func (s *StoreService) Create(ctx context.Context, in StoreInput) (domain.Store, error) {
	const op = "create_store"

	name := strings.TrimSpace(in.Name)
	location := strings.TrimSpace(in.Location)
	if name == "" || location == "" {
		return domain.Store{}, s.opts.reject(op, domain.NewValidationError(domain.ErrMissingField, msgStoreFieldsRequired))
	}

	_, err := s.stores.FindByNameLocation(ctx, name, location)
	switch {
	case err == nil:
		return domain.Store{}, s.opts.reject(op, domain.NewValidationError(domain.ErrDuplicateEntity, msgStoreDuplicate))
	case !errors.Is(err, domain.ErrStoreNotFound):
		return domain.Store{}, fmt.Errorf("check duplicate store: %w", err)
	}

	now := s.opts.now()
	store := domain.Store{
		ID:        domain.NewID(),
		Name:      name,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return domain.Store{}, fmt.Errorf("create store: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("store", "create")
	s.opts.logger.WithFields(log.Fields{"store_id": store.ID, "name": store.Name}).Info("store created")
	return store, nil
}

// Update применяет переданные поля. Некорректный идентификатор маскируется под NotFound.
func (s *StoreService) Update(ctx context.Context, rawID string, patch StorePatch) (domain.Store, error) {
	const op = "update_store"

	id, ok := domain.NormalizeID(rawID)
	if !ok {
		return domain.Store{}, s.opts.reject(op, domain.ErrStoreNotFound)
	}

	name, hasName := nonEmpty(patch.Name)
	location, hasLocation := nonEmpty(patch.Location)
	if !hasName && !hasLocation {
		return domain.Store{}, s.opts.reject(op, domain.NewValidationError(domain.ErrNoFieldsToUpdate, msgStoreNothingToApply))
	}

	store, err := s.stores.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return domain.Store{}, s.opts.reject(op, err)
		}
		return domain.Store{}, fmt.Errorf("load store: %w", err)
	}

	if hasName {
		store.Name = name
	}
	if hasLocation {
		store.Location = location
	}
	store.UpdatedAt = s.opts.now()

	if err := s.stores.Update(ctx, store); err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return domain.Store{}, s.opts.reject(op, err)
		}
		return domain.Store{}, fmt.Errorf("update store: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("store", "update")
	return store, nil
}

// Delete удаляет магазин вместе с его товарами. Каскад не атомарен: первая ошибка возвращается как есть.
func (s *StoreService) Delete(ctx context.Context, rawID string) (DeleteStoreResult, error) {
	const op = "delete_store"

	id, ok := domain.NormalizeID(rawID)
	if !ok {
		return DeleteStoreResult{}, s.opts.reject(op, domain.ErrStoreNotFound)
	}

	store, err := s.stores.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return DeleteStoreResult{}, s.opts.reject(op, err)
		}
		return DeleteStoreResult{}, fmt.Errorf("load store: %w", err)
	}

	deleted, err := s.products.DeleteByStore(ctx, store.ID)
	if err != nil {
		return DeleteStoreResult{}, fmt.Errorf("delete store products: %w", err)
	}
	s.opts.metrics.RecordCascadeDeleted(deleted)

	if err := s.stores.Delete(ctx, store.ID); err != nil {
		s.opts.logger.WithError(err).WithFields(log.Fields{
			"store_id":         store.ID,
			"products_deleted": deleted,
		}).Error("store delete failed after products were removed")
		return DeleteStoreResult{}, fmt.Errorf("delete store: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("store", "delete")
	s.opts.logger.WithFields(log.Fields{
		"store_id":         store.ID,
		"products_deleted": deleted,
	}).Info("store deleted")

	s.opts.recorder.Record(ctx, domain.AggregateStore, store.ID, domain.EventTypeStoreDeleted, domain.StoreDeletedPayload{
		StoreID:         store.ID,
		Name:            store.Name,
		Location:        store.Location,
		ProductsDeleted: deleted,
	})

	return DeleteStoreResult{Store: store, ProductsDeleted: deleted}, nil
}

// nonEmpty возвращает обрезанное значение и признак того, что поле передано.
func nonEmpty(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*v)
	return trimmed, trimmed != ""
}
