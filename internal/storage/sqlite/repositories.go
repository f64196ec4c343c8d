package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// insertionOrder сохраняет порядок добавления: rowid в SQLite растёт монотонно.
const insertionOrder = "rowid"

type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository создаёт gorm-реализацию StoreRepository.
func NewStoreRepository(db *DB) domain.StoreRepository {
	return &storeRepository{db: db.gorm}
}

func (r *storeRepository) Create(ctx context.Context, store domain.Store) error {
	model := storeModel{
		ID:        store.ID,
		Name:      store.Name,
		Location:  store.Location,
		CreatedAt: store.CreatedAt,
		UpdatedAt: store.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "store id already exists")
		}
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

func (r *storeRepository) Get(ctx context.Context, id string) (domain.Store, error) {
	var model storeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Store{}, domain.ErrStoreNotFound
		}
		return domain.Store{}, fmt.Errorf("failed to find store: %w", err)
	}
	return model.toDomain(), nil
}

func (r *storeRepository) FindByNameLocation(ctx context.Context, name, location string) (domain.Store, error) {
	var model storeModel
	err := r.db.WithContext(ctx).
		Where("name = ? AND location = ?", name, location).
		Order(insertionOrder).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Store{}, domain.ErrStoreNotFound
		}
		return domain.Store{}, fmt.Errorf("failed to find store by name and location: %w", err)
	}
	return model.toDomain(), nil
}

func (r *storeRepository) List(ctx context.Context) ([]domain.Store, error) {
	var models []storeModel
	if err := r.db.WithContext(ctx).Order(insertionOrder).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	stores := make([]domain.Store, 0, len(models))
	for _, m := range models {
		stores = append(stores, m.toDomain())
	}
	return stores, nil
}

func (r *storeRepository) Update(ctx context.Context, store domain.Store) error {
	result := r.db.WithContext(ctx).Model(&storeModel{}).Where("id = ?", store.ID).Updates(map[string]any{
		"name":       store.Name,
		"location":   store.Location,
		"updated_at": store.UpdatedAt,
	})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *storeRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&storeModel{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создаёт gorm-реализацию ProductRepository.
func NewProductRepository(db *DB) domain.ProductRepository {
	return &productRepository{db: db.gorm}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	model := productModel{
		ID:        product.ID,
		StoreID:   product.StoreID,
		Name:      product.Name,
		Price:     product.Price,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "product id already exists")
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var model productModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to find product: %w", err)
	}
	return model.toDomain(), nil
}

func (r *productRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Product, error) {
	var models []productModel
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order(insertionOrder).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := make([]domain.Product, 0, len(models))
	for _, m := range models {
		products = append(products, m.toDomain())
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) error {
	// map вместо структуры: gorm пропускает нулевые поля структуры, а цена 0 допустима.
	result := r.db.WithContext(ctx).Model(&productModel{}).Where("id = ?", product.ID).Updates(map[string]any{
		"name":       product.Name,
		"price":      product.Price,
		"updated_at": product.UpdatedAt,
	})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&productModel{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteByStore(ctx context.Context, storeID string) (int, error) {
	result := r.db.WithContext(ctx).Delete(&productModel{}, "store_id = ?", storeID)
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to delete store products: %w", err)
	}
	return int(result.RowsAffected), nil
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт gorm-реализацию OrderRepository.
func NewOrderRepository(db *DB) domain.OrderRepository {
	return &orderRepository{db: db.gorm}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	model := orderFromDomain(order)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "order id already exists")
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var model orderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to find order: %w", err)
	}
	return model.toDomain(), nil
}

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository создаёт gorm-реализацию OutboxRepository.
func NewOutboxRepository(db *DB) domain.OutboxRepository {
	return &outboxRepository{db: db.gorm}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	model := outboxModel{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		Status:        "pending",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order(insertionOrder).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to pull pending outbox messages: %w", err)
	}

	result := make([]domain.OutboxMessage, 0, len(models))
	for _, m := range models {
		result = append(result, domain.OutboxMessage{
			ID:            m.ID,
			AggregateType: m.AggregateType,
			AggregateID:   m.AggregateID,
			EventType:     m.EventType,
			Payload:       m.Payload,
		})
	}
	return result, nil
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats

	var count int64
	if err := r.db.WithContext(ctx).Model(&outboxModel{}).Where("status = ?", "pending").Count(&count).Error; err != nil {
		return domain.OutboxStats{}, fmt.Errorf("failed to count pending outbox messages: %w", err)
	}
	stats.PendingCount = int(count)
	if count == 0 {
		return stats, nil
	}

	var oldest outboxModel
	if err := r.db.WithContext(ctx).Where("status = ?", "pending").Order(insertionOrder).First(&oldest).Error; err != nil {
		return domain.OutboxStats{}, fmt.Errorf("failed to load oldest outbox message: %w", err)
	}
	stats.OldestPendingAt = oldest.CreatedAt.UTC()
	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "sent")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "failed")
}

func (r *outboxRepository) markStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":        status,
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"updated_at":    time.Now().UTC(),
	})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to mark outbox message as %s: %w", status, err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

var (
	_ domain.StoreRepository   = (*storeRepository)(nil)
	_ domain.ProductRepository = (*productRepository)(nil)
	_ domain.OrderRepository   = (*orderRepository)(nil)
	_ domain.OutboxRepository  = (*outboxRepository)(nil)
)
