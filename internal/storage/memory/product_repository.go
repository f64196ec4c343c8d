package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRecord struct {
	product domain.Product
	seq     uint64
}

// productRepositoryInMemory — in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	seq   uint64
	items map[string]productRecord
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{items: make(map[string]productRecord)}
}

func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.NewValidationError(domain.ErrDuplicateEntity, "product id already exists")
	}
	r.seq++
	r.items[product.ID] = productRecord{product: product, seq: r.seq}
	return nil
}

func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return rec.product, nil
}

func (r *productRepositoryInMemory) ListByStore(_ context.Context, storeID string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]productRecord, 0)
	for _, rec := range r.items {
		if rec.product.BelongsTo(storeID) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	result := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.product)
	}
	return result, nil
}

// Update перезаписывает name, price и updatedAt. Принадлежность магазину не меняется.
func (r *productRepositoryInMemory) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	rec.product.Name = product.Name
	rec.product.Price = product.Price
	rec.product.UpdatedAt = product.UpdatedAt
	r.items[product.ID] = rec
	return nil
}

func (r *productRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *productRepositoryInMemory) DeleteByStore(_ context.Context, storeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, rec := range r.items {
		if rec.product.BelongsTo(storeID) {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
