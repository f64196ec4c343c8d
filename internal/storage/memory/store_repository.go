package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type storeRecord struct {
	store domain.Store
	seq   uint64
}

// storeRepositoryInMemory — in-memory реализация StoreRepository.
type storeRepositoryInMemory struct {
	mu    sync.RWMutex
	seq   uint64
	items map[string]storeRecord
}

// NewStoreRepository возвращает in-memory репозиторий магазинов.
func NewStoreRepository() domain.StoreRepository {
	return &storeRepositoryInMemory{items: make(map[string]storeRecord)}
}

func (r *storeRepositoryInMemory) Create(_ context.Context, store domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[store.ID]; exists {
		return domain.NewValidationError(domain.ErrDuplicateEntity, "store id already exists")
	}
	r.seq++
	r.items[store.ID] = storeRecord{store: store, seq: r.seq}
	return nil
}

func (r *storeRepositoryInMemory) Get(_ context.Context, id string) (domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	return rec.store, nil
}

func (r *storeRepositoryInMemory) FindByNameLocation(_ context.Context, name, location string) (domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.items {
		if rec.store.SameIdentity(name, location) {
			return rec.store, nil
		}
	}
	return domain.Store{}, domain.ErrStoreNotFound
}

// List возвращает магазины в порядке добавления.
func (r *storeRepositoryInMemory) List(_ context.Context) ([]domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]storeRecord, 0, len(r.items))
	for _, rec := range r.items {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	result := make([]domain.Store, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.store)
	}
	return result, nil
}

func (r *storeRepositoryInMemory) Update(_ context.Context, store domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[store.ID]
	if !ok {
		return domain.ErrStoreNotFound
	}
	rec.store.Name = store.Name
	rec.store.Location = store.Location
	rec.store.UpdatedAt = store.UpdatedAt
	r.items[store.ID] = rec
	return nil
}

func (r *storeRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrStoreNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.StoreRepository = (*storeRepositoryInMemory)(nil)
