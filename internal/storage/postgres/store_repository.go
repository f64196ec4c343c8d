package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type storeRepository struct {
	db *sql.DB
}

// NewStoreRepository создаёт PostgreSQL-реализацию StoreRepository.
func NewStoreRepository(store *Store) domain.StoreRepository {
	return &storeRepository{db: store.DB()}
}

func (r *storeRepository) Create(ctx context.Context, store domain.Store) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, location, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, store.ID, store.Name, store.Location, store.CreatedAt, store.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "store id already exists")
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (r *storeRepository) Get(ctx context.Context, id string) (domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, created_at, updated_at
		FROM stores
		WHERE id = $1
	`, id)
	return scanStore(row)
}

func (r *storeRepository) FindByNameLocation(ctx context.Context, name, location string) (domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, created_at, updated_at
		FROM stores
		WHERE name = $1 AND location = $2
		ORDER BY created_at
		LIMIT 1
	`, name, location)
	return scanStore(row)
}

func (r *storeRepository) List(ctx context.Context) ([]domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, location, created_at, updated_at
		FROM stores
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store rows: %w", err)
	}
	return stores, nil
}

func (r *storeRepository) Update(ctx context.Context, store domain.Store) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE stores
		SET name = $2,
		    location = $3,
		    updated_at = $4
		WHERE id = $1
	`, store.ID, store.Name, store.Location, store.UpdatedAt)
	if err != nil {
		if isMalformedID(err) {
			return domain.ErrStoreNotFound
		}
		return fmt.Errorf("update store: %w", err)
	}
	return requireAffected(res, domain.ErrStoreNotFound)
}

func (r *storeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return domain.ErrStoreNotFound
		}
		return fmt.Errorf("delete store: %w", err)
	}
	return requireAffected(res, domain.ErrStoreNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (domain.Store, error) {
	var store domain.Store
	err := row.Scan(&store.ID, &store.Name, &store.Location, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Store{}, domain.ErrStoreNotFound
		}
		return domain.Store{}, fmt.Errorf("scan store: %w", err)
	}
	store.CreatedAt = store.CreatedAt.UTC()
	store.UpdatedAt = store.UpdatedAt.UTC()
	return store, nil
}

// requireAffected превращает пустой UPDATE/DELETE в notFound.
func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.StoreRepository = (*storeRepository)(nil)
