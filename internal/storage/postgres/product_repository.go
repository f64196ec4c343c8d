package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, store_id, name, price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.StoreID, product.Name, product.Price, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "product id already exists")
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, price, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)
	return scanProduct(row)
}

func (r *productRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, store_id, name, price, created_at, updated_at
		FROM products
		WHERE store_id = $1
		ORDER BY created_at, id
	`, storeID)
	if err != nil {
		if isMalformedID(err) {
			return []domain.Product{}, nil
		}
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2,
		    price = $3,
		    updated_at = $4
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.UpdatedAt)
	if err != nil {
		if isMalformedID(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) DeleteByStore(ctx context.Context, storeID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE store_id = $1`, storeID)
	if err != nil {
		return 0, fmt.Errorf("delete store products: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(&product.ID, &product.StoreID, &product.Name, &product.Price, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
