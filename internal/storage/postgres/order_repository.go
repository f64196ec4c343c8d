package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderItemDocument — форма позиции внутри JSONB-колонки items.
type orderItemDocument struct {
	ProductID string  `json:"product"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Позиции хранятся документом в той же строке, что и заказ, поэтому запись атомарна без транзакции.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := encodeOrderItems(order.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_name, store_id, items, total_amount, order_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.UserName, order.StoreID, items,
		order.TotalAmount, order.OrderDate, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError(domain.ErrDuplicateEntity, "order id already exists")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		order domain.Order
		items []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_name, store_id, items, total_amount, order_date, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.UserName, &order.StoreID, &items,
		&order.TotalAmount, &order.OrderDate, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	order.Items, err = decodeOrderItems(items)
	if err != nil {
		return domain.Order{}, err
	}
	order.OrderDate = order.OrderDate.UTC()
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func encodeOrderItems(items []domain.OrderItem) ([]byte, error) {
	docs := make([]orderItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, orderItemDocument{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	return raw, nil
}

func decodeOrderItems(raw []byte) ([]domain.OrderItem, error) {
	var docs []orderItemDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	items := make([]domain.OrderItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.OrderItem{ProductID: doc.ProductID, Quantity: doc.Quantity, Price: doc.Price})
	}
	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
