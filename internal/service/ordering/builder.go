package ordering

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// mismatchTolerance: расхождение клиентской суммы, после которого пишется предупреждение.
const mismatchTolerance = 0.01

const (
	msgRequiredFields = "Please provide all required fields: userName, storeId and a non-empty items array"
	msgStoreIDFormat  = "Invalid Store ID format"
	msgItemsNotArray  = "Validation Error: items field must be an array"
	msgItemsEmpty     = "Validation Error: items array cannot be empty"
	msgItemInvalidFmt = "Invalid item structure/quantity found in order: %s"
	msgProductIDFmt   = "Invalid Product ID format in order item: %s"
	maxItemQuantity   = math.MaxInt32
)

// Submission — заявка на заказ в том виде, в каком её прислал клиент.
// Items остаётся сырым JSON, чтобы отличать "не массив" от "пустого массива" и сообщать о конкретной позиции.
type Submission struct {
	UserName    string
	StoreID     string
	Items       json.RawMessage
	TotalAmount *float64
}

// Draft — проверенный заказ, ещё не сохранённый в хранилище.
type Draft struct {
	Order domain.Order
	// Сумма, присланная клиентом (nil, если не передана).
	ClientTotal *float64
	// Клиентская сумма отличается от серверной больше допустимого.
	TotalMismatch bool
}

// itemPayload — ожидаемая форма позиции: {"product": {"_id": "...", "price": 1.5}, "quantity": 2}.
type itemPayload struct {
	Product *struct {
		ID    *string  `json:"_id"`
		Price *float64 `json:"price"`
	} `json:"product"`
	Quantity *float64 `json:"quantity"`
}

// Builder проверяет заявку против данных магазина и собирает неизменяемый заказ с серверной суммой.
// Сам Builder ничего не сохраняет.
type Builder struct {
	stores domain.StoreRepository
	now    func() time.Time
	newID  func() string
}

// NewBuilder создаёт Builder поверх репозитория магазинов.
func NewBuilder(stores domain.StoreRepository) *Builder {
	return &Builder{
		stores: stores,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  domain.NewID,
	}
}

// Build выполняет проверки по порядку и останавливается на первой ошибке.
func (b *Builder) Build(ctx context.Context, sub Submission) (Draft, error) {
	userName := strings.TrimSpace(sub.UserName)
	if userName == "" {
		return Draft{}, domain.NewFieldError(domain.ErrMissingField, "userName", msgRequiredFields, "is required")
	}

	rawStoreID := strings.TrimSpace(sub.StoreID)
	if rawStoreID == "" {
		return Draft{}, domain.NewFieldError(domain.ErrMissingField, "storeId", msgRequiredFields, "is required")
	}
	storeID, ok := domain.NormalizeID(rawStoreID)
	if !ok {
		return Draft{}, domain.NewFieldError(domain.ErrInvalidIdentifier, "storeId", msgStoreIDFormat, sub.StoreID)
	}

	rawItems, err := splitItems(sub.Items)
	if err != nil {
		return Draft{}, err
	}

	if _, err := b.stores.Get(ctx, storeID); err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return Draft{}, err
		}
		return Draft{}, fmt.Errorf("load store: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(rawItems))
	var running float64
	for i, raw := range rawItems {
		item, err := parseItem(i, raw)
		if err != nil {
			return Draft{}, err
		}
		// Сумма, вышедшая за пределы float64, не сериализуется в JSON.
		running += item.Subtotal()
		if !isFinite(running) {
			return Draft{}, invalidItem(i, raw)
		}
		items = append(items, item)
	}

	now := b.now()
	order := domain.Order{
		ID:          b.newID(),
		UserName:    userName,
		StoreID:     storeID,
		Items:       items,
		TotalAmount: domain.ItemsTotal(items),
		OrderDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return Draft{}, fmt.Errorf("order invariants violated: %w", errors.Join(errs...))
	}

	draft := Draft{Order: order, ClientTotal: sub.TotalAmount}
	if sub.TotalAmount != nil && math.Abs(*sub.TotalAmount-order.TotalAmount) > mismatchTolerance {
		draft.TotalMismatch = true
	}
	return draft, nil
}

// splitItems проверяет, что items является непустым JSON-массивом, и возвращает его элементы без разбора.
func splitItems(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.NewFieldError(domain.ErrInvalidShape, "items", msgItemsNotArray, nil)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, domain.NewFieldError(domain.ErrInvalidShape, "items", msgItemsNotArray, nil)
	}
	if len(items) == 0 {
		return nil, domain.NewFieldError(domain.ErrInvalidShape, "items", msgItemsEmpty, nil)
	}
	return items, nil
}

// parseItem разбирает одну позицию. Цена берётся у клиента как есть: это зафиксированная граница доверия.
func parseItem(index int, raw json.RawMessage) (domain.OrderItem, error) {
	field := fmt.Sprintf("items[%d]", index)
	invalid := func() error { return invalidItem(index, raw) }

	var payload itemPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.OrderItem{}, invalid()
	}
	if payload.Product == nil || payload.Product.ID == nil || *payload.Product.ID == "" ||
		payload.Product.Price == nil || payload.Quantity == nil {
		return domain.OrderItem{}, invalid()
	}

	qty := *payload.Quantity
	if qty < 1 || qty != math.Trunc(qty) || qty > maxItemQuantity {
		return domain.OrderItem{}, invalid()
	}
	price := *payload.Product.Price
	if price < 0 || !isFinite(price*qty) {
		return domain.OrderItem{}, invalid()
	}

	productID, ok := domain.NormalizeID(*payload.Product.ID)
	if !ok {
		return domain.OrderItem{}, domain.NewFieldError(
			domain.ErrInvalidIdentifier, field, fmt.Sprintf(msgProductIDFmt, *payload.Product.ID), *payload.Product.ID,
		)
	}

	return domain.OrderItem{
		ProductID: productID,
		Quantity:  int(qty),
		Price:     *payload.Product.Price,
	}, nil
}

func invalidItem(index int, raw json.RawMessage) error {
	return domain.NewFieldError(
		domain.ErrInvalidItem, fmt.Sprintf("items[%d]", index), fmt.Sprintf(msgItemInvalidFmt, compact(raw)), raw,
	)
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
