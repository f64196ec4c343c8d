package domain

import (
	"errors"
	"math"
	"time"
)

// totalTolerance задаёт допустимую погрешность при сверке суммы с позициями.
const totalTolerance = 1e-9

var (
	errUserNameRequired = errors.New("user name is required")
	errStoreRequired    = errors.New("store id is required")
	errItemsRequired    = errors.New("order must contain at least one item")
	errTotalNegative    = errors.New("total amount must be non-negative")
	errItemQtyInvalid   = errors.New("item quantity must be greater than zero")
	errItemPriceInvalid = errors.New("item price must be non-negative")
	errItemProduct      = errors.New("item product id is required")
	errTotalMismatch    = errors.New("order total does not match items sum")
	errTotalNotFinite   = errors.New("order total must be a finite number")
)

// OrderItem — позиция заказа. Цена фиксируется на момент оформления.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     float64
}

// Subtotal возвращает стоимость позиции.
func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Order — неизменяемая запись заказа.
type Order struct {
	ID          string
	UserName    string
	StoreID     string
	Items       []OrderItem
	TotalAmount float64
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemsTotal считает сумму по позициям в порядке их следования.
func ItemsTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserName == "" {
		errs = append(errs, errUserNameRequired)
	}
	if o.StoreID == "" {
		errs = append(errs, errStoreRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, errItemsRequired)
	}
	if math.IsInf(o.TotalAmount, 0) || math.IsNaN(o.TotalAmount) {
		// Inf и NaN проходят мимо сравнений ниже, поэтому дальше не проверяем.
		return append(errs, errTotalNotFinite)
	}
	if o.TotalAmount < 0 {
		errs = append(errs, errTotalNegative)
	}

	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, errItemProduct)
		}
		if item.Quantity <= 0 {
			errs = append(errs, errItemQtyInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, errItemPriceInvalid)
		}
	}
	if math.Abs(ItemsTotal(o.Items)-o.TotalAmount) > totalTolerance {
		errs = append(errs, errTotalMismatch)
	}

	return errs
}
