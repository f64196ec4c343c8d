package domain

import "time"

// Product — товар, привязанный к одному магазину.
type Product struct {
	ID        string
	Name      string
	Price     float64
	StoreID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelongsTo проверяет принадлежность товара магазину.
func (p Product) BelongsTo(storeID string) bool {
	return p.StoreID == storeID
}
