package domain

import "time"

// Store — магазин, владелец товаров и заказов.
type Store struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameIdentity сравнивает пару name+location, по которой отсекаются дубликаты.
func (s Store) SameIdentity(name, location string) bool {
	return s.Name == name && s.Location == location
}
