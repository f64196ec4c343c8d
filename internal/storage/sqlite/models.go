package sqlite

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type storeModel struct {
	ID        string `gorm:"primarykey;size:36"`
	Name      string `gorm:"not null;index:idx_store_identity"`
	Location  string `gorm:"not null;index:idx_store_identity"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (storeModel) TableName() string { return "stores" }

func (m storeModel) toDomain() domain.Store {
	return domain.Store{
		ID:        m.ID,
		Name:      m.Name,
		Location:  m.Location,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type productModel struct {
	ID        string  `gorm:"primarykey;size:36"`
	StoreID   string  `gorm:"size:36;not null;index"`
	Name      string  `gorm:"not null"`
	Price     float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productModel) TableName() string { return "products" }

func (m productModel) toDomain() domain.Product {
	return domain.Product{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		StoreID:   m.StoreID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type orderItemDocument struct {
	ProductID string  `json:"product"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderModel struct {
	ID          string              `gorm:"primarykey;size:36"`
	UserName    string              `gorm:"not null"`
	StoreID     string              `gorm:"size:36;not null;index"`
	Items       []orderItemDocument `gorm:"serializer:json;not null"`
	TotalAmount float64             `gorm:"not null"`
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (orderModel) TableName() string { return "orders" }

func orderFromDomain(o domain.Order) orderModel {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDocument{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return orderModel{
		ID:          o.ID,
		UserName:    o.UserName,
		StoreID:     o.StoreID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		OrderDate:   o.OrderDate,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func (m orderModel) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, doc := range m.Items {
		items = append(items, domain.OrderItem{ProductID: doc.ProductID, Quantity: doc.Quantity, Price: doc.Price})
	}
	return domain.Order{
		ID:          m.ID,
		UserName:    m.UserName,
		StoreID:     m.StoreID,
		Items:       items,
		TotalAmount: m.TotalAmount,
		OrderDate:   m.OrderDate.UTC(),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	ID            string `gorm:"primarykey;size:36"`
	AggregateType string `gorm:"not null"`
	AggregateID   string `gorm:"not null"`
	EventType     string `gorm:"not null"`
	Payload       []byte
	Status        string `gorm:"not null;index"`
	AttemptCount  int    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (outboxModel) TableName() string { return "outbox_messages" }
