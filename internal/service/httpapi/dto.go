package httpapi

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
)

type storeRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

type productRequest struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price"`
}

// orderRequest разбирается нестрого: тип полей проверяет ordering.Builder, а не парсер тела.
type orderRequest struct {
	UserName    json.RawMessage `json:"userName"`
	StoreID     json.RawMessage `json:"storeId"`
	Items       json.RawMessage `json:"items"`
	TotalAmount json.RawMessage `json:"totalAmount"`
}

func (r orderRequest) submission() ordering.Submission {
	return ordering.Submission{
		UserName:    looseString(r.UserName),
		StoreID:     looseString(r.StoreID),
		Items:       r.Items,
		TotalAmount: looseNumber(r.TotalAmount),
	}
}

// looseString возвращает строку как есть, null и false как пустую строку, остальное как JSON-текст.
func looseString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	switch string(trimmed) {
	case "", "null", "false":
		return ""
	}
	return string(trimmed)
}

// looseNumber возвращает nil для всего, что не является JSON-числом.
// Клиентская сумма только сверяется с серверной, поэтому нечисловое значение просто игнорируется.
func looseNumber(raw json.RawMessage) *float64 {
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

type storeResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type productResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Store     string    `json:"store"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type orderItemResponse struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type orderResponse struct {
	ID          string              `json:"_id"`
	UserName    string              `json:"userName"`
	Store       string              `json:"store"`
	Items       []orderItemResponse `json:"items"`
	TotalAmount float64             `json:"totalAmount"`
	OrderDate   time.Time           `json:"orderDate"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type messageResponse struct {
	Msg    string         `json:"msg"`
	Errors map[string]any `json:"errors,omitempty"`
}

func toStoreResponse(s domain.Store) storeResponse {
	return storeResponse{ID: s.ID, Name: s.Name, Location: s.Location, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func toStoreResponses(stores []domain.Store) []storeResponse {
	out := make([]storeResponse, 0, len(stores))
	for _, s := range stores {
		out = append(out, toStoreResponse(s))
	}
	return out
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price, Store: p.StoreID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{Product: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return orderResponse{
		ID:          o.ID,
		UserName:    o.UserName,
		Store:       o.StoreID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		OrderDate:   o.OrderDate,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
