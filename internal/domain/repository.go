package domain

import "context"

// StoreRepository описывает требования к хранилищу магазинов.
type StoreRepository interface {
	// Create сохраняет новый магазин.
	Create(ctx context.Context, store Store) error
	// Get возвращает магазин по идентификатору или ErrStoreNotFound.
	Get(ctx context.Context, id string) (Store, error)
	// FindByNameLocation ищет магазин по точной паре name+location; ErrStoreNotFound, если его нет.
	FindByNameLocation(ctx context.Context, name, location string) (Store, error)
	// List возвращает все магазины в порядке создания.
	List(ctx context.Context) ([]Store, error)
	// Update перезаписывает name, location и updatedAt; ErrStoreNotFound, если записи нет.
	Update(ctx context.Context, store Store) error
	// Delete удаляет магазин; ErrStoreNotFound, если записи нет.
	Delete(ctx context.Context, id string) error
}

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// ListByStore возвращает товары магазина; пустой срез, если их нет.
	ListByStore(ctx context.Context, storeID string) ([]Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
	// DeleteByStore удаляет все товары магазина и возвращает их количество.
	DeleteByStore(ctx context.Context, storeID string) (int, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
}
