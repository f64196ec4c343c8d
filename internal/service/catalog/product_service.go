package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	msgProductFieldsRequired = "Please provide name and price for the product"
	msgPriceNegative         = "Price cannot be negative"
	msgProductNothingToApply = "Please provide name or price to update"
	msgProductIDsInvalid     = "Invalid Store or Product ID format"
	msgProductForeignStore   = "Forbidden: Product does not belong to this store"
)

// ProductInput — данные для создания товара. Price nil означает, что цена не передана.
type ProductInput struct {
	Name  string
	Price *float64
}

// ProductPatch задаёт частичное обновление товара.
type ProductPatch struct {
	Name  *string
	Price *float64
}

// ProductService реализует жизненный цикл товаров внутри магазина.
type ProductService struct {
	stores   domain.StoreRepository
	products domain.ProductRepository
	opts     options
}

// NewProductService создаёт сервис товаров.
func NewProductService(stores domain.StoreRepository, products domain.ProductRepository, opts ...Option) *ProductService {
	return &ProductService{
		stores:   stores,
		products: products,
		opts:     buildOptions("product-service", opts),
	}
}

// ListByStore возвращает товары магазина. Для неизвестного, но корректного идентификатора возвращается пустой список.
func (s *ProductService) ListByStore(ctx context.Context, rawStoreID string) ([]domain.Product, error) {
	storeID, ok := domain.NormalizeID(rawStoreID)
	if !ok {
		return nil, s.opts.reject("list_products", domain.ErrStoreNotFound)
	}

	products, err := s.products.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Create создаёт товар в существующем магазине.
func (s *ProductService) Create(ctx context.Context, rawStoreID string, in ProductInput) (domain.Product, error) {
	const op = "create_product"

	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil {
		return domain.Product{}, s.opts.reject(op, domain.NewValidationError(domain.ErrMissingField, msgProductFieldsRequired))
	}
	if *in.Price < 0 {
		return domain.Product{}, s.opts.reject(op, domain.NewFieldError(domain.ErrInvalidValue, "price", msgPriceNegative, *in.Price))
	}

	storeID, ok := domain.NormalizeID(rawStoreID)
	if !ok {
		return domain.Product{}, s.opts.reject(op, domain.ErrStoreNotFound)
	}
	if _, err := s.stores.Get(ctx, storeID); err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return domain.Product{}, s.opts.reject(op, err)
		}
		return domain.Product{}, fmt.Errorf("load store: %w", err)
	}

	now := s.opts.now()
	product := domain.Product{
		ID:        domain.NewID(),
		Name:      name,
		Price:     *in.Price,
		StoreID:   storeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("product", "create")
	s.opts.logger.WithFields(log.Fields{"product_id": product.ID, "store_id": storeID}).Info("product created")
	return product, nil
}

// Update меняет имя и/или цену товара после проверки принадлежности магазину.
func (s *ProductService) Update(ctx context.Context, rawStoreID, rawProductID string, patch ProductPatch) (domain.Product, error) {
	const op = "update_product"

	storeID, productID, err := parseProductPath(rawStoreID, rawProductID)
	if err != nil {
		return domain.Product{}, s.opts.reject(op, err)
	}

	name, hasName := nonEmpty(patch.Name)
	hasPrice := patch.Price != nil
	if hasPrice && *patch.Price < 0 {
		return domain.Product{}, s.opts.reject(op, domain.NewFieldError(domain.ErrInvalidValue, "price", msgPriceNegative, *patch.Price))
	}
	if !hasName && !hasPrice {
		return domain.Product{}, s.opts.reject(op, domain.NewValidationError(domain.ErrNoFieldsToUpdate, msgProductNothingToApply))
	}

	product, err := s.ownedProduct(ctx, op, storeID, productID)
	if err != nil {
		return domain.Product{}, err
	}

	if hasName {
		product.Name = name
	}
	if hasPrice {
		product.Price = *patch.Price
	}
	product.UpdatedAt = s.opts.now()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, s.opts.reject(op, err)
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("product", "update")
	return product, nil
}

// Delete удаляет товар. Ранее оформленные заказы не затрагиваются: цена в них зафиксирована.
func (s *ProductService) Delete(ctx context.Context, rawStoreID, rawProductID string) (domain.Product, error) {
	const op = "delete_product"

	storeID, productID, err := parseProductPath(rawStoreID, rawProductID)
	if err != nil {
		return domain.Product{}, s.opts.reject(op, err)
	}

	product, err := s.ownedProduct(ctx, op, storeID, productID)
	if err != nil {
		return domain.Product{}, err
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, s.opts.reject(op, err)
		}
		return domain.Product{}, fmt.Errorf("delete product: %w", err)
	}

	s.opts.metrics.RecordCatalogOperation("product", "delete")
	s.opts.logger.WithFields(log.Fields{"product_id": product.ID, "store_id": storeID}).Info("product deleted")
	return product, nil
}

// ownedProduct загружает товар и проверяет, что он принадлежит магазину.
func (s *ProductService) ownedProduct(ctx context.Context, op, storeID, productID string) (domain.Product, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, s.opts.reject(op, err)
		}
		return domain.Product{}, fmt.Errorf("load product: %w", err)
	}
	if !product.BelongsTo(storeID) {
		return domain.Product{}, s.opts.reject(op, domain.NewValidationError(domain.ErrForbidden, msgProductForeignStore))
	}
	return product, nil
}

func parseProductPath(rawStoreID, rawProductID string) (string, string, error) {
	storeID, okStore := domain.NormalizeID(rawStoreID)
	productID, okProduct := domain.NormalizeID(rawProductID)
	if !okStore || !okProduct {
		return "", "", domain.NewValidationError(domain.ErrInvalidIdentifier, msgProductIDsInvalid)
	}
	return storeID, productID, nil
}
