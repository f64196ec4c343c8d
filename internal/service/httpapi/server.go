package httpapi

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
)

// StoreService — операции над магазинами, нужные HTTP-слою.
type StoreService interface {
	List(ctx context.Context) ([]domain.Store, error)
	Create(ctx context.Context, in catalog.StoreInput) (domain.Store, error)
	Update(ctx context.Context, id string, patch catalog.StorePatch) (domain.Store, error)
	Delete(ctx context.Context, id string) (catalog.DeleteStoreResult, error)
}

// ProductService описывает операции над товарами.
type ProductService interface {
	ListByStore(ctx context.Context, storeID string) ([]domain.Product, error)
	Create(ctx context.Context, storeID string, in catalog.ProductInput) (domain.Product, error)
	Update(ctx context.Context, storeID, productID string, patch catalog.ProductPatch) (domain.Product, error)
	Delete(ctx context.Context, storeID, productID string) (domain.Product, error)
}

// OrderService — оформление и чтение заказов.
type OrderService interface {
	Create(ctx context.Context, sub ordering.Submission) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
}

// Config задаёт параметры HTTP API.
type Config struct {
	// Значение для CORS, "*" по умолчанию.
	AllowOrigins string
	Logger       *log.Entry
	Metrics      *metrics.ShopMetrics
}

// NewApp собирает fiber-приложение со всеми маршрутами под /api.
func NewApp(stores StoreService, products ProductService, orders OrderService, cfg Config) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(accessLog(logger, cfg.Metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	h := &Handlers{stores: stores, products: products, orders: orders, logger: logger}
	h.Register(app)
	return app
}
