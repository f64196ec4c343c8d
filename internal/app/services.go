package app

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/ordering"
)

// newAPI собирает сервисы поверх репозиториев и монтирует их в HTTP API.
// recorder может быть выключен: тогда события не пишутся.
func newAPI(deps *runtimeDependencies, recorder *events.Recorder, m *metrics.ShopMetrics, cfg Config, logger *log.Entry) *fiber.App {
	catalogOpts := func(component string) []catalog.Option {
		return []catalog.Option{
			catalog.WithLogger(logger.WithField("component", component)),
			catalog.WithMetrics(m),
			catalog.WithEvents(recorder),
		}
	}

	storeSvc := catalog.NewStoreService(deps.stores, deps.products, catalogOpts("store-service")...)
	productSvc := catalog.NewProductService(deps.stores, deps.products, catalogOpts("product-service")...)
	orderSvc := ordering.NewService(
		ordering.NewBuilder(deps.stores),
		deps.orders,
		recorder,
		m,
		logger.WithField("component", "order-service"),
	)

	return httpapi.NewApp(storeSvc, productSvc, orderSvc, httpapi.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		Logger:       logger.WithField("component", "http"),
		Metrics:      m,
	})
}
