package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

// runtimeDependencies хранит репозитории выбранного драйвера и способ их закрыть.
type runtimeDependencies struct {
	stores   domain.StoreRepository
	products domain.ProductRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}

// initRuntimeDependencies открывает хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		return initPostgres(ctx, cfg, logger)
	case StorageDriverSQLite:
		return initSQLite(ctx, cfg, logger)
	default:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			stores:   memory.NewStoreRepository(),
			products: memory.NewProductRepository(),
			orders:   memory.NewOrderRepository(),
			outbox:   memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewFuncChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil
	}
}

func initPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres storage: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		state, err := store.MigrationStatus(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("read migration status: %w", err)
		}
		logger.WithFields(log.Fields{
			"version": state.Version,
			"applied": state.Applied,
		}).Info("postgres migrations applied")
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		stores:         postgres.NewStoreRepository(store),
		products:       postgres.NewProductRepository(store),
		orders:         postgres.NewOrderRepository(store),
		outbox:         postgres.NewOutboxRepository(store),
		storageChecker: healthcheck.NewFuncChecker("postgres", store.Ping),
		closeFn:        store.Close,
	}, nil
}

func initSQLite(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite storage: %w", err)
	}

	logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
	return &runtimeDependencies{
		stores:         sqlite.NewStoreRepository(db),
		products:       sqlite.NewProductRepository(db),
		orders:         sqlite.NewOrderRepository(db),
		outbox:         sqlite.NewOutboxRepository(db),
		storageChecker: healthcheck.NewFuncChecker("sqlite", db.Ping),
		closeFn:        db.Close,
	}, nil
}
