package app

import (
	"context"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
)

func requireUsable(t *testing.T, deps *runtimeDependencies) {
	t.Helper()

	require.NotNil(t, deps.stores)
	require.NotNil(t, deps.products)
	require.NotNil(t, deps.orders)
	require.NotNil(t, deps.outbox)
	require.NotNil(t, deps.storageChecker)
	require.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)

	ctx := context.Background()
	store := domain.Store{ID: domain.NewID(), Name: "Fresh Mart", Location: "5th Ave"}
	require.NoError(t, deps.stores.Create(ctx, store))
	got, err := deps.stores.Get(ctx, store.ID)
	require.NoError(t, err)
	require.Equal(t, "Fresh Mart", got.Name)
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	require.NoError(t, err)
	require.Nil(t, deps.closeFn)
	requireUsable(t, deps)
}

func TestInitRuntimeDependencies_SQLite(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverSQLite,
		SQLitePath:    ":memory:",
	}, log.WithField("test", "sqlite-storage"))
	require.NoError(t, err)
	defer deps.close(log.WithField("test", "sqlite-storage"))

	require.NotNil(t, deps.closeFn)
	requireUsable(t, deps)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	require.Error(t, err)
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "mongo",
	}, log.WithField("test", "unsupported-driver"))
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestInitRuntimeDependencies_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SHOP_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("SHOP_POSTGRES_TEST_DSN is not set")
	}

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver:       StorageDriverPostgres,
		PostgresDSN:         dsn,
		PostgresAutoMigrate: true,
	}, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	defer deps.close(log.WithField("test", "postgres-init"))

	requireUsable(t, deps)
}
