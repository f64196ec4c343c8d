package app

import (
	"fmt"
	"strings"
	"time"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

// Config описывает настройки запуска storefront.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	SQLitePath          string

	// KafkaBrokers: список брокеров через запятую; пусто означает, что события не публикуются.
	KafkaBrokers  string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending задаёт порог backlog, выше которого /healthz сообщает degraded (0 отключает проверку).
	OutboxMaxPending int

	CORSAllowOrigins string
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3000",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		SQLitePath:          "storefront.db",
		KafkaTopic:          "storefront.order.events",
		KafkaDLQTopic:       "storefront.dlq",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxMaxPending:    1000,
		CORSAllowOrigins:    "*",
	}
}

// Brokers разбирает KafkaBrokers, отбрасывая пустые элементы.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Validate проверяет согласованность настроек хранилища.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres storage requires a DSN")
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite storage requires a database path")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q (use memory|postgres|sqlite)", c.StorageDriver)
	}
	return nil
}
