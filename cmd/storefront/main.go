package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	envHTTPAddr            = "SHOP_HTTP_ADDR"
	envMetricsAddr         = "SHOP_METRICS_ADDR"
	envStorageDriver       = "SHOP_STORAGE_DRIVER"
	envPostgresDSN         = "SHOP_POSTGRES_DSN"
	envDatabaseURL         = "SHOP_DATABASE_URL"
	envPostgresAutoMigrate = "SHOP_POSTGRES_AUTO_MIGRATE"
	envSQLitePath          = "SHOP_SQLITE_PATH"
	envKafkaBrokers        = "SHOP_KAFKA_BROKERS"
	envKafkaTopic          = "SHOP_KAFKA_TOPIC"
	envKafkaDLQTopic       = "SHOP_KAFKA_DLQ_TOPIC"
	envOutboxPollInterval  = "SHOP_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "SHOP_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "SHOP_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "SHOP_OUTBOX_RETRY_DELAY"
	envCORSAllowOrigins    = "SHOP_CORS_ALLOW_ORIGINS"
	envLogLevel            = "LOG_LEVEL"
	envLogFormat           = "LOG_FORMAT"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования. Неизвестный уровень оставляет info.
func setupLogger(lookup envLookup) []string {
	var warnings []string

	if format, ok := lookupTrimmed(lookup, envLogFormat); ok && strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	log.SetLevel(log.InfoLevel)
	if raw, ok := lookupTrimmed(lookup, envLogLevel); ok {
		level, err := log.ParseLevel(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envLogLevel, err))
		} else {
			log.SetLevel(level)
		}
	}
	return warnings
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию, а причина попадает в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}

	setString := func(key string, dst *string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*dst = v
		}
	}
	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)
	setString(envSQLitePath, &cfg.SQLitePath)
	setString(envKafkaBrokers, &cfg.KafkaBrokers)
	setString(envKafkaTopic, &cfg.KafkaTopic)
	setString(envKafkaDLQTopic, &cfg.KafkaDLQTopic)
	setString(envCORSAllowOrigins, &cfg.CORSAllowOrigins)

	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	} else if v, ok := lookupTrimmed(lookup, envDatabaseURL); ok {
		cfg.PostgresDSN = v
	}

	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	positive := func(v int) bool { return v > 0 }
	if v, ok := lookupTrimmed(lookup, envOutboxBatchSize); ok {
		if parsed, err := parseInt(v, positive, "must be > 0"); err != nil {
			warn(envOutboxBatchSize, err)
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxMaxAttempts); ok {
		if parsed, err := parseInt(v, positive, "must be > 0"); err != nil {
			warn(envOutboxMaxAttempts, err)
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}

	if v, ok := lookupTrimmed(lookup, envOutboxPollInterval); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envOutboxPollInterval, err)
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxRetryDelay); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"); err != nil {
			warn(envOutboxRetryDelay, err)
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, constraint string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if !valid(v) {
		return 0, fmt.Errorf("%d %s", v, constraint)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(v) {
		return 0, fmt.Errorf("%s %s", v, constraint)
	}
	return v, nil
}

func main() {
	logWarnings := setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range append(logWarnings, warnings...) {
		log.WithField("setting", w).Warn("ignoring invalid configuration value")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka":          cfg.KafkaBrokers != "",
		"version":        version.GetVersion(),
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
