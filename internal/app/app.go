package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/events"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает хранилище, HTTP API, сервер метрик и (при наличии Kafka) outbox worker.
// Возвращает ctx.Err() после штатной остановки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	shopMetrics := metrics.NewShopMetrics()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	producer, err := initKafkaProducer(cfg.Brokers(), logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without events")
	}
	defer closeKafkaProducer(producer, logger)

	// Без producer события в outbox не пишутся: их некому было бы доставить.
	eventsOutbox := deps.outbox
	if producer == nil {
		eventsOutbox = nil
	}
	recorder := events.NewRecorder(eventsOutbox, shopMetrics, logger.WithField("component", "events"))

	healthHandler := healthcheck.NewHandler(version.GetVersion(), version.GetCommit())
	healthHandler.RegisterChecker("storage", deps.storageChecker)

	var (
		stopWorker context.CancelFunc
		workerDone <-chan struct{}
	)
	if recorder.Enabled() {
		healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.outbox, cfg.OutboxMaxPending))
		stopWorker, workerDone = startOutboxWorker(ctx, cfg, deps, producer, shopMetrics, logger)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	api := newAPI(deps, recorder, shopMetrics, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- api.Listen(cfg.HTTPAddr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		if err := api.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.WithError(err).Warn("http api shutdown with error")
		}
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("http api stopped unexpectedly")
		}
		runErr = err
	}

	shutdownOutboxWorker(stopWorker, workerDone, logger)
	shutdownHTTP(metricsSrv, logger)
	return runErr
}

// startOutboxWorker запускает публикацию outbox в Kafka. Возвращает функцию остановки и канал завершения.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	producer *kafka.Producer,
	m *metrics.ShopMetrics,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	opts := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(m),
		outbox.WithConfig(outbox.Config{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxAttempts:  cfg.OutboxMaxAttempts,
		}),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if cfg.KafkaDLQTopic != "" {
		opts = append(opts, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)))
	}
	worker := outbox.NewWorker(deps.outbox, kafka.NewOutboxPublisher(producer, cfg.KafkaTopic), opts...)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает воркер и ждёт завершения текущего батча.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("outbox worker did not stop in time")
	}
}

// startMetricsServer запускает HTTP-сервер с /metrics и health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
