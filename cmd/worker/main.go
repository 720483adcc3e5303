package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyvideo-server/internal/billing"
	"storyvideo-server/internal/config"
	"storyvideo-server/internal/ledger"
	internalmsg "storyvideo-server/internal/messaging"
	"storyvideo-server/internal/provider"
	"storyvideo-server/internal/service"
	"storyvideo-server/internal/worker"
	"storyvideo-server/pkg/migration"
	"storyvideo-server/shared/logger"
	"storyvideo-server/shared/messaging"
	"storyvideo-server/shared/schemas"
)

func main() {
	// .env нужен только для локальной разработки, в контейнере его нет.
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLog, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	zapLog.Info("starting story video generation worker")

	// --- Метрики: HTTP эндпоинт плюс опциональный Pushgateway ---
	metricsServer := startMetricsServer(cfg.MetricsListenAddr, zapLog)
	if cfg.PushgatewayURL != "" {
		if err := worker.InitMetricsPusher(cfg.PushgatewayURL); err != nil {
			zapLog.Warn("pushgateway unavailable, continuing without push", zap.Error(err))
		} else {
			worker.StartMetricsPusher(cfg.MetricsPushPeriod)
			defer worker.CleanupMetrics()
		}
	}

	// --- PostgreSQL ---
	dbPool, err := setupDatabase(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ledger.MigrationsPath,
		MigrationsFS:   ledger.MigrationsFS,
	}, dbPool, zapLog)
	if err := migrator.Up(); err != nil {
		zapLog.Fatal("failed to apply migrations", zap.Error(err))
	}

	// --- Redis: кеш балансов поверх PostgreSQL ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() { _ = rdb.Close() }()

	balances := ledger.NewRedisBalanceCache(
		rdb, ledger.NewPostgresBalanceReader(dbPool), cfg.BalanceCacheTTL, zapLog)

	// --- RabbitMQ ---
	conn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLog)
	if err != nil {
		zapLog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	notifierCh, err := conn.Channel()
	if err != nil {
		zapLog.Fatal("failed to open notifier channel", zap.Error(err))
	}
	defer notifierCh.Close()

	notifier, err := internalmsg.NewRabbitMQNotifier(notifierCh, messaging.ClientUpdateQueueName, zapLog)
	if err != nil {
		zapLog.Fatal("failed to create notifier", zap.Error(err))
	}

	// --- Провайдеры генерации ---
	textClient := provider.NewOpenAITextClient(provider.TextClientConfig{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})
	mediaClient := provider.NewHTTPMediaClient(provider.MediaClientConfig{
		APIKey:       cfg.MediaAPIKey,
		BaseURL:      cfg.MediaBaseURL,
		ImageModel:   cfg.MediaImageModel,
		VideoModel:   cfg.MediaVideoModel,
		ImageTimeout: cfg.MediaImageTimeout,
		VideoTimeout: cfg.MediaVideoTimeout,
		PollInterval: cfg.VideoPollInterval,
		MaxPolls:     cfg.VideoMaxPolls,
	})

	// --- Сборка пайплайна ---
	calc := billing.NewCalculator(billing.Rates{
		VideoPerSecondMXN: cfg.RateVideoPerSecondMXN,
		ImageMXN:          cfg.RateImageMXN,
		TextMXN:           cfg.RateTextMXN,
	})
	gate := billing.NewGate(balances, zapLog)
	repo := ledger.NewPostgresRepository(dbPool, zapLog)
	store := service.NewFSMediaStore(cfg.MediaStoreDir, cfg.MediaPublicBaseURL, zapLog)
	retry := provider.RetryPolicy{MaxAttempts: cfg.AIMaxAttempts, BaseDelay: cfg.AIBaseRetryDelay}

	pipeline := service.NewPipeline(calc, gate, repo, textClient, mediaClient, store,
		retry, schemas.ZapTracer{Log: zapLog}, zapLog)
	chain := service.NewStoryChainOrchestrator(pipeline, zapLog)
	handler := worker.NewTaskHandler(cfg, pipeline, chain, repo, store, notifier, zapLog)

	// --- Потребитель задач ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := internalmsg.NewTaskConsumer(conn, handler.Handle, zapLog)
	if err := consumer.Start(ctx); err != nil {
		zapLog.Fatal("failed to start task consumer", zap.Error(err))
	}

	zapLog.Info("worker is ready, waiting for tasks")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopChan:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-consumer.Done():
		zapLog.Warn("task consumer stopped unexpectedly")
	}

	// Даем текущей задаче дорешаться: прерванная генерация уже оплачена.
	cancel()
	select {
	case <-consumer.Done():
		zapLog.Info("task consumer drained")
	case <-time.After(cfg.ShutdownGracePeriod):
		zapLog.Warn("grace period expired, forcing shutdown",
			zap.Duration("grace_period", cfg.ShutdownGracePeriod))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("metrics server shutdown failed", zap.Error(err))
	}

	zapLog.Info("worker stopped")
}

// startMetricsServer отдает метрики воркера и health-чек по HTTP.
func startMetricsServer(addr string, zapLog *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(worker.Gatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()
	return server
}

// setupDatabase инициализирует пул соединений с несколькими попытками:
// при старте стека PostgreSQL может подниматься дольше воркера.
func setupDatabase(cfg *config.Config, zapLog *zap.Logger) (*pgxpool.Pool, error) {
	const maxRetries = 10
	const retryDelay = 3 * time.Second

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var pool *pgxpool.Pool
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				cancel()
				zapLog.Info("connected to PostgreSQL", zap.Int("attempt", i+1))
				return pool, nil
			}
			pool.Close()
		}
		cancel()
		zapLog.Warn("PostgreSQL connection attempt failed",
			zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("не удалось подключиться к БД после %d попыток: %w", maxRetries, err)
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, zapLog *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	const maxRetries = 5
	const retryDelay = 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		zapLog.Warn("RabbitMQ connection attempt failed",
			zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, err
}
