package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momentum-trader/internal/trader/config"
	delivery "momentum-trader/internal/trader/delivery/http"
	"momentum-trader/internal/trader/delivery/scheduler"
	"momentum-trader/internal/trader/queue"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/postgres"
	"momentum-trader/pkg/redis"
	"momentum-trader/pkg/telegram"

	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the trading service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Trading Service", logger.StringField("name", cfg.App.Name))

	// Initialize database
	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Redis holds breaker halts and, when selected, the signal stream.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
	} else if cfg.Queue.Backend == "redis" {
		appLogger.Fatal("Redis queue backend selected but redis.host is empty")
	}

	// Initialize repositories
	signalRepo := repository.NewSignalRepository(db.DB)
	rejectionRepo := repository.NewRejectionRepository(db.DB)
	positionRepo := repository.NewPositionRepository(db.DB)
	eventRepo := repository.NewPositionEventRepository(db.DB)
	metricRepo := repository.NewPortfolioMetricRepository(db.DB)
	marketRepo := repository.NewBinanceMarketRepository(cfg.Market, appLogger)

	var newsRepo repository.NewsRepository
	if len(cfg.News.Feeds) > 0 {
		newsRepo = repository.NewRSSNewsRepository(cfg.News, appLogger)
	}

	var breakerStore repository.BreakerStateRepository
	if redisClient != nil {
		breakerStore = repository.NewBreakerStateRepository(redisClient.Client)
	}

	aiRepo := newAIRepository(ctx, cfg, appLogger, marketRepo)

	telegramNotifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
	}

	// Signal queue between the oracle stage and the risk gate
	var signalQueue queue.SignalQueue
	switch cfg.Queue.Backend {
	case "redis":
		if err := queue.EnsureGroup(ctx, redisClient.Client); err != nil {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
		signalQueue = queue.NewRedisQueue(redisClient.Client, cfg.Queue.BlockTimeout, cfg.Queue.StreamMaxLen, cfg.Queue.ReclaimMinIdle)
	default:
		signalQueue = queue.NewMemoryQueue(cfg.Queue.BufferSize, cfg.Queue.BlockTimeout)
	}

	// Initialize the trading core
	ledger := service.NewPortfolioLedger(cfg.Trading, appLogger)
	breaker := service.NewCircuitBreaker(cfg.Trading, appLogger, breakerStore)
	lifecycle := service.NewPositionLifecycle(cfg.Trading, appLogger)
	stats := service.NewCycleStatsStore()

	if err := service.RestoreLedger(ctx, ledger, positionRepo, eventRepo); err != nil {
		appLogger.Fatal("Failed to restore portfolio ledger", logger.ErrorField(err))
	}
	if err := breaker.Restore(ctx); err != nil {
		appLogger.Warn("Failed to restore breaker halts", logger.ErrorField(err))
	}

	recorder := service.NewRecorder(appLogger, signalRepo, rejectionRepo, positionRepo, eventRepo, metricRepo, cfg.Recorder.BufferSize, cfg.Recorder.WriteTimeout)
	recorder.Start(ctx)

	scanSvc := service.NewScanService(cfg, appLogger,
		service.NewMomentumDetector(cfg.Trading, appLogger, marketRepo),
		service.NewConfidenceAggregator(appLogger),
		lifecycle, ledger, marketRepo, aiRepo, newsRepo, signalQueue, stats)
	tradeSvc := service.NewTradeService(appLogger, signalQueue, service.NewRiskGate(cfg.Trading, appLogger), breaker, lifecycle, ledger, recorder, stats, telegramNotifier)
	monitorSvc := service.NewMonitorService(cfg, appLogger, lifecycle, ledger, breaker, marketRepo, aiRepo, newsRepo, recorder, telegramNotifier)
	dashboardSvc := service.NewDashboardService(ledger, breaker, stats, signalRepo, eventRepo)

	runner := scheduler.NewRunner(cfg, scanSvc, tradeSvc, monitorSvc, appLogger)
	if err := runner.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start trading loops", logger.ErrorField(err))
	}

	// Start server
	e := delivery.NewServer(dashboardSvc, monitorSvc, appLogger)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	appLogger.Info("Shutting down trading service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	runner.Stop()
	recorder.Stop()

	appLogger.Info("Trading service stopped")
}

// newAIRepository builds the configured oracle behind the failure breaker.
func newAIRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, market repository.MarketDataRepository) repository.AIRepository {
	var aiRepo repository.AIRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		aiRepo = repository.NewGeminiAIRepository(cfg.Gemini, appLogger, genAiClient)
	case "rules":
		aiRepo = repository.NewRulesAIRepository(cfg.Trading, market, appLogger)
	default:
		appLogger.Fatal("Invalid AI provider specified in config", logger.StringField("provider", cfg.AI.Provider))
	}
	return repository.NewGuardedAIRepository(cfg.AI, aiRepo, appLogger)
}

// @title Momentum Trader API
// @version 1.0
// @description Paper-trading portfolio, positions and signal audit for the momentum trader.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{
		Use:   "trading-service",
		Short: "Momentum detection and paper-trading engine",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-trader.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, scanCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing trading-service CLI: %s\n", err)
		os.Exit(1)
	}
}
