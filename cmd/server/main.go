package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/alert"
	"github.com/oddsight/oddsight/internal/api"
	"github.com/oddsight/oddsight/internal/cache"
	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/config"
	"github.com/oddsight/oddsight/internal/database"
	"github.com/oddsight/oddsight/internal/engine"
	"github.com/oddsight/oddsight/internal/logging"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/signal"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	oddsTTL, err := time.ParseDuration(cfg.Redis.OddsTTL)
	if err != nil || oddsTTL <= 0 {
		oddsTTL = time.Minute
	}
	marketCache := cache.NewMarketCache(redisClient.Client, oddsTTL, logger)

	paramsStore := calibration.NewFileStore(cfg.Calibration.ParamsPath, logger)
	params, err := paramsStore.Load()
	if err != nil {
		logger.WithError(err).Warn("Falling back to identity calibration")
	}
	calibrator := calibration.NewCalibrator(params)
	fitter := calibration.NewFitter(cfg.Calibration.MinObservations, logger)

	var gate engine.GatePolicy
	switch cfg.Engine.GatePolicy {
	case "volatility":
		gate = engine.NewVolatilityGate(cfg.Engine.VolatilityMultiplier)
	default:
		gate = engine.NewLearningGate()
	}
	logger.WithField("policy", gate.Name()).Info("Safety gate configured")

	evaluator := engine.NewEvaluator(
		signal.NewTimeframeScorer(cfg.Thresholds),
		signal.NewAggregator(signal.AgreementKTimeframes, cfg.Thresholds),
		calibrator,
		gate,
		cfg.Indicators,
		logger,
	)

	marketClient := market.NewClient(cfg.Market, logger)
	repo := database.NewDecisionRepository(db.Pool)

	notifier, err := alert.NewNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize telegram notifier: %v", err)
	}
	var runnerNotifier engine.Notifier
	if notifier.Enabled() {
		runnerNotifier = notifier
	}

	runner := engine.NewRunner(evaluator, marketClient, marketCache, repo, runnerNotifier, cfg.Engine, logger)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go func() {
		if err := runner.Run(runCtx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Evaluation loop exited")
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.NewHandler(repo, calibrator, fitter, paramsStore, logger), db, redisClient)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	cancelRun()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
