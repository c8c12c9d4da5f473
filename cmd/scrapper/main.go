package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"link-tracker/internal/handler/http/respond"
	pgRepo "link-tracker/internal/infra/adapter/persistence/postgres"
	"link-tracker/internal/infra/db"
	"link-tracker/internal/infra/notifier"
	"link-tracker/internal/infra/platform"
	workerPkg "link-tracker/internal/infra/worker"
	"link-tracker/internal/observability/logging"
	"link-tracker/internal/pkg/config"
	"link-tracker/internal/resilience/circuitbreaker"
	"link-tracker/internal/resilience/retry"
	"link-tracker/internal/usecase/notify"
	"link-tracker/internal/usecase/update"
)

func main() {
	if err := run(); err != nil {
		slog.Error("scrapper exited with error", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
}

func run() error {
	logger := logging.NewFromEnv()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load scrapper configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, err := workerPkg.LoadConfig(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("scrapper configuration loaded",
		slog.Duration("check_interval", cfg.CheckInterval),
		slog.String("check_schedule", cfg.CheckSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.String("bot_base_url", cfg.BotBaseURL),
		slog.Bool("bot_notifications_enabled", cfg.BotNotificationsEnabled),
		slog.String("github_api_url", cfg.GitHubAPIURL),
		slog.String("stackoverflow_api_url", cfg.StackOverflowAPIURL),
		slog.Duration("http_timeout", cfg.HTTPTimeout),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	database, err := openDatabase(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	links := pgRepo.NewLinkRepo(circuitbreaker.NewDBCircuitBreaker(database))

	// Initialize notification service
	botConfig := notifier.DefaultBotConfig()
	botConfig.Enabled = cfg.BotNotificationsEnabled
	botConfig.BaseURL = cfg.BotBaseURL
	notifyService := notify.NewService(notify.NewBotChannel(botConfig))
	logger.Info("notification service initialized",
		slog.String("endpoint", cfg.BotBaseURL+notifier.UpdatesPath),
		slog.Bool("enabled", botConfig.Enabled))

	httpClient := createHTTPClient(cfg.HTTPTimeout)
	checker := update.NewChecker(update.DefaultRoutes(
		platform.NewGitHubAdapter(httpClient, platform.GitHubConfig{
			BaseURL: cfg.GitHubAPIURL,
			Token:   cfg.GitHubToken,
		}),
		platform.NewStackOverflowAdapter(httpClient, platform.StackOverflowConfig{
			BaseURL: cfg.StackOverflowAPIURL,
			Key:     cfg.StackOverflowKey,
		}),
	)...)

	scheduler := update.NewScheduler(links, checker, notifyService,
		update.WithLogger(logger),
		update.WithObserver(workerMetrics),
		update.WithLocation(cfg.Location()),
	)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger, scheduler.Running)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(runMetricsServer(gctx, logger, cfg.MetricsPort, notifyService))
	})
	g.Go(func() error {
		return ignoreClosed(healthServer.Start(gctx))
	})

	if err := startScheduler(scheduler, cfg); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	logger.Info("scrapper started")

	<-gctx.Done()
	logger.Info("shutdown initiated")
	scheduler.Stop()

	return g.Wait()
}

// openDatabase connects with retry and applies the schema.
func openDatabase(ctx context.Context, logger *slog.Logger, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, db.ErrMissingDSN
	}

	var database *sql.DB
	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		var openErr error
		database, openErr = db.Open(ctx, dsn)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.MigrateUp(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database schema ready")
	return database, nil
}

// startScheduler starts polling on the cron schedule when one is configured,
// otherwise on the fixed interval.
func startScheduler(scheduler *update.Scheduler, cfg *workerPkg.ScrapperConfig) error {
	if cfg.CheckSchedule == "" {
		scheduler.Start(cfg.CheckInterval)
		return nil
	}
	schedule, err := config.ParseCronSchedule(cfg.CheckSchedule)
	if err != nil {
		return fmt.Errorf("parse check schedule: %w", err)
	}
	scheduler.StartWithSchedule(schedule)
	return nil
}

// createHTTPClient creates the client shared by the platform adapters.
// TLS 1.2+ is enforced for security.
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
