package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/data"
	"github.com/KotFed0t/trading_assistant/data/cache"
	"github.com/KotFed0t/trading_assistant/data/repository/postgres"
	"github.com/KotFed0t/trading_assistant/data/state"
	"github.com/KotFed0t/trading_assistant/internal/externalApi/chatbotApi"
	"github.com/KotFed0t/trading_assistant/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/trading_assistant/internal/externalApi/yahooApi"
	"github.com/KotFed0t/trading_assistant/internal/httpserver"
	"github.com/KotFed0t/trading_assistant/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/trading_assistant/internal/scheduler"
	"github.com/KotFed0t/trading_assistant/internal/service/authService"
	"github.com/KotFed0t/trading_assistant/internal/service/chatService"
	"github.com/KotFed0t/trading_assistant/internal/service/contentService"
	"github.com/KotFed0t/trading_assistant/internal/service/marketService"
	"github.com/KotFed0t/trading_assistant/internal/service/portfolioService"
	httpTransport "github.com/KotFed0t/trading_assistant/internal/transport/http"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(ctx, cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(ctx, cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisState := state.NewRedisState(redisClient)

	yahooApiClient := yahooApi.New(cfg)
	chatbotApiClient := chatbotApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	var (
		cloudStorage portfolioService.CloudStorage
		driveApi     *googleDriveApi.GoogleDriveApi
	)
	if cfg.GoogleDrive.Enabled() {
		var err error
		driveApi, err = googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("google drive init failed, reports will be served as files", slog.String("err", err.Error()))
		} else {
			cloudStorage = driveApi
		}
	}

	marketSrv := marketService.New(cfg, yahooApiClient, redisCache, pgRepo)
	portfolioSrv := portfolioService.New(cfg, pgRepo, redisState, marketSrv, reportGenerator, cloudStorage)
	authSrv := authService.New(cfg, pgRepo)
	contentSrv := contentService.New(pgRepo, redisCache)
	chatSrv := chatService.New(chatbotApiClient)

	sched := scheduler.New()
	if err := sched.NewIntervalJob("fill quote cache", marketSrv.FillQuoteCache, cfg.Jobs.FillQuoteCacheInterval, true); err != nil {
		panic(err.Error())
	}
	if driveApi != nil {
		cleanup := func(ctx context.Context) error {
			_, err := driveApi.DeleteOldFiles(ctx)
			return err
		}
		if err := sched.NewCrontabJob("clean google drive", cleanup, cfg.Jobs.DriveCleanupCrontab, false); err != nil {
			panic(err.Error())
		}
	}
	sched.Start()
	defer sched.Stop()

	ctrl := httpTransport.NewController(portfolioSrv, marketSrv, authSrv, contentSrv, chatSrv)

	server := httpserver.New(cfg, ctrl, authSrv)
	server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
