package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/database"
	"github.com/evermirror/twinhub/internal/httpapi"
	"github.com/evermirror/twinhub/internal/notify"
	"github.com/evermirror/twinhub/internal/razorpay"
	"github.com/evermirror/twinhub/internal/repository"
	"github.com/evermirror/twinhub/internal/service"
	"github.com/evermirror/twinhub/internal/storage"
	"github.com/evermirror/twinhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogDebug)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	provider := razorpay.NewClient(razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		BaseURL:       cfg.RazorpayBaseURL,
	}, logr)

	alerts, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramOpsChatID, logr)
	if err != nil {
		log.Fatalf("ops notifier: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	twinRepo := repository.NewTwinRepository(db)

	orderService := service.NewOrderService(cfg, provider, logr)
	userService := service.NewUserService(cfg, logr, userRepo, billingRepo, orderService)
	twinService := service.NewTwinService(logr, twinRepo)
	onboardingService := service.NewOnboardingService(cfg, logr, orderService, sessionRepo, billingRepo, userRepo)
	webhookService := service.NewWebhookService(logr, provider, billingRepo, sessionRepo, userRepo, twinRepo, alerts)

	var uploader *storage.Uploader
	if cfg.S3Bucket != "" {
		uploader, err = storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SessionGCSchedule, func() {
		onboardingService.SweepExpired(ctx)
	}); err != nil {
		log.Fatalf("schedule session sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := httpapi.NewServer(cfg.ListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr,
		userService, twinService, onboardingService, webhookService, uploader)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
