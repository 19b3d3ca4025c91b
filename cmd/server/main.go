package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/digkill/BizPlanGen/internal/config"
	"github.com/digkill/BizPlanGen/internal/database"
	"github.com/digkill/BizPlanGen/internal/llm"
	"github.com/digkill/BizPlanGen/internal/notify"
	"github.com/digkill/BizPlanGen/internal/razorpay"
	"github.com/digkill/BizPlanGen/internal/repository"
	"github.com/digkill/BizPlanGen/internal/service"
	"github.com/digkill/BizPlanGen/internal/storage"
	"github.com/digkill/BizPlanGen/internal/web"
	"github.com/digkill/BizPlanGen/pkg/logger"
)

const (
	sessionMaxAge = 24 * time.Hour
	pruneInterval = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()
	if missing := cfg.Missing(); len(missing) > 0 {
		logr.Warn("provider secrets not set; affected actions will fail", "missing", missing)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		orders      service.OrderLedger = repository.NewMemoryOrderRepository()
		generations service.GenerationLogger
	)
	if cfg.MySQLDSN != "" {
		db, err := database.Connect(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		orders, generations = mysqlLedger(db)
		logr.Info("order ledger backed by mysql")
	}

	plans, err := planStore(cfg)
	if err != nil {
		log.Fatalf("plan storage: %v", err)
	}

	var notifier service.Notifier = notify.Nop{}
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logr)
		if err != nil {
			logr.Error("telegram notifier disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	sessions := service.NewSessionStore()
	forms := service.NewFormService(sessions)
	payments := service.NewPaymentService(service.PaymentConfig{
		CheckoutURL:     cfg.CheckoutURL,
		CallbackURL:     cfg.PublicBaseURL + "/payment/callback",
		PrefillName:     cfg.PrefillName,
		PrefillEmail:    cfg.PrefillEmail,
		WebhookSecret:   cfg.RazorpayWebhookSecret,
		AllowSelfReport: cfg.PaymentSelfReport,
	}, logr, sessions, orders, razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, logr), notifier)
	generator := service.NewGenerationService(logr, sessions,
		llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logr), plans, generations, notifier)

	go pruneExpired(ctx, logr, sessions, generator)

	server := web.NewServer(web.Options{
		Addr:            cfg.ListenAddr,
		AdminUsername:   cfg.AdminUsername,
		AdminPassword:   cfg.AdminPassword,
		SecureCookies:   cfg.SecureCookies(),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logr, sessions, forms, payments, generator)

	if err := server.Run(ctx); err != nil {
		logr.Error("http server stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := generator.Shutdown(shutdownCtx); err != nil {
		logr.Error("generation jobs did not stop in time", "err", err)
	}
	logr.Info("shutdown complete")
}

func mysqlLedger(db *sql.DB) (service.OrderLedger, service.GenerationLogger) {
	return repository.NewOrderRepository(db), repository.NewGenerationRepository(db)
}

func planStore(cfg config.Config) (service.PlanStore, error) {
	if cfg.S3Enabled() {
		return storage.NewS3Store(storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3UsePathStyle,
			Prefix:       cfg.S3Prefix,
		})
	}
	return storage.NewLocalStore(cfg.OutputDir)
}

func pruneExpired(ctx context.Context, logr *slog.Logger, sessions *service.SessionStore, generator *service.GenerationService) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(sessionMaxAge); n > 0 {
				logr.Info("expired sessions pruned", "count", n, "remaining", sessions.Len())
			}
			if n := generator.Prune(sessionMaxAge); n > 0 {
				logr.Info("finished jobs pruned", "count", n, "remaining", generator.Jobs())
			}
		}
	}
}
