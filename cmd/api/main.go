package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"

	"github.com/repairdesk/repairdesk-backend/api/routes"
	"github.com/repairdesk/repairdesk-backend/internal/customers"
	"github.com/repairdesk/repairdesk-backend/internal/dashboard"
	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/internal/notes"
	"github.com/repairdesk/repairdesk-backend/internal/notifications"
	"github.com/repairdesk/repairdesk-backend/internal/products"
	"github.com/repairdesk/repairdesk-backend/internal/reminders"
	"github.com/repairdesk/repairdesk-backend/internal/storeinfo"
	"github.com/repairdesk/repairdesk-backend/internal/transactions"
	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db"
	"github.com/repairdesk/repairdesk-backend/pkg/instance"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/migrate"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
	"github.com/repairdesk/repairdesk-backend/pkg/pubsub"
	"github.com/repairdesk/repairdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var publisher *gcppubsub.Publisher
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = pubsubClient.NotificationPublisher()
	}

	gdb := dbClient.DB()
	notificationsRepo := notifications.NewRepository(gdb)
	notifier, err := notify.NewFromConfig(logg, notificationsRepo, publisher, cfg.Twilio)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	queue, err := jobs.NewRedisQueue(redisClient.Raw(), redisClient.JobsKey("reminders"))
	if err != nil {
		logg.Error(context.Background(), "failed to create job queue", err)
		os.Exit(1)
	}

	cal := calendar.New(cfg.App.Location(), cfg.App.DateLayout)
	storeRepo := storeinfo.NewRepository(gdb)
	scheduler, err := reminders.NewScheduler(reminders.SchedulerParams{
		Queue:    queue,
		Stores:   storeRepo,
		Calendar: cal,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder scheduler", err)
		os.Exit(1)
	}

	storeService, err := storeinfo.NewService(storeinfo.ServiceParams{
		Repo:          storeRepo,
		Scheduler:     scheduler,
		Logger:        logg,
		DefaultHour:   cfg.Reminders.DeliveryCheckHour,
		DefaultMinute: cfg.Reminders.DeliveryCheckMinute,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create store info service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customers.ServiceParams{
		Repo:     customers.NewRepository(gdb),
		Store:    storeService,
		Calendar: cal,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(gdb)
	productService, err := products.NewService(products.ServiceParams{
		Repo:     productRepo,
		DB:       dbClient,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	transactionService, err := transactions.NewService(transactions.ServiceParams{
		Repo:        transactions.NewRepository(gdb),
		ProductRepo: productRepo,
		DB:          dbClient,
		Notifier:    notifier,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:      ledger.NewRepository(gdb),
		Reminders: scheduler,
		Logger:    logg,
		LeadTime:  cfg.Reminders.LedgerLeadTime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notesService, err := notes.NewService(notes.NewRepository(gdb), nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create notes service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Customers:    customerService,
		Products:     productRepo,
		Ledger:       ledgerService,
		Transactions: transactionService,
		Calendar:     cal,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Customers:     customerService,
			Products:      productService,
			Transactions:  transactionService,
			Ledger:        ledgerService,
			Notes:         notesService,
			StoreInfo:     storeService,
			Notifications: notificationService,
			Dashboard:     dashboardService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
