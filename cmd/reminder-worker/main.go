package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/repairdesk/repairdesk-backend/internal/cron"
	"github.com/repairdesk/repairdesk-backend/internal/customers"
	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/internal/notifications"
	"github.com/repairdesk/repairdesk-backend/internal/reminders"
	"github.com/repairdesk/repairdesk-backend/internal/storeinfo"
	"github.com/repairdesk/repairdesk-backend/pkg/calendar"
	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/db"
	"github.com/repairdesk/repairdesk-backend/pkg/instance"
	"github.com/repairdesk/repairdesk-backend/pkg/jobs"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/metrics"
	"github.com/repairdesk/repairdesk-backend/pkg/migrate"
	"github.com/repairdesk/repairdesk-backend/pkg/notify"
	"github.com/repairdesk/repairdesk-backend/pkg/pubsub"
	"github.com/repairdesk/repairdesk-backend/pkg/redis"
)

const serviceKind = "reminder-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
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

	scheduler, err := reminders.NewScheduler(reminders.SchedulerParams{
		Queue:     queue,
		Customers: customers.NewRepository(gdb),
		Stores:    storeinfo.NewRepository(gdb),
		Entries:   ledger.NewRepository(gdb),
		Notifier:  notifier,
		Pinger:    dbClient,
		Calendar:  calendar.New(cfg.App.Location(), cfg.App.DateLayout),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder scheduler", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	// held for one claim cycle; a crashed holder blocks others for one lease at most
	dispatcherLock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, "dispatcher", cfg.App.Env), cfg.Jobs.Lease)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher lock", err)
		os.Exit(1)
	}
	dispatcher, err := jobs.NewDispatcher(jobs.DispatcherParams{
		Queue:        queue,
		Logger:       logg,
		Metrics:      jobMetrics,
		Lock:         dispatcherLock,
		PollInterval: cfg.Jobs.PollInterval,
		Lease:        cfg.Jobs.Lease,
		BatchSize:    cfg.Jobs.BatchSize,
		MaxAttempts:  cfg.Jobs.MaxAttempts,
		BaseBackoff:  cfg.Jobs.BaseBackoff,
		MaxBackoff:   cfg.Jobs.MaxBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create job dispatcher", err)
		os.Exit(1)
	}
	if err := scheduler.Register(dispatcher); err != nil {
		logg.Error(context.Background(), "failed to register reminder handlers", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Reminders.NotificationTTLDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification retention job", err)
		os.Exit(1)
	}
	// every job is due on the first pass, so the sweep also arms missing
	// delivery checks at startup
	sweepJob, err := cron.NewDeliverySweepJob(logg, scheduler)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery sweep job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if err := registry.Register(sweepJob, cfg.Reminders.SweepInterval); err != nil {
		logg.Error(context.Background(), "failed to register delivery sweep", err)
		os.Exit(1)
	}
	if err := registry.Register(retentionJob, cfg.Reminders.RetentionInterval); err != nil {
		logg.Error(context.Background(), "failed to register notification retention", err)
		os.Exit(1)
	}

	cronLock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, "cron", cfg.App.Env), cron.DefaultLockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     cronLock,
		Metrics:  jobMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting reminder worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return dispatcher.Run(groupCtx) })
	group.Go(func() error { return cronService.Run(groupCtx) })
	if addr := cfg.Jobs.MetricsAddr; addr != "" {
		group.Go(func() error { return serveMetrics(groupCtx, addr, logg) })
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reminder worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reminder worker shutting down gracefully")
}

func lockKey(client *redis.Client, name, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("%s:%s:%s", serviceKind, name, env))
}

func serveMetrics(ctx context.Context, addr string, logg *logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logg.Info(logg.WithField(ctx, "addr", addr), "serving worker metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
