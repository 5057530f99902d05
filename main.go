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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"healthbridge-server/internal/config"
	"healthbridge-server/internal/handlers"
	"healthbridge-server/internal/identity"
	"healthbridge-server/internal/logger"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"
	"healthbridge-server/internal/routes"
	"healthbridge-server/internal/scheduler"
	"healthbridge-server/internal/settings"
	"healthbridge-server/internal/stores"
)

func main() {
	// A missing .env is fine; the environment may be set another way.
	envErr := godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, "healthbridge-server")
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file loaded", zap.Error(envErr))
	}

	var closers []func() error

	provider, closeProvider, err := newProvider(cfg, zl)
	if err != nil {
		zl.Fatal("identity provider setup failed", zap.Error(err))
	}
	closers = append(closers, closeProvider)

	kv, closeKV := newSettingsKV(cfg, zl)
	closers = append(closers, closeKV)

	notifier, closeNotifier := newNotifier(cfg, zl)
	closers = append(closers, closeNotifier)

	registry := stores.NewRegistry(stores.RegistryConfig{
		Timing: stores.Timing{
			AIDelay:         cfg.Timing.AIDelay,
			VoiceReplyDelay: cfg.Timing.VoiceReplyDelay,
			Emergency: stores.EmergencyTiming{
				ContactDelay: cfg.Timing.EmergencyContactNotify,
				AutoCancel:   cfg.Timing.EmergencyAutoCancel,
			},
			LocationTimeout: cfg.Timing.LocationTimeout,
			LocationMaxAge:  cfg.Timing.LocationMaxAge,
		},
		Notifier: notifier,
		Options:  stores.Options{Now: time.Now, Log: zl.Named("stores"), Location: cfg.Location},
	})
	reminders := scheduler.New(notifier, cfg.Timing.NotificationTTL, time.Now, zl)
	closers = append(closers, registry.Close, reminders.Close)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinMiddleware(zl.Named("http")), gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	settingsService := settings.NewService(kv, zl)
	reminderSync := &handlers.ReminderSync{
		Settings:  settingsService,
		Scheduler: reminders,
		Now:       time.Now,
		Log:       zl.Named("reminders"),
	}
	stopDaily := reminders.Daily(cfg.Location, func(ctx context.Context) {
		armed := reminderSync.SyncAll(ctx, registry)
		zl.Info("reminders replanned for the new day", zap.Int("armed", armed))
	})
	closers = append(closers, func() error { stopDaily(); return nil })

	routes.SetupRoutes(router, routes.Deps{
		Config:    cfg,
		Provider:  provider,
		Registry:  registry,
		Settings:  settingsService,
		Scheduler: reminders,
		Reminders: reminderSync,
		Log:       zl,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("identity_mode", cfg.Identity.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			zl.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i]())
	}
	if err != nil {
		zl.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	zl.Info("shutdown complete")
}

func newProvider(cfg *config.Config, zl *zap.Logger) (identity.Provider, func() error, error) {
	if cfg.Identity.Mode == "remote" {
		if cfg.Identity.RemoteURL == "" {
			return nil, nil, errors.New("IDENTITY_REMOTE_URL is required in remote mode")
		}
		return identity.NewRemoteProvider(cfg.Identity.RemoteURL, cfg.Identity.RemoteAnonKey, zl), func() error { return nil }, nil
	}

	db, err := models.InitDB(models.DatabaseConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Verbose:         cfg.Database.LogQueries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return identity.NewLocalProvider(db, cfg.Identity, zl), sqlDB.Close, nil
}

func newSettingsKV(cfg *config.Config, zl *zap.Logger) (settings.KV, func() error) {
	if !cfg.Redis.Enabled {
		zl.Info("settings kept in memory")
		return settings.NewMemoryKV(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zl.Warn("redis not reachable yet", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return settings.NewRedisKV(client), client.Close
}

func newNotifier(cfg *config.Config, zl *zap.Logger) (notify.Notifier, func() error) {
	logNotifier := notify.LogNotifier{Log: zl.Named("notify")}
	if !cfg.MQTT.Enabled {
		return logNotifier, func() error { return nil }
	}
	client, err := notify.NewMQTTClient(notify.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})
	if err != nil {
		zl.Warn("mqtt unavailable, notifications are only logged", zap.Error(err))
		return logNotifier, func() error { return nil }
	}
	return notify.Multi{logNotifier, notify.NewMQTTNotifier(client, cfg.MQTT.TopicPrefix, zl)}, client.Close
}
