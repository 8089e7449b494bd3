package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-history/internal/adapter"
	"github.com/feral-file/ff-history/internal/api/server"
	"github.com/feral-file/ff-history/internal/api/shared/executor"
	"github.com/feral-file/ff-history/internal/config"
	"github.com/feral-file/ff-history/internal/history"
	"github.com/feral-file/ff-history/internal/journal"
	"github.com/feral-file/ff-history/internal/logger"
	"github.com/feral-file/ff-history/internal/model"
	"github.com/feral-file/ff-history/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadHistorydConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Service:         "historyd",
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting history service")

	// Registry defaults come from config; model options refine them
	deletePolicy, err := history.ParseDeletePolicy(cfg.History.DeletePolicy)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid history delete policy", zap.Error(err))
	}
	fkAction, err := history.ParseForeignKeyAction(cfg.History.ForeignKey)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid history foreign key action", zap.Error(err))
	}
	registry := history.NewRegistry(history.WithDefaults(
		history.WithDeletePolicy(deletePolicy),
		history.WithForeignKey(fkAction),
		history.WithTableSuffix(cfg.History.TableSuffix),
	))
	if err := model.Register(registry); err != nil {
		logger.FatalCtx(ctx, "Failed to register versioned models", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	dataStore := store.NewStore(db, registry)

	// Migrate on the primary before replica routing exists
	if err := dataStore.Migrate(ctx, model.All()...); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}

	if cfg.Database.ReadHost != "" {
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(cfg.Database.ReadDSN())},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			logger.FatalCtx(ctx, "Failed to register read replica", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Registered read replica", zap.String("host", cfg.Database.ReadHost))
	}

	var hooks []executor.SessionHook
	var dispatcher *journal.Dispatcher
	if cfg.Journal.Enabled {
		jsonAdapter := adapter.NewJSON()
		publisher, err := journal.NewPublisher(ctx, journal.PublisherConfig{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create revision publisher", zap.Error(err))
		}
		defer publisher.Close()

		dispatcher = journal.NewDispatcher(ctx, journal.Config{
			PoolSize:        cfg.Journal.PoolSize,
			QueueSize:       cfg.Journal.QueueSize,
			MaxRetryElapsed: cfg.Journal.MaxRetryElapsed,
		}, publisher, jsonAdapter, adapter.NewCanonicalizer(), adapter.NewClock())
		hooks = append(hooks, dispatcher.Attach)
		logger.InfoCtx(ctx, "Revision journal enabled", zap.String("stream", cfg.NATS.StreamName))
	}

	srv := server.New(server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, executor.NewExecutor(dataStore, registry, hooks...))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Shutdown uses a fresh context; ctx stays alive so queued revisions can drain
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	cancel()

	logger.Info("History service stopped")
}
