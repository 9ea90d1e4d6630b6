// cmd/intake-manager/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"application-intake/internal/api"
	"application-intake/internal/clients/notifier"
	"application-intake/internal/clients/objectstore"
	"application-intake/internal/clients/poller"
	"application-intake/internal/clients/records"
	"application-intake/internal/clients/validator"
	"application-intake/internal/common/aws"
	"application-intake/internal/common/config"
	"application-intake/internal/common/database"
	"application-intake/internal/common/logger"
	"application-intake/internal/common/observability"
	"application-intake/internal/common/retry"
	"application-intake/internal/intake/audit"
	"application-intake/internal/intake/batch"
	"application-intake/internal/intake/dedup"
	"application-intake/internal/intake/executor"
	"application-intake/internal/intake/reviewqueue"
	"application-intake/internal/intake/state"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("intake-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	// Without a configured host the store and review queue fall back to
	// in-memory implementations; workflow state then does not survive a
	// restart.
	var store state.Store
	var queue reviewqueue.Queue
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retry.Connect(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		store = state.NewPostgresStore(pg.DB, log)
		queue = reviewqueue.NewPostgresQueue(pg.DB, log)
	} else {
		zapLog.Warn("postgres not configured, using in-memory state store and review queue")
		store = state.NewMemoryStore()
		queue = reviewqueue.NewMemoryQueue()
	}

	// --- Init Redis with retry ---
	var dedupCache dedup.Cache
	if cfg.Database.Redis.Address != "" {
		var rdb *database.RedisClient
		err = retry.Connect(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, using in-memory dedup cache", zap.Error(err))
			dedupCache = dedup.NewMemoryCache()
		} else {
			defer rdb.Close()
			zapLog.Info("Redis connected successfully")
			dedupCache = dedup.NewRedisCache(rdb.Client, config.GetDuration(cfg.Pipeline.DedupTTL), log)
		}
	} else {
		dedupCache = dedup.NewMemoryCache()
	}

	// --- Init Elasticsearch with retry ---
	var auditIndexer *audit.Indexer
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retry.Connect(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, log, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unavailable, audit indexing disabled", zap.Error(err))
		} else {
			zapLog.Info("Elasticsearch connected successfully")
			auditIndexer = audit.NewIndexer(esClient.Client, cfg.Audit.Index, log)
		}
	}

	// --- Init Collaborator Clients ---
	pollerClient := poller.NewClient(
		cfg.Collaborators.Poller.BaseURL,
		config.GetDuration(cfg.Collaborators.Poller.Timeout),
		log,
	)
	objectClient := objectstore.NewClient(
		cfg.Collaborators.ObjectStore.BaseURL,
		config.GetDuration(cfg.Collaborators.ObjectStore.Timeout),
		log,
	)
	recordsClient := records.NewClient(
		cfg.Collaborators.Records.BaseURL,
		config.GetDuration(cfg.Collaborators.Records.Timeout),
		log,
	)
	validatorClient := validator.NewClient(
		cfg.Collaborators.Validator.BaseURL,
		config.GetDuration(cfg.Collaborators.Validator.Timeout),
		log,
	)

	var notif executor.Notifier
	if cfg.Notifications.Backend == "aws" {
		sesClient, snsClient, err := aws.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws clients failed", zap.Error(err))
		}
		notif = notifier.NewAWSNotifier(
			sesClient,
			snsClient,
			cfg.Notifications.Email.FromEmail,
			cfg.Notifications.SMS.Enabled,
			cfg.Notifications.SMS.PriorityThreshold,
			log,
		)
	} else {
		notif = notifier.NewHTTPNotifier(
			cfg.Collaborators.Notifier.BaseURL,
			config.GetDuration(cfg.Collaborators.Notifier.Timeout),
			log,
		)
	}

	zapLog.Info("All collaborator clients initialized")

	// --- Build the Pipeline ---
	exec := executor.New(
		store,
		queue,
		objectClient,
		pollerClient,
		validatorClient,
		notif,
		recordsClient,
		dedupCache,
		&executor.Config{
			UploadTimeout:   config.GetDuration(cfg.Collaborators.ObjectStore.Timeout),
			ValidateTimeout: config.GetDuration(cfg.Collaborators.Validator.Timeout),
			NotifyTimeout:   config.GetDuration(cfg.Collaborators.Notifier.Timeout),
			RecordsTimeout:  config.GetDuration(cfg.Collaborators.Records.Timeout),
			PresignTTL:      config.GetDuration(cfg.Pipeline.PresignedIDTTL),
			Retry: retry.Policy{
				MaxAttempts:  cfg.Pipeline.RetryAttempts,
				InitialDelay: config.GetDuration(cfg.Pipeline.RetryBackoff),
			},
		},
		log,
	)
	coordinator := batch.New(exec, cfg.Pipeline.MaxConcurrent, log)

	// --- Poll Loop ---
	pollCtx, stopPolling := context.WithCancel(ctx)
	go runPollLoop(pollCtx, coordinator, pollerClient, auditIndexer, config.GetDuration(cfg.Pipeline.PollInterval), log)

	// --- HTTP Surface ---
	server := api.NewServer(coordinator, store, queue, pollerClient, auditIndexer, log)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.Routes(),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Intake manager stopped gracefully")
}

// runPollLoop fetches new application emails plus information-required
// follow-ups every interval and runs them as one batch. In-flight batches
// finish before shutdown completes because the loop owns the cycle context.
func runPollLoop(ctx context.Context, coordinator *batch.Coordinator, source *poller.Client, auditIndexer *audit.Indexer, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("poll loop started", map[string]interface{}{"interval": interval.String()})

	for {
		select {
		case <-ctx.Done():
			log.Info("poll loop stopped", nil)
			return
		case <-ticker.C:
		}

		events, err := source.FetchBatch(ctx)
		if err != nil {
			log.Warn("poll cycle fetch failed", map[string]interface{}{"error": err.Error()})
			continue
		}

		followups, err := source.FetchFollowup(ctx, "information-required")
		if err != nil {
			log.Warn("follow-up fetch failed", map[string]interface{}{"error": err.Error()})
		} else {
			events = append(events, followups...)
		}

		if len(events) == 0 {
			continue
		}

		report := coordinator.ProcessBatch(ctx, events, executor.Options{})
		if auditIndexer != nil {
			auditIndexer.IndexBatch(ctx, report)
		}
	}
}
