// cmd/match-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venture-match-engine/internal/common/aws"
	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/database"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/observability"
	"venture-match-engine/internal/conversation"
	"venture-match-engine/internal/engine"
	"venture-match-engine/internal/engine/industry"
	"venture-match-engine/internal/engine/retrieval"
	"venture-match-engine/internal/engine/scoring"
	"venture-match-engine/internal/engine/swipe"
	"venture-match-engine/internal/models"
	"venture-match-engine/internal/notify"
	"venture-match-engine/internal/profile"
	"venture-match-engine/internal/quota"
	"venture-match-engine/internal/transport/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting match engine", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("postgres unavailable", nil)
		os.Exit(1)
	}
	defer pg.Close()

	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("redis unavailable", nil)
		os.Exit(1)
	}
	defer rdb.Close()

	es, err := connectElasticsearch(cfg, log)
	if err != nil {
		log.WithError(err).Error("elasticsearch unavailable", nil)
		os.Exit(1)
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	profiles := profile.NewElasticsearchStore(es.Client, cfg.Database.Elasticsearch.ProfileIndex, log)
	preferences := profile.NewPostgresPreferences(pg.GetDB())

	history := industry.NewPostgresHistory(pg.GetDB())
	affinity := industry.NewCache(rdb.GetClient(), history, cfg.Matching.Cache, log)

	scorer, err := scoring.NewScorer(cfg.Matching.Weights, cfg.Matching.Scoring, affinity, nil, log)
	if err != nil {
		log.WithError(err).Error("invalid scoring configuration", nil)
		os.Exit(1)
	}

	matchStore := swipe.NewPostgresStore(pg.GetDB())
	retriever := retrieval.NewRetriever(profiles, matchStore, retrieval.Config{
		ExcludeTier: models.SubscriptionTier(cfg.Matching.Scoring.ExcludeTier),
		MaxPull:     500,
	}, log)
	ranker := retrieval.NewRanker(retrieval.RankerConfig{
		DiversityHead:   cfg.Matching.Scoring.DiversityHead,
		DiversityEscape: cfg.Matching.Scoring.DiversityEscape,
		RecencyFloor:    cfg.Matching.Scoring.RecencyFloor,
		RecencyHalfLife: cfg.Matching.Scoring.RecencyHalfLife,
	})

	machine := swipe.NewMachine(matchStore, buildConversations(cfg, log), buildNotifier(ctx, cfg, log), log)
	gate := quota.NewGate(rdb.GetClient(), cfg.Quota, log)

	service := engine.NewService(
		profiles, preferences, retriever, scorer, ranker,
		machine, matchStore, gate,
		cfg.Matching.Scoring.MaxConcurrency, log,
	)

	go runExpirySweep(ctx, service, cfg.Matching.Swipe, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpapi.NewServer(service, log, obs).Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.Server.Address})
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-errCh:
		log.WithError(err).Error("http server failed", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete", nil)
	}
	log.Info("match engine stopped", nil)
}

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var client *database.PostgresClient
	err := retryWithBackoff(ctx, 5, 2*time.Second, log, "postgres", func() error {
		var err error
		client, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return client.Ping(ctx)
	})
	return client, err
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	var client *database.RedisClient
	err := retryWithBackoff(ctx, 5, 2*time.Second, log, "redis", func() error {
		var err error
		client, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return client.Ping(ctx)
	})
	return client, err
}

func connectElasticsearch(cfg *config.Config, log logger.Logger) (*database.ElasticsearchClient, error) {
	var client *database.ElasticsearchClient
	err := retryWithBackoff(context.Background(), 5, 2*time.Second, log, "elasticsearch", func() error {
		var err error
		client, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return client.Ping()
	})
	return client, err
}

// retryWithBackoff retries fn with a doubling delay until maxAttempts.
func retryWithBackoff(ctx context.Context, maxAttempts int, initialDelay time.Duration, log logger.Logger, name string, fn func() error) error {
	delay := initialDelay
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		log.WithError(err).Warn("connection attempt failed, retrying", map[string]interface{}{
			"target":  name,
			"attempt": attempt,
			"delay":   delay.String(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func buildConversations(cfg *config.Config, log logger.Logger) swipe.ConversationService {
	if cfg.Conversations.BaseURL == "" {
		log.Warn("conversation service URL not set, conversations disabled", nil)
		return conversation.NopService{}
	}
	return conversation.NewClient(cfg.Conversations, log)
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) swipe.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.NopNotifier{}
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		log.WithError(err).Warn("failed to init SNS client, notifications disabled", nil)
		return notify.NopNotifier{}
	}
	var sesClient notify.SESService
	if cfg.Notifications.Email.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.WithError(err).Warn("failed to init SES client, email disabled", nil)
		} else {
			sesClient = client
		}
	}
	return notify.NewAWSNotifier(snsClient, sesClient, cfg.Notifications, log)
}

func runExpirySweep(ctx context.Context, service *engine.Service, cfg config.SwipeConfig, log logger.Logger) {
	if cfg.SweepInterval <= 0 || cfg.PendingTTL <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := service.ExpireStalePending(ctx, cfg.PendingTTL)
			if err != nil {
				log.WithError(err).Warn("expiry sweep failed", nil)
				continue
			}
			if expired > 0 {
				log.Info("expired stale pending matches", map[string]interface{}{"count": expired})
			}
		}
	}
}
