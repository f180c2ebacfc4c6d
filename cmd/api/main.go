package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/config"
	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/infra/analytics"
	"github.com/xavierca1/ligue-quotes/internal/infra/database"
	"github.com/xavierca1/ligue-quotes/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-quotes/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-quotes/internal/infra/http/router"
	"github.com/xavierca1/ligue-quotes/internal/infra/integration/dialer"
	"github.com/xavierca1/ligue-quotes/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-quotes/internal/infra/mail"
	"github.com/xavierca1/ligue-quotes/internal/infra/queue"
	"github.com/xavierca1/ligue-quotes/internal/logger"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	eventStore, eventReader, closeStore, err := newEventStore(ctx, cfg.Analytics, db)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Analytics.Driver).Msg("failed to open analytics store")
	}
	defer closeStore()

	// 2. Notification channels
	mailSender := mail.NewEmailSender(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.AgentRecipients,
	)
	crmClient := kommo.NewClient(kommo.Config{
		Subdomain:  cfg.Kommo.Subdomain,
		Token:      cfg.Kommo.Token,
		PipelineID: cfg.Kommo.PipelineID,
		StatusID:   cfg.Kommo.StatusID,
	})

	rabbitMQ, producer := newCallRouting(cfg.RabbitMQ.URL)
	defer producer.Close()
	if rabbitMQ != nil {
		defer rabbitMQ.Close()
	}

	// 3. Call routing worker
	if cfg.RabbitMQ.URL != "" && cfg.Dialer.URL != "" {
		supervisor := queue.NewSupervisor(cfg.RabbitMQ.URL, dialer.NewClient(cfg.Dialer.URL, cfg.Dialer.Token))
		go supervisor.Run(ctx)
	}

	// 4. Use cases
	fanout := usecase.NewFanout(crmClient, mailSender, producer, leadRepo, notificationRepo)
	fanout.ChannelTimeout = cfg.Fanout.ChannelTimeout
	fanout.CRMLinkWait = cfg.Fanout.CRMLinkWait
	fanout.OnTask = middleware.RecordNotification

	submitLeadUC := usecase.NewSubmitLeadUseCase(leadRepo, fanout)
	submitLeadUC.OnCreated = middleware.RecordLead

	sink := usecase.NewAnalyticsSink(eventStore)
	sink.OnRecorded = middleware.RecordFunnelEvent
	trackEventUC := usecase.NewTrackEventUseCase(sink)

	// 5. Handlers
	var broker handlers.Broker
	if cfg.RabbitMQ.URL != "" {
		broker = producer
	}
	health := handlers.NewHealthHandler(db, broker, map[string]handlers.Configurable{
		string(entity.ChannelCRMLead):       crmClient,
		string(entity.ChannelAgentEmail):    mailSender,
		string(entity.ChannelConsumerEmail): mailSender,
		string(entity.ChannelCallRouting):   producer,
	})

	limiter, closeLimiter := newRateLimiter(cfg)
	defer closeLimiter()

	// 6. Router
	r := router.New(router.Handlers{
		Lead:     handlers.NewLeadHandler(submitLeadUC),
		Tracking: handlers.NewTrackingHandler(trackEventUC),
		Diagnostics: &handlers.DiagnosticsHandler{
			Leads:    leadRepo,
			Attempts: notificationRepo,
			Events:   eventReader,
		},
		Health: health,
	}, router.Options{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimiter:       limiter,
		TrustProxyHeaders: cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("analytics", cfg.Analytics.Driver).Msg("quotes api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// in-flight notification fan-outs outlive their requests
	waitFanouts(shutdownCtx, submitLeadUC)
}

func newEventStore(ctx context.Context, cfg config.AnalyticsConfig, db *sql.DB) (usecase.EventStore, entity.FunnelEventReader, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case "clickhouse":
		store, err := analytics.NewClickHouseStore(ctx, analytics.ClickHouseConfig{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		return store, nil, func() { store.Close() }, nil
	case "kafka":
		store := analytics.NewKafkaStore(analytics.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		return store, nil, func() { store.Close() }, nil
	default:
		repo := database.NewFunnelEventRepository(db)
		return repo, repo, noop, nil
	}
}

// newCallRouting connects eagerly so a broker misconfiguration shows up at boot.
// When the broker is down at boot the producer dials lazily on first use instead.
func newCallRouting(url string) (*queue.RabbitMQ, *queue.RabbitMQProducer) {
	if url == "" {
		log.Warn().Msg("RABBITMQ_URL not set, call routing disabled")
		return nil, queue.NewProducer("")
	}

	mq, err := queue.NewRabbitMQ(url)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable at startup, will retry on first publish")
		return nil, queue.NewProducer(url)
	}
	return mq, queue.NewProducerFromConnection(url, mq)
}

func newRateLimiter(cfg *config.Config) (handlers.RateLimiter, func()) {
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return handlers.NewRedisRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window), func() { rdb.Close() }
	}

	rl := handlers.NewMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	return rl, rl.Stop
}

func waitFanouts(ctx context.Context, uc *usecase.SubmitLeadUseCase) {
	done := make(chan struct{})
	go func() {
		uc.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("notification fan-outs drained")
	case <-ctx.Done():
		log.Warn().Msg("shutdown timeout with notification fan-outs still running")
	}
}
