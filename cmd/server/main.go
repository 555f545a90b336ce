package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/aggregator"
	aggregatorhandler "trustgate/internal/aggregator/handler"
	aggregatormetrics "trustgate/internal/aggregator/metrics"
	"trustgate/internal/audit"
	"trustgate/internal/documents"
	httpapi "trustgate/internal/http"
	"trustgate/internal/platform/config"
	"trustgate/internal/platform/httpserver"
	"trustgate/internal/platform/logger"
	platformmetrics "trustgate/internal/platform/metrics"
	"trustgate/internal/platform/middleware"
	"trustgate/internal/platform/postgres"
	platformredis "trustgate/internal/platform/redis"
	"trustgate/internal/verification/checks"
	verificationhandler "trustgate/internal/verification/handler"
	verificationmetrics "trustgate/internal/verification/metrics"
	"trustgate/internal/verification/review"
	"trustgate/internal/verification/scoring"
	"trustgate/internal/verification/store"
	checklogstore "trustgate/internal/verification/store/checklog"
	documentstore "trustgate/internal/verification/store/document"
	subjectstore "trustgate/internal/verification/store/subject"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		subjects store.SubjectStore
		docs     store.DocumentStore
		checkLog store.CheckLogStore
		auditLog audit.Store
		pool     *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		subjects = subjectstore.NewPostgres(pool)
		docs = documentstore.NewPostgres(pool)
		checkLog = checklogstore.NewPostgres(pool)
		auditLog = audit.NewPostgresStore(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		subjects = subjectstore.NewInMemory()
		docs = documentstore.NewInMemory()
		checkLog = checklogstore.NewInMemory()
		auditLog = audit.NewInMemoryStore()
	}

	// Audit pipeline, optionally mirrored to Kafka.
	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka sink setup failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
	}
	publisher := audit.NewPublisher(auditLog, auditOpts...)

	thresholds := scoring.Thresholds{
		VerifyAt:    cfg.VerifyThreshold,
		RejectBelow: cfg.RejectThreshold,
	}
	wf, err := workflow.New(
		subjects, docs, checkLog,
		documents.NewInMemoryBlobStore(), documents.SimulatedOCR{},
		buildRegistry(),
		workflow.WithThresholds(map[domain.SubjectType]scoring.Thresholds{
			domain.SubjectTypeIndividual: thresholds,
			domain.SubjectTypeBusiness:   thresholds,
		}),
		workflow.WithCheckTimeout(cfg.CheckTimeout),
		workflow.WithAuditPublisher(publisher),
		workflow.WithMetrics(verificationmetrics.New()),
		workflow.WithLogger(log),
	)
	if err != nil {
		log.Error("workflow setup failed", "error", err)
		os.Exit(1)
	}

	reviewer, err := review.New(wf, subjects, log)
	if err != nil {
		log.Error("review setup failed", "error", err)
		os.Exit(1)
	}

	// Aggregator over the downstream verification services.
	remotes := make([]aggregator.RemoteService, 0, len(cfg.DownstreamServices))
	for name, baseURL := range cfg.DownstreamServices {
		remotes = append(remotes, aggregator.NewHTTPService(name, baseURL))
	}
	aggOpts := []aggregator.Option{
		aggregator.WithCallTimeout(cfg.AggregateCallTimeout),
		aggregator.WithDeadline(cfg.AggregateDeadline),
		aggregator.WithMetrics(aggregatormetrics.New()),
		aggregator.WithLogger(log),
	}
	if cfg.RedisAddr != "" {
		redisClient, err := platformredis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		aggOpts = append(aggOpts, aggregator.WithCache(
			aggregator.NewRedisCache(redisClient, cfg.AggregateCacheTTL, log),
		))
	}
	agg, err := aggregator.New(remotes, cfg.PrimaryService, aggOpts...)
	if err != nil {
		log.Warn("aggregation disabled", "error", err)
	}

	validator := middleware.NewTokenValidator(cfg.JWTSigningKey)
	vh := verificationhandler.New(wf, reviewer, publisher, validator, log)
	var ah *aggregatorhandler.Handler
	if agg != nil {
		ah = aggregatorhandler.New(agg, log)
	}

	health := func() error {
		if pool != nil {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		}
		return nil
	}

	router := httpapi.NewRouter(vh, ah, platformmetrics.New(), log, health)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting trustgate", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildRegistry assembles the check set per subject type. Weights follow the
// relative importance of each signal: a blacklist hit dominates, document
// authenticity weighs more than the self-reported fields.
func buildRegistry() *checks.Registry {
	registry := checks.NewRegistry()

	blacklist := &checks.BlacklistCheck{Source: &checks.StaticBlacklist{}}
	contact := &checks.ContactCheck{}
	address := &checks.AddressCheck{}
	authenticity := &checks.DocumentAuthenticityCheck{}

	for _, t := range []domain.SubjectType{domain.SubjectTypeIndividual, domain.SubjectTypeBusiness} {
		registry.Register(t, blacklist, 2)
		registry.Register(t, contact, 1)
		registry.Register(t, address, 1)
		registry.Register(t, authenticity, 1.5)
	}

	registry.Register(domain.SubjectTypeIndividual, &checks.RegistryLookup{
		CheckName: "identity_registry",
		Client:    permissiveRegistry{},
	}, 1.5)
	registry.Register(domain.SubjectTypeBusiness, &checks.RegistryLookup{
		CheckName: "business_registry",
		Client:    permissiveRegistry{},
	}, 1.5)
	registry.Register(domain.SubjectTypeBusiness, &checks.RegistryLookup{
		CheckName: "tax_authority",
		Client:    permissiveRegistry{},
	}, 1)

	return registry
}
