package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "recordshare/internal/jwt_token"
	"recordshare/internal/platform/config"
	"recordshare/internal/platform/database"
	"recordshare/internal/platform/httpserver"
	"recordshare/internal/platform/kafka"
	"recordshare/internal/platform/logger"
	"recordshare/internal/platform/redis"
	registryhandler "recordshare/internal/registry/handler"
	registrymetrics "recordshare/internal/registry/metrics"
	registryservice "recordshare/internal/registry/service"
	"recordshare/internal/registry/store/memory"
	"recordshare/internal/registry/store/rolecache"
	"recordshare/internal/registry/store/sqlstore"
	"recordshare/pkg/contentref"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/platform/audit/outbox"
	kafkasink "recordshare/pkg/platform/audit/publishers/kafka"
	auditmemory "recordshare/pkg/platform/audit/store/memory"
	auditsql "recordshare/pkg/platform/audit/store/sqlstore"
	"recordshare/pkg/platform/middleware/metadata"
	"recordshare/pkg/platform/middleware/request"
	"recordshare/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load(os.Getenv("RECORDSHARE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// app holds everything run needs to serve and shut down.
type app struct {
	router  http.Handler
	relay   *outbox.Relay
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Server, a.router, log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting recordshare", "addr", cfg.Server.Addr, "storage", cfg.Database.Driver)
		if err := httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout); err != nil {
			return err
		}
		log.Info("server shut down")
		return nil
	})

	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox relay: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := map[string]healthCheck{}

	var (
		store    registryservice.Store
		auditPub registryservice.AuditPublisher
		opts     = []registryservice.Option{
			registryservice.WithLogger(log),
			registryservice.WithMetrics(registrymetrics.New(reg)),
		}
		db *sql.DB
	)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; state is lost on restart")
		store = memory.New()
		auditPub = audit.NewPublisher(auditmemory.NewInMemoryStore(), audit.WithLogger(log))
		opts = append(opts, registryservice.WithTxRunner(registryservice.NewShardedTx(cfg.Database.TxTimeout)))
	default:
		var err error
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		applied, err := database.Migrate(ctx, db, cfg.Database.Driver)
		if err != nil {
			a.close()
			return nil, err
		}
		if len(applied) > 0 {
			log.Info("applied migrations", "migrations", applied)
		}
		store = sqlstore.New(db)
		auditPub = audit.NewPublisher(auditsql.New(db), audit.WithLogger(log))
		opts = append(opts, registryservice.WithTxRunner(newRegistrySQLTx(db, cfg.Database.Driver, cfg.Database.TxTimeout)))
		checks["database"] = db.PingContext
	}
	opts = append(opts, registryservice.WithAuditPublisher(auditPub))

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
		opts = append(opts, registryservice.WithRoleCache(rolecache.New(redisClient.Client, rolecache.WithTTL(cfg.Redis.RoleCacheTTL))))
		checks["redis"] = redisClient.Health
	}

	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		a.close()
		return nil, err
	}
	if kafkaClient != nil && db == nil {
		log.Warn("audit relay needs a SQL outbox; kafka brokers ignored", "driver", cfg.Database.Driver)
		kafkaClient.Close()
		kafkaClient = nil
	}
	if kafkaClient != nil {
		a.closers = append(a.closers, closeKafka(kafkaClient))
		if err := kafkasink.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		a.relay = outbox.NewRelay(auditsql.New(db), kafkasink.NewSink(kafkaClient, cfg.Kafka.Topic),
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
			outbox.WithLogger(log),
			outbox.WithMetrics(outbox.NewMetrics(reg)),
		)
	}

	if cfg.UsesDevSigningKey() {
		log.Warn("using development JWT signing key; set RECORDSHARE_JWT_SIGNING_KEY")
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	registry := registryservice.New(store, opts...)
	handler := registryhandler.New(registry, tokens, contentref.NewResolver(cfg.IPFS.GatewayURL), log)

	a.router = newRouter(log, handler, reg, checks)
	return a, nil
}

func newRouter(log *slog.Logger, handler *registryhandler.Handler, reg *prometheus.Registry, checks map[string]healthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))

	r.Get("/health", healthHandler(checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.Register(r)
	return r
}

func closeKafka(client *kgo.Client) func() error {
	return func() error {
		client.Close()
		return nil
	}
}
