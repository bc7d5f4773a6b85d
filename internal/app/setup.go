// Package app contains the application setup for the order bot.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/orderbot/internal/catalog"
	"github.com/abgdnv/orderbot/internal/config"
	"github.com/abgdnv/orderbot/internal/engine"
	"github.com/abgdnv/orderbot/internal/service"
	"github.com/abgdnv/orderbot/internal/session"
	"github.com/abgdnv/orderbot/internal/store"
	"github.com/abgdnv/orderbot/internal/transport/rest"
	"github.com/abgdnv/orderbot/internal/transport/telegram"
	"github.com/abgdnv/orderbot/pkg/auth"
	"github.com/abgdnv/orderbot/pkg/bootstrap"
	"github.com/abgdnv/orderbot/pkg/kafka"
	"github.com/abgdnv/orderbot/pkg/messaging"
	"github.com/abgdnv/orderbot/pkg/nats"
	"github.com/abgdnv/orderbot/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

const serviceName = "orderbot"

type Dependencies struct {
	Dispatcher *service.Dispatcher
	Sender     telegram.Sender
	Metrics    http.Handler
	Logger     *slog.Logger
	// Verifier guards the order API when set.
	Verifier auth.Verifier

	webhookSecret string
	closers       []func() error
}

// Close releases every connection opened by SetupDependencies, in reverse order.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// SetupDependencies connects the configured backends and builds the dispatcher.
// metrics may be nil, in which case /metrics is not exposed.
func SetupDependencies(ctx context.Context, cfg *config.Config, metrics http.Handler, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Metrics: metrics, Logger: logger}
	if cfg.TelegramEnabled() {
		deps.webhookSecret = cfg.Telegram.WebhookSecret
	}
	if err := deps.setup(ctx, cfg); err != nil {
		if closeErr := deps.Close(); closeErr != nil {
			logger.Warn("Failed to release resources after setup error", "error", closeErr)
		}
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) setup(ctx context.Context, cfg *config.Config) error {
	var db store.DB
	var querier catalog.Querier
	if cfg.NeedsDatabase() {
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.URL, d.Logger); err != nil {
				return err
			}
		}
		pool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
		d.Logger.Info("Successfully connected to the database!")
		db, querier = pool, pool
	}

	cat, err := loadCatalog(ctx, cfg.Catalog, querier)
	if err != nil {
		return err
	}
	d.Logger.Info("Catalog loaded", "source", cfg.Catalog.Source, "products", cat.Len())

	orders := store.NewInMemoryStore()
	if cfg.Storage.Orders == config.BackendPostgres {
		orders = store.NewPgStore(db)
	}

	sessions := session.NewInMemoryStore()
	var locker session.Locker = session.NewKeyedMutex()
	if cfg.NeedsRedis() {
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Timeout)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, client.Close)
		d.Logger.Info("Successfully connected to redis!")
		sessions = session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Redis.SessionTTL)
		locker = session.NewRedisLocker(client, cfg.Redis.KeyPrefix, cfg.Redis.Lock.TTL, cfg.Redis.Lock.Wait, cfg.Redis.Lock.PollInterval)
	}

	eng, err := engine.New(cat, cfg.Bot.Engine(), orders)
	if err != nil {
		return err
	}

	publisher, err := d.newPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	d.Dispatcher = service.NewDispatcher(service.Dependencies{
		Engine:    eng,
		Sessions:  sessions,
		Locker:    locker,
		Orders:    orders,
		Publisher: publisher,
		Retry:     cfg.Resilience.Retry,
		RateLimit: cfg.RateLimit,
		Logger:    d.Logger,
	})

	if cfg.Auth.Enabled {
		verifier, err := auth.NewJWKSVerifier(ctx, cfg.Auth)
		if err != nil {
			return err
		}
		d.Verifier = verifier
	}

	if cfg.Telegram.Token != "" {
		d.Sender = telegram.NewBotSender(cfg.Telegram, cfg.Resilience.CircuitBreaker, d.Logger)
	} else {
		d.Sender = telegram.NewLogSender(d.Logger)
	}
	return nil
}

func loadCatalog(ctx context.Context, cfg config.CatalogConfig, querier catalog.Querier) (*catalog.Catalog, error) {
	if cfg.Source == config.BackendPostgres {
		return catalog.Load(ctx, catalog.NewPgLoader(querier))
	}
	products, err := cfg.ToProducts()
	if err != nil {
		return nil, err
	}
	return catalog.New(products)
}

func (d *Dependencies) newPublisher(ctx context.Context, cfg *config.Config) (messaging.Publisher, error) {
	switch cfg.Events.Broker {
	case config.BrokerNats:
		nc, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() error { nc.Close(); return nil })
		js, err := nats.NewJetStreamContext(nc)
		if err != nil {
			return nil, err
		}
		if err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.OrdersCreatedSubject); err != nil {
			return nil, err
		}
		d.Logger.Info("Publishing order events to NATS", "stream", cfg.Nats.Stream)
		return nats.NewNatsPublisher(js), nil
	case config.BrokerKafka:
		p := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout)
		d.closers = append(d.closers, p.Close)
		d.Logger.Info("Publishing order events to Kafka", "topic", cfg.Kafka.Topic)
		return p, nil
	default:
		return messaging.NoopPublisher{}, nil
	}
}

// SetupHttpHandler builds the router with the REST API, the Telegram webhook and metrics.
// Used by tests to exercise the full HTTP surface.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, serviceName)
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	restHandler := rest.NewHandler(deps.Dispatcher, deps.Logger)
	if deps.Verifier != nil {
		restHandler.GuardOrders(auth.RequireBearer(deps.Verifier, deps.Logger))
	}
	restHandler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
	if deps.webhookSecret != "" {
		telegram.NewHandler(deps.webhookSecret, deps.Dispatcher, deps.Sender, deps.Logger).RegisterRoutes(mux)
	} else {
		deps.Logger.Info("Telegram webhook is disabled")
	}
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, server.RegisterHealth(hs)), hs
}
