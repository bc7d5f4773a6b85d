// Package config holds the orderbot service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/orderbot/internal/catalog"
	"github.com/abgdnv/orderbot/internal/engine"
	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/abgdnv/orderbot/pkg/config/configloader"
	"github.com/abgdnv/orderbot/pkg/resilience"
	"github.com/shopspring/decimal"
)

var _ configloader.Validator = (*Config)(nil)

// retryLoopsPerMessage counts the retried calls one message can make while holding
// the user lock: the order insert, the session save and its detached retry.
const retryLoopsPerMessage = 3

// Backend names accepted by the storage, catalog and events sections.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BrokerNone      = "none"
	BrokerNats      = "nats"
	BrokerKafka     = "kafka"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Grpc       config.GrpcServerConfig `koanf:"grpc"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Redis      config.RedisConfig      `koanf:"redis"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Kafka      config.KafkaConfig      `koanf:"kafka"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Telegram   config.TelegramConfig   `koanf:"telegram"`
	RateLimit  config.RateLimitConfig  `koanf:"ratelimit"`
	Auth       config.AuthConfig       `koanf:"auth"`
	Bot        BotConfig               `koanf:"bot"`
	Catalog    CatalogConfig           `koanf:"catalog"`
	Storage    StorageConfig           `koanf:"storage"`
	Events     EventsConfig            `koanf:"events"`
}

// BotConfig is the conversation vocabulary and behavior.
type BotConfig struct {
	MenuKeywords    []string               `koanf:"menukeywords"`
	PayKeywords     []string               `koanf:"paykeywords"`
	BackTokens      []string               `koanf:"backtokens"`
	ConfirmKeywords []string               `koanf:"confirmkeywords"`
	CancelKeywords  []string               `koanf:"cancelkeywords"`
	PaymentMethods  []engine.PaymentMethod `koanf:"paymentmethods"`
	ETA             string                 `koanf:"eta"`
	StatusLookup    string                 `koanf:"statuslookup"`
	GeneralizedBack bool                   `koanf:"generalizedback"`
}

// Engine converts the section into the engine configuration.
func (c *BotConfig) Engine() engine.Config {
	return engine.Config{
		MenuKeywords:    c.MenuKeywords,
		PayKeywords:     c.PayKeywords,
		BackTokens:      c.BackTokens,
		ConfirmKeywords: c.ConfirmKeywords,
		CancelKeywords:  c.CancelKeywords,
		PaymentMethods:  c.PaymentMethods,
		ETA:             c.ETA,
		StatusLookup:    engine.StatusLookupMode(c.StatusLookup),
		GeneralizedBack: c.GeneralizedBack,
	}
}

func (c *BotConfig) Validate() error {
	if len(c.MenuKeywords) == 0 {
		return fmt.Errorf("bot.menukeywords must not be empty")
	}
	if len(c.PayKeywords) == 0 {
		return fmt.Errorf("bot.paykeywords must not be empty")
	}
	if len(c.ConfirmKeywords) == 0 || len(c.CancelKeywords) == 0 {
		return fmt.Errorf("bot.confirmkeywords and bot.cancelkeywords must not be empty")
	}
	if len(c.PaymentMethods) == 0 {
		return fmt.Errorf("bot.paymentmethods must not be empty")
	}
	for i, pm := range c.PaymentMethods {
		if strings.TrimSpace(pm.Label) == "" {
			return fmt.Errorf("bot.paymentmethods[%d].label is not configured", i)
		}
	}
	if c.ETA == "" {
		return fmt.Errorf("bot.eta is not configured")
	}
	switch engine.StatusLookupMode(c.StatusLookup) {
	case engine.StatusLookupSynthetic, engine.StatusLookupValidated:
	default:
		return fmt.Errorf("bot.statuslookup must be %q or %q, got %q",
			engine.StatusLookupSynthetic, engine.StatusLookupValidated, c.StatusLookup)
	}
	return nil
}

// ProductConfig is a catalog entry. Price is a decimal string so it survives env and YAML unchanged.
type ProductConfig struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Price       string `koanf:"price"`
	Stock       int    `koanf:"stock"`
	Description string `koanf:"description"`
}

// CatalogConfig selects where products come from.
type CatalogConfig struct {
	Source   string          `koanf:"source"`
	Products []ProductConfig `koanf:"products"`
}

// ToProducts parses the configured products.
func (c *CatalogConfig) ToProducts() ([]catalog.Product, error) {
	products := make([]catalog.Product, 0, len(c.Products))
	for _, p := range c.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog product %q: invalid price %q: %w", p.ID, p.Price, err)
		}
		products = append(products, catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Price:       price,
			Stock:       p.Stock,
			Description: p.Description,
		})
	}
	return products, nil
}

func (c *CatalogConfig) Validate() error {
	switch c.Source {
	case BackendMemory:
		if len(c.Products) == 0 {
			return fmt.Errorf("catalog.products must not be empty when catalog.source is %q", BackendMemory)
		}
		if _, err := c.ToProducts(); err != nil {
			return err
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Source)
	}
	return nil
}

// StorageConfig selects the session and order backends.
type StorageConfig struct {
	Sessions string `koanf:"sessions"`
	Orders   string `koanf:"orders"`
}

func (c *StorageConfig) Validate() error {
	if c.Sessions != BackendMemory && c.Sessions != BackendRedis {
		return fmt.Errorf("storage.sessions must be %q or %q, got %q", BackendMemory, BackendRedis, c.Sessions)
	}
	if c.Orders != BackendMemory && c.Orders != BackendPostgres {
		return fmt.Errorf("storage.orders must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Orders)
	}
	return nil
}

// EventsConfig selects the broker order events are published to.
type EventsConfig struct {
	Broker string `koanf:"broker"`
}

func (c *EventsConfig) Validate() error {
	switch c.Broker {
	case BrokerNone, BrokerNats, BrokerKafka:
		return nil
	default:
		return fmt.Errorf("events.broker must be one of %q, %q, %q, got %q", BrokerNone, BrokerNats, BrokerKafka, c.Broker)
	}
}

// NeedsDatabase reports whether any component is backed by PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Storage.Orders == BackendPostgres || c.Catalog.Source == BackendPostgres
}

// TelegramEnabled reports whether the Telegram webhook is exposed.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.WebhookSecret != "" || c.Telegram.Token != ""
}

// NeedsRedis reports whether sessions live in Redis.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Sessions == BackendRedis
}

// Defaults are the built-in values: an in-memory bot with the stock catalog.
func Defaults() map[string]any {
	bot := engine.DefaultConfig()
	methods := make([]any, 0, len(bot.PaymentMethods))
	for _, pm := range bot.PaymentMethods {
		methods = append(methods, map[string]any{"label": pm.Label, "keywords": pm.Keywords})
	}
	return map[string]any{
		"server.port":               8080,
		"server.maxheaderbytes":     1 << 20,
		"server.timeout.read":       10 * time.Second,
		"server.timeout.write":      10 * time.Second,
		"server.timeout.idle":       60 * time.Second,
		"server.timeout.readheader": 5 * time.Second,

		"grpc.enabled":    false,
		"grpc.port":       "9090",
		"grpc.reflection": false,

		"database.timeout": 5 * time.Second,
		"database.migrate": true,

		"redis.keyprefix":         "orderbot",
		"redis.timeout":           3 * time.Second,
		"redis.sessionttl":        24 * time.Hour,
		"redis.lock.ttl":          10 * time.Second,
		"redis.lock.wait":         5 * time.Second,
		"redis.lock.pollinterval": 50 * time.Millisecond,

		"nats.timeout": 5 * time.Second,
		"nats.stream":  "ORDERS",

		"kafka.topic":        "orderbot.orders",
		"kafka.batchtimeout": 50 * time.Millisecond,

		"log.level":        "info",
		"pprof.enabled":    false,
		"pprof.addr":       "localhost:6060",
		"shutdown.timeout": 10 * time.Second,

		"telemetry.traces.enabled":          false,
		"telemetry.traces.otlphttp.timeout": 5 * time.Second,

		"resilience.retry.maxattempts":                  3,
		"resilience.retry.initialbackoff":               50 * time.Millisecond,
		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.errorratepercent":    50,
		"resilience.circuitbreaker.opentimeout":         30 * time.Second,

		"telegram.timeout": 10 * time.Second,

		"auth.enabled":     false,
		"auth.mininterval": 5 * time.Minute,

		"ratelimit.enabled":   true,
		"ratelimit.persecond": 2.0,
		"ratelimit.burst":     5,
		"ratelimit.idlettl":   10 * time.Minute,

		"bot.menukeywords":    bot.MenuKeywords,
		"bot.paykeywords":     bot.PayKeywords,
		"bot.backtokens":      bot.BackTokens,
		"bot.confirmkeywords": bot.ConfirmKeywords,
		"bot.cancelkeywords":  bot.CancelKeywords,
		"bot.paymentmethods":  methods,
		"bot.eta":             bot.ETA,
		"bot.statuslookup":    string(bot.StatusLookup),
		"bot.generalizedback": false,

		"catalog.source": BackendMemory,
		"catalog.products": []any{
			map[string]any{"id": "1", "name": "Agua Mineral 355ml", "price": "10.00", "stock": 100, "description": "Botella PET 355ml"},
			map[string]any{"id": "2", "name": "Agua Mineral 600ml", "price": "15.00", "stock": 80, "description": "Botella PET 600ml"},
			map[string]any{"id": "3", "name": "Agua Mineral de Vidrio", "price": "25.00", "stock": 50, "description": "Botella de vidrio 500ml"},
		},

		"storage.sessions": BackendMemory,
		"storage.orders":   BackendMemory,
		"events.broker":    BrokerNone,
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Grpc.String())
	if c.NeedsDatabase() {
		b.WriteString(c.Database.String())
	}
	if c.NeedsRedis() {
		b.WriteString(c.Redis.String())
	}
	switch c.Events.Broker {
	case BrokerNats:
		b.WriteString(c.Nats.String())
	case BrokerKafka:
		b.WriteString(c.Kafka.String())
	}
	if c.TelegramEnabled() {
		b.WriteString(c.Telegram.String())
	}
	b.WriteString(c.Resilience.String())
	b.WriteString(c.RateLimit.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())

	b.WriteString("\n--- Bot ---\n")
	b.WriteString(fmt.Sprintf("  catalog.source: %s (%d configured products)\n", c.Catalog.Source, len(c.Catalog.Products)))
	b.WriteString(fmt.Sprintf("  storage.sessions: %s\n", c.Storage.Sessions))
	b.WriteString(fmt.Sprintf("  storage.orders: %s\n", c.Storage.Orders))
	b.WriteString(fmt.Sprintf("  events.broker: %s\n", c.Events.Broker))
	b.WriteString(fmt.Sprintf("  bot.statuslookup: %s\n", c.Bot.StatusLookup))
	b.WriteString(fmt.Sprintf("  bot.generalizedback: %t\n", c.Bot.GeneralizedBack))
	b.WriteString(fmt.Sprintf("  bot.paymentmethods: %d\n", len(c.Bot.PaymentMethods)))
	b.WriteString(fmt.Sprintf("  bot.eta: %s\n", c.Bot.ETA))

	return b.String()
}

// Validate checks the configuration. Backend sections are only checked when selected.
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.Grpc, &c.Log, &c.PProf, &c.Shutdown, &c.Telemetry,
		&c.Resilience, &c.RateLimit, &c.Auth, &c.Bot, &c.Catalog, &c.Storage, &c.Events,
	}
	if c.TelegramEnabled() {
		validators = append(validators, &c.Telegram)
	}
	if c.NeedsDatabase() {
		validators = append(validators, &c.Database)
	}
	if c.NeedsRedis() {
		validators = append(validators, &c.Redis)
	}
	switch c.Events.Broker {
	case BrokerNats:
		validators = append(validators, &c.Nats)
	case BrokerKafka:
		validators = append(validators, &c.Kafka)
	}

	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.NeedsRedis() {
		// The Redis lock is not renewed, so it must outlive every backoff a single message can go through.
		if budget := retryLoopsPerMessage * resilience.MaxDelay(c.Resilience.Retry); c.Redis.Lock.TTL <= budget {
			return fmt.Errorf("redis.lock.ttl (%s) must exceed the worst-case retry backoff of one message (%s)", c.Redis.Lock.TTL, budget)
		}
	}
	return nil
}
