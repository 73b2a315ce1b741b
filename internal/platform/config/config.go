// Package config loads the server and CLI configuration. Values are layered:
// built-in defaults, then an optional YAML or TOML file, then RECORDSHARE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECORDSHARE_"

// devSigningKey is only used when nothing else is configured.
const devSigningKey = "dev-secret-key-change-in-production"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server   Server   `yaml:"server" toml:"server"`
	Log      Log      `yaml:"log" toml:"log"`
	Auth     Auth     `yaml:"auth" toml:"auth"`
	Database Database `yaml:"database" toml:"database"`
	Redis    Redis    `yaml:"redis" toml:"redis"`
	Kafka    Kafka    `yaml:"kafka" toml:"kafka"`
	IPFS     IPFS     `yaml:"ipfs" toml:"ipfs"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Auth configures verification of identity tokens issued by the wallet
// gateway.
type Auth struct {
	SigningKey string        `yaml:"signing_key" toml:"signing_key"`
	Issuer     string        `yaml:"issuer" toml:"issuer"`
	Audience   string        `yaml:"audience" toml:"audience"`
	TokenTTL   time.Duration `yaml:"token_ttl" toml:"token_ttl"`
}

type Database struct {
	Driver       string        `yaml:"driver" toml:"driver"`
	DSN          string        `yaml:"dsn" toml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns" toml:"max_open_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout" toml:"tx_timeout"`
}

// Redis is optional; an empty URL disables the role cache.
type Redis struct {
	URL          string        `yaml:"url" toml:"url"`
	PoolSize     int           `yaml:"pool_size" toml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" toml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl" toml:"role_cache_ttl"`
}

// Kafka is optional; without brokers the audit outbox is not relayed.
type Kafka struct {
	Brokers       []string      `yaml:"brokers" toml:"brokers"`
	Topic         string        `yaml:"topic" toml:"topic"`
	RelayInterval time.Duration `yaml:"relay_interval" toml:"relay_interval"`
	BatchSize     int           `yaml:"batch_size" toml:"batch_size"`
}

type IPFS struct {
	GatewayURL string `yaml:"gateway_url" toml:"gateway_url"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
		Auth: Auth{
			SigningKey: devSigningKey,
			Issuer:     "recordshare",
			Audience:   "recordshare",
			TokenTTL:   time.Hour,
		},
		Database: Database{
			Driver:       DriverMemory,
			MaxOpenConns: 10,
			TxTimeout:    5 * time.Second,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			RoleCacheTTL: 24 * time.Hour,
		},
		Kafka: Kafka{
			Topic:         "recordshare.audit",
			RelayInterval: time.Second,
			BatchSize:     100,
		},
		IPFS: IPFS{GatewayURL: "https://ipfs.io"},
	}
}

// Load builds the configuration. path may be empty; otherwise its extension
// selects the decoder (.yaml, .yml or .toml).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []string
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = d
		}
	}

	str("ADDR", &cfg.Server.Addr)
	dur("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("JWT_SIGNING_KEY", &cfg.Auth.SigningKey)
	str("JWT_ISSUER", &cfg.Auth.Issuer)
	str("JWT_AUDIENCE", &cfg.Auth.Audience)
	dur("JWT_TOKEN_TTL", &cfg.Auth.TokenTTL)
	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_DSN", &cfg.Database.DSN)
	num("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	dur("TX_TIMEOUT", &cfg.Database.TxTimeout)
	str("REDIS_URL", &cfg.Redis.URL)
	num("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	dur("ROLE_CACHE_TTL", &cfg.Redis.RoleCacheTTL)
	if v, ok := lookup(EnvPrefix + "KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)
	dur("OUTBOX_INTERVAL", &cfg.Kafka.RelayInterval)
	str("IPFS_GATEWAY_URL", &cfg.IPFS.GatewayURL)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(errs, ", "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Database.Driver == DriverMemory {
		return fmt.Errorf("kafka relay needs a SQL database for the audit outbox")
	}
	return nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.SigningKey == devSigningKey
}
