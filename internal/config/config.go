package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App           AppConfig
	Locality      LocalityConfig
	Activity      ActivityConfig
	DB            DBConfig
	Redis         RedisConfig
	Elasticsearch ElasticsearchConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	State         StateConfig
}

type AppConfig struct {
	Env        string `env:"APP_ENV"`
	Port       int    `env:"APP_PORT" env-default:"8080"`
	LogLevel   string `env:"LOG_LEVEL"`
	CORSOrigin string `env:"CORS_ALLOWED_ORIGIN" env-default:"*"`
}

// LocalityConfig points at the upstream postal locality service.
// Missing credentials do not stop the process; lookups fail with a configuration error instead.
type LocalityConfig struct {
	APIURL   string        `env:"AUSTRALIA_POST_API_URL"`
	Token    string        `env:"AUSTRALIA_POST_TOKEN"`
	Timeout  time.Duration `env:"AUSTRALIA_POST_TIMEOUT" env-default:"10s"`
	CacheTTL time.Duration `env:"LOCALITY_CACHE_TTL" env-default:"5m"`
}

func (c LocalityConfig) Configured() bool {
	return c.APIURL != "" && c.Token != ""
}

// Activity store kinds.
const (
	StoreMemory        = "memory"
	StorePostgres      = "postgres"
	StoreElasticsearch = "elasticsearch"
)

type ActivityConfig struct {
	Store        string        `env:"ACTIVITY_STORE" env-default:"memory"`
	BufferSize   int           `env:"ACTIVITY_BUFFER_SIZE" env-default:"256"`
	DrainTimeout time.Duration `env:"ACTIVITY_DRAIN_TIMEOUT" env-default:"5s"`
}

type DBConfig struct {
	DSN             string        `env:"DATABASE_DSN"`
	MaxConns        int32         `env:"DATABASE_MAX_CONNS" env-default:"10"`
	MinConns        int32         `env:"DATABASE_MIN_CONNS" env-default:"0"`
	MaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"30m"`
	MaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"5m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE" env-default:"true"`
}

// RedisConfig is optional. Without an address the lookup cache and rate limiter
// are disabled and session state is kept in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type ElasticsearchConfig struct {
	Node   string `env:"ELASTICSEARCH_NODE"`
	APIKey string `env:"ELASTICSEARCH_API_KEY"`
	Index  string `env:"ELASTICSEARCH_INDEX" env-default:"address-validator-logs"`
}

// AuthConfig protects the activity log read endpoint with operator tokens.
// An empty secret leaves the endpoint open (local development only).
type AuthConfig struct {
	JWTSecret string        `env:"AUTH_JWT_SECRET"`
	JWTIssuer string        `env:"AUTH_JWT_ISSUER" env-default:"address-validator"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" env-default:"12h"`
}

func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE" env-default:"120"`
}

type StateConfig struct {
	TTL time.Duration `env:"SESSION_STATE_TTL" env-default:"720h"`
}

// Load reads an optional env file (ENV_FILE, default .env) and then the process environment.
// Variables already present in the environment win over the file.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) normalize() {
	c.App.Env = strings.TrimSpace(c.App.Env)
	c.Locality.APIURL = strings.TrimSpace(c.Locality.APIURL)
	c.Activity.Store = strings.ToLower(strings.TrimSpace(c.Activity.Store))
	c.Elasticsearch.Node = strings.TrimRight(strings.TrimSpace(c.Elasticsearch.Node), "/")
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
}

// Validate reports every configuration problem at once and fills defaults for
// optional durations and sizes left at zero.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Locality.APIURL != "" {
		u, err := url.Parse(c.Locality.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("AUSTRALIA_POST_API_URL must be an absolute http(s) URL, got %q", c.Locality.APIURL))
		}
	}
	if c.Locality.Timeout <= 0 {
		c.Locality.Timeout = 10 * time.Second
	}
	if c.Locality.CacheTTL < 0 {
		errs = append(errs, errors.New("LOCALITY_CACHE_TTL must not be negative"))
	}

	switch c.Activity.Store {
	case "":
		c.Activity.Store = StoreMemory
	case StoreMemory:
	case StorePostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required when ACTIVITY_STORE=postgres"))
		}
	case StoreElasticsearch:
		if c.Elasticsearch.Node == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_NODE is required when ACTIVITY_STORE=elasticsearch"))
		}
		if c.Elasticsearch.Index == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_INDEX is required when ACTIVITY_STORE=elasticsearch"))
		}
		if c.IsProduction() && c.Elasticsearch.APIKey == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_API_KEY is required in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("ACTIVITY_STORE must be one of memory, postgres, elasticsearch, got %q", c.Activity.Store))
	}
	if c.IsProduction() && c.Activity.Store == StoreMemory {
		errs = append(errs, errors.New("ACTIVITY_STORE=memory is not allowed in production"))
	}
	if c.Activity.BufferSize <= 0 {
		c.Activity.BufferSize = 256
	}
	if c.Activity.DrainTimeout <= 0 {
		c.Activity.DrainTimeout = 5 * time.Second
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required in production"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}

	if c.RateLimit.PerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0, got %d", c.RateLimit.PerMinute))
	}
	if c.State.TTL <= 0 {
		c.State.TTL = 30 * 24 * time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
