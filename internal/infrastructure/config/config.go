package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	POS         POSConfig
	Webhook     WebhookConfig
	GuestNotify GuestNotifyConfig
	Lock        LockConfig
	Tab         TabConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string

	CORSAllowOrigins []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// IdempotencyTTL is how long an Idempotency-Key on POST /orders is remembered
	IdempotencyTTL time.Duration
}

// POSConfig holds the POS API credentials and shadow item settings
type POSConfig struct {
	Provider           string // "square" or "memory"
	BaseURL            string
	AccessToken        string
	APIVersion         string
	LocationID         string
	Currency           string
	ShadowCategoryName string
	Timeout            time.Duration
}

// WebhookDestination is one configured notification sink
type WebhookDestination struct {
	Name   string   `validate:"required"`
	URL    string   `validate:"required,url"`
	Kind   string   `validate:"omitempty,oneof=json content amqp"`
	Events []string `validate:"dive,oneof=order_created session_closed price_mismatch"`
}

// WebhookConfig holds outbound notification settings
type WebhookConfig struct {
	Destinations   []WebhookDestination `validate:"dive"`
	SendTimeout    time.Duration
	ConnectTimeout time.Duration
	MaxParallel    int
	AMQPExchange   string
}

// GuestNotifyConfig holds the guest push messaging settings
type GuestNotifyConfig struct {
	BaseURL      string
	ChannelToken string
	Timeout      time.Duration
}

// LockConfig selects the per-room lock backend
type LockConfig struct {
	Backend      string // "memory" or "redis"
	TTL          time.Duration
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// lockedPOSCalls is the longest chain of sequential POS calls one order can
// make while holding its room lock: update (retrieve, upsert, read-back),
// fallback create (category search, category upsert, item upsert, read-back),
// archive of the replaced item (two retrieves, upsert) and a price restore.
const lockedPOSCalls = 13

// MinLockTTL is the shortest room lock TTL that outlives a worst-case order
func (c *Config) MinLockTTL() time.Duration {
	return c.POS.Timeout * lockedPOSCalls
}

// TabConfig holds room tab business settings
type TabConfig struct {
	TaxRate decimal.Decimal
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for metrics
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TAB_ prefix (e.g., TAB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("TAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	taxRate := decimal.Zero
	if raw := v.GetString("tab.tax_rate"); raw != "" {
		var err error
		taxRate, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("tab.tax_rate: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),

			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),

			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),

			IdempotencyTTL: v.GetDuration("http.idempotency_ttl"),
		},
		POS: POSConfig{
			Provider:           v.GetString("pos.provider"),
			BaseURL:            v.GetString("pos.base_url"),
			AccessToken:        v.GetString("pos.access_token"),
			APIVersion:         v.GetString("pos.api_version"),
			LocationID:         v.GetString("pos.location_id"),
			Currency:           v.GetString("pos.currency"),
			ShadowCategoryName: v.GetString("pos.shadow_category_name"),
			Timeout:            v.GetDuration("pos.timeout"),
		},
		Webhook: WebhookConfig{
			Destinations:   loadDestinations(v),
			SendTimeout:    v.GetDuration("webhook.send_timeout"),
			ConnectTimeout: v.GetDuration("webhook.connect_timeout"),
			MaxParallel:    v.GetInt("webhook.max_parallel"),
			AMQPExchange:   v.GetString("webhook.amqp_exchange"),
		},
		GuestNotify: GuestNotifyConfig{
			BaseURL:      v.GetString("guest_notify.base_url"),
			ChannelToken: v.GetString("guest_notify.channel_token"),
			Timeout:      v.GetDuration("guest_notify.timeout"),
		},
		Lock: LockConfig{
			Backend:      v.GetString("lock.backend"),
			TTL:          v.GetDuration("lock.ttl"),
			PollInterval: v.GetDuration("lock.poll_interval"),
			WaitTimeout:  v.GetDuration("lock.wait_timeout"),
		},
		Tab: TabConfig{
			TaxRate: taxRate,
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDestinations reads the webhook.destinations table. Each key is the
// destination name; the value holds url, optional kind and optional events.
func loadDestinations(v *viper.Viper) []WebhookDestination {
	raw := v.GetStringMap("webhook.destinations")
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	dests := make([]WebhookDestination, 0, len(names))
	for _, name := range names {
		prefix := "webhook.destinations." + name + "."
		dests = append(dests, WebhookDestination{
			Name:   name,
			URL:    v.GetString(prefix + "url"),
			Kind:   v.GetString(prefix + "kind"),
			Events: v.GetStringSlice(prefix + "events"),
		})
	}
	return dests
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "roomtab"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "roomtab"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 120
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.POS.Provider == "" {
		cfg.POS.Provider = "square"
	}
	if cfg.POS.BaseURL == "" {
		cfg.POS.BaseURL = "https://connect.squareup.com"
	}
	if cfg.POS.APIVersion == "" {
		cfg.POS.APIVersion = "2024-01-18"
	}
	if cfg.POS.Currency == "" {
		cfg.POS.Currency = "JPY"
	}
	if cfg.POS.Timeout == 0 {
		cfg.POS.Timeout = 10 * time.Second
	}
	if cfg.Webhook.SendTimeout == 0 {
		cfg.Webhook.SendTimeout = 1500 * time.Millisecond
	}
	if cfg.Webhook.ConnectTimeout == 0 {
		cfg.Webhook.ConnectTimeout = time.Second
	}
	if cfg.Webhook.MaxParallel == 0 {
		cfg.Webhook.MaxParallel = 4
	}
	if cfg.Webhook.AMQPExchange == "" {
		cfg.Webhook.AMQPExchange = "roomtab_notifications"
	}
	if cfg.GuestNotify.BaseURL == "" {
		cfg.GuestNotify.BaseURL = "https://api.line.me"
	}
	if cfg.GuestNotify.Timeout == 0 {
		cfg.GuestNotify.Timeout = 3 * time.Second
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 10 * time.Minute
	}
	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = "memory"
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = cfg.MinLockTTL()
	}
	if cfg.Lock.PollInterval == 0 {
		cfg.Lock.PollInterval = 50 * time.Millisecond
	}
	if cfg.Lock.WaitTimeout == 0 {
		cfg.Lock.WaitTimeout = 15 * time.Second
	}
	if cfg.Tab.TaxRate.IsZero() {
		cfg.Tab.TaxRate = decimal.RequireFromString("0.10")
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "roomtab"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.POS.Provider {
	case "square":
		if c.App.Env == "production" && c.POS.AccessToken == "" {
			return fmt.Errorf("pos.access_token is required in production")
		}
		if c.POS.LocationID == "" && c.App.Env == "production" {
			return fmt.Errorf("pos.location_id is required in production")
		}
	case "memory":
		if c.App.Env == "production" {
			return fmt.Errorf("pos.provider=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("pos.provider must be 'square' or 'memory', got %q", c.POS.Provider)
	}

	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Lock.TTL < c.MinLockTTL() {
			return fmt.Errorf("lock.ttl (%s) must cover %d POS calls of pos.timeout (%s), at least %s",
				c.Lock.TTL, lockedPOSCalls, c.POS.Timeout, c.MinLockTTL())
		}
	default:
		return fmt.Errorf("lock.backend must be 'memory' or 'redis', got %q", c.Lock.Backend)
	}

	if c.Tab.TaxRate.IsNegative() || c.Tab.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tab.tax_rate must be in [0, 1), got %s", c.Tab.TaxRate)
	}

	validate := validator.New()
	if err := validate.Struct(c.Webhook); err != nil {
		return fmt.Errorf("webhook configuration: %w", err)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
