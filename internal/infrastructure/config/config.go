package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
	Event       EventConfig
	Idempotency IdempotencyConfig
	Settlement  SettlementConfig
	Withdrawal  WithdrawalConfig
	Shipping    ShippingConfig
	Carrier     CarrierConfig
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

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for validating bearer tokens issued by the identity service
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	TrustedProxies    []string
	MetricsEnabled    bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	MetricsEnabled    bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	ExportInterval    time.Duration
}

// EventConfig controls forwarding of domain events to Kafka
type EventConfig struct {
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaBatchTimeout time.Duration
}

// IdempotencyConfig selects the store that dedupes event deliveries
type IdempotencyConfig struct {
	Driver    string // memory, redis, bolt
	TTL       time.Duration
	KeyPrefix string
	BoltPath  string
}

// SettlementConfig holds profit distribution settings
type SettlementConfig struct {
	PlatformAccountID   uuid.UUID
	CommissionRate      decimal.Decimal // percent of subtotal
	EligibleSellerRoles []string
	BatchSize           int
	BatchDelay          time.Duration
}

// WithdrawalConfig holds withdrawal limits
type WithdrawalConfig struct {
	MinimumAmount decimal.Decimal
	MaximumAmount decimal.Decimal
	FeeRate       decimal.Decimal // percent of the requested amount
}

// ShippingConfig holds dispatcher settings
type ShippingConfig struct {
	DefaultCarrier string
	BarcodePrefix  string
	AutoDispatch   bool

	// AutoDispatchTimeout bounds the carrier call made while a confirm
	// request waits on its OrderConfirmed handlers
	AutoDispatchTimeout time.Duration
	BatchDelay          time.Duration
	BatchSize           int
}

// CarrierConfig configures the HTTP shipping provider
type CarrierConfig struct {
	Code           string
	BaseURL        string
	APIKey         string
	CredentialsRef string
	TimeoutSeconds int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// Missing .env is fine; existing process env always wins
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			MetricsEnabled:    !v.IsSet("http.metrics_enabled") || v.GetBool("http.metrics_enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
		Event: EventConfig{
			KafkaEnabled:      v.GetBool("event.kafka_enabled"),
			KafkaBrokers:      v.GetStringSlice("event.kafka_brokers"),
			KafkaTopic:        v.GetString("event.kafka_topic"),
			KafkaBatchTimeout: v.GetDuration("event.kafka_batch_timeout"),
		},
		Idempotency: IdempotencyConfig{
			Driver:    v.GetString("idempotency.driver"),
			TTL:       v.GetDuration("idempotency.ttl"),
			KeyPrefix: v.GetString("idempotency.key_prefix"),
			BoltPath:  v.GetString("idempotency.bolt_path"),
		},
		Settlement: SettlementConfig{
			EligibleSellerRoles: v.GetStringSlice("settlement.eligible_seller_roles"),
			BatchSize:           v.GetInt("settlement.batch_size"),
			BatchDelay:          v.GetDuration("settlement.batch_delay"),
		},
		Shipping: ShippingConfig{
			DefaultCarrier:      v.GetString("shipping.default_carrier"),
			BarcodePrefix:       v.GetString("shipping.barcode_prefix"),
			AutoDispatch:        !v.IsSet("shipping.auto_dispatch") || v.GetBool("shipping.auto_dispatch"),
			AutoDispatchTimeout: v.GetDuration("shipping.auto_dispatch_timeout"),
			BatchDelay:          v.GetDuration("shipping.batch_delay"),
			BatchSize:           v.GetInt("shipping.batch_size"),
		},
		Carrier: CarrierConfig{
			Code:           v.GetString("carrier.code"),
			BaseURL:        v.GetString("carrier.base_url"),
			APIKey:         v.GetString("carrier.api_key"),
			CredentialsRef: v.GetString("carrier.credentials_ref"),
			TimeoutSeconds: v.GetInt("carrier.timeout_seconds"),
		},
	}

	var err error
	if cfg.Settlement.PlatformAccountID, err = parseOptionalUUID(v.GetString("settlement.platform_account_id")); err != nil {
		return nil, fmt.Errorf("settlement.platform_account_id: %w", err)
	}
	if cfg.Settlement.CommissionRate, err = parseOptionalDecimal(v.GetString("settlement.commission_rate"), decimal.NewFromInt(10)); err != nil {
		return nil, fmt.Errorf("settlement.commission_rate: %w", err)
	}
	if cfg.Withdrawal.MinimumAmount, err = parseOptionalDecimal(v.GetString("withdrawal.minimum_amount"), decimal.NewFromInt(100)); err != nil {
		return nil, fmt.Errorf("withdrawal.minimum_amount: %w", err)
	}
	if cfg.Withdrawal.MaximumAmount, err = parseOptionalDecimal(v.GetString("withdrawal.maximum_amount"), decimal.NewFromInt(10000)); err != nil {
		return nil, fmt.Errorf("withdrawal.maximum_amount: %w", err)
	}
	if cfg.Withdrawal.FeeRate, err = parseOptionalDecimal(v.GetString("withdrawal.fee_rate"), decimal.Zero); err != nil {
		return nil, fmt.Errorf("withdrawal.fee_rate: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(strings.TrimSpace(s))
}

// parseOptionalDecimal keeps an explicit zero, unlike the int defaults below
func parseOptionalDecimal(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// defaultPlatformAccountID is used when no platform account is configured
var defaultPlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment"
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
		cfg.Database.DBName = "fulfillment"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "erp-backend"
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
	// Write timeout must cover a full carrier round-trip
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "fulfillment"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if len(cfg.Event.KafkaBrokers) == 0 {
		cfg.Event.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.Event.KafkaTopic == "" {
		cfg.Event.KafkaTopic = "fulfillment.events"
	}
	if cfg.Event.KafkaBatchTimeout == 0 {
		cfg.Event.KafkaBatchTimeout = 100 * time.Millisecond
	}
	if cfg.Idempotency.Driver == "" {
		cfg.Idempotency.Driver = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Idempotency.KeyPrefix == "" {
		cfg.Idempotency.KeyPrefix = "fulfillment:idempotency:"
	}
	if cfg.Idempotency.BoltPath == "" {
		cfg.Idempotency.BoltPath = "idempotency.db"
	}
	if cfg.Settlement.PlatformAccountID == uuid.Nil {
		cfg.Settlement.PlatformAccountID = defaultPlatformAccountID
	}
	if len(cfg.Settlement.EligibleSellerRoles) == 0 {
		cfg.Settlement.EligibleSellerRoles = []string{"marketer"}
	}
	if cfg.Settlement.BatchSize == 0 {
		cfg.Settlement.BatchSize = 500
	}
	if cfg.Shipping.BatchDelay == 0 {
		cfg.Shipping.BatchDelay = 1500 * time.Millisecond
	}
	if cfg.Shipping.BatchSize == 0 {
		cfg.Shipping.BatchSize = 100
	}
	if cfg.Shipping.AutoDispatchTimeout == 0 {
		cfg.Shipping.AutoDispatchTimeout = 10 * time.Second
	}
	if cfg.Carrier.Code == "" {
		cfg.Carrier.Code = "courier"
	}
	if cfg.Shipping.DefaultCarrier == "" {
		cfg.Shipping.DefaultCarrier = cfg.Carrier.Code
	}
	if cfg.Carrier.TimeoutSeconds == 0 {
		cfg.Carrier.TimeoutSeconds = 30
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

	if c.Withdrawal.MinimumAmount.IsNegative() {
		return fmt.Errorf("withdrawal.minimum_amount cannot be negative")
	}
	if c.Withdrawal.MaximumAmount.LessThan(c.Withdrawal.MinimumAmount) {
		return fmt.Errorf("withdrawal.maximum_amount (%s) cannot be below withdrawal.minimum_amount (%s)",
			c.Withdrawal.MaximumAmount, c.Withdrawal.MinimumAmount)
	}
	if c.Withdrawal.FeeRate.IsNegative() || c.Withdrawal.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("withdrawal.fee_rate must be in [0, 100)")
	}
	if c.Settlement.CommissionRate.IsNegative() || c.Settlement.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("settlement.commission_rate must be in [0, 100]")
	}
	if c.Carrier.TimeoutSeconds < 1 || c.Carrier.TimeoutSeconds > 120 {
		return fmt.Errorf("carrier.timeout_seconds must be between 1 and 120")
	}

	switch c.Idempotency.Driver {
	case "memory", "redis", "bolt":
	default:
		return fmt.Errorf("idempotency.driver must be one of memory, redis, bolt; got %q", c.Idempotency.Driver)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Carrier.BaseURL == "" {
			return fmt.Errorf("carrier.base_url is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
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

// ConnMaxLifetimeDuration returns the configured lifetime as a duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Minute
}

// ConnMaxIdleTimeDuration returns the configured idle time as a duration
func (d *DatabaseConfig) ConnMaxIdleTimeDuration() time.Duration {
	return time.Duration(d.ConnMaxIdleTime) * time.Minute
}
