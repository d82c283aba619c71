package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, assembled once at startup.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Platform  PlatformConfig
	Security  SecurityConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds Postgres connection and pool settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
}

// RedisConfig holds Redis connection settings for the dedup fast path.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// PlatformConfig holds settings for the external commerce platform API.
type PlatformConfig struct {
	// APIBaseURL is the platform admin API root, e.g. https://api.salla.dev/admin/v2
	APIBaseURL string
	// WebhookSecret is the shared secret for inbound signature verification
	WebhookSecret string
	// UserAgent identifies this service on outbound calls
	UserAgent string
	// TimeoutSeconds bounds each outbound HTTP call
	TimeoutSeconds int
	// PageSize is the fixed per_page for paginated list fetches
	PageSize int
}

// SecurityConfig holds credential encryption settings.
type SecurityConfig struct {
	// CredentialKey is the secret the AES key is derived from
	CredentialKey string
}

// SyncConfig holds reconciliation configuration.
type SyncConfig struct {
	// DedupTTL bounds the Redis fast-path dedup window; the database
	// ledger remains authoritative beyond it
	DedupTTL time.Duration
	// StaleAfter is how long a delivery may sit in the received state
	// before it is considered stuck
	StaleAfter time.Duration
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load assembles configuration from config.toml and the environment.
// Environment variables with the STORESYNC_ prefix win over the file
// (e.g. STORESYNC_DATABASE_PASSWORD overrides database.password), and
// built-in defaults fill whatever neither source sets.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// A missing file is fine; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("STORESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App:       readApp(v),
		Database:  readDatabase(v),
		Redis:     readRedis(v),
		Log:       readLog(v),
		HTTP:      readHTTP(v),
		Platform:  readPlatform(v),
		Security:  SecurityConfig{CredentialKey: v.GetString("security.credential_key")},
		Sync:      readSync(v),
		Telemetry: readTelemetry(v),
	}

	cfg.fillDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readApp(v *viper.Viper) AppConfig {
	return AppConfig{
		Name: v.GetString("app.name"),
		Env:  v.GetString("app.env"),
		Port: v.GetString("app.port"),
	}
}

func readDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
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
	}
}

func readRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Enabled:  v.GetBool("redis.enabled"),
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func readLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func readHTTP(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		ReadTimeout:      v.GetDuration("http.read_timeout"),
		WriteTimeout:     v.GetDuration("http.write_timeout"),
		IdleTimeout:      v.GetDuration("http.idle_timeout"),
		MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
		MaxBodySize:      v.GetInt64("http.max_body_size"),
		CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
		CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
	}
}

func readPlatform(v *viper.Viper) PlatformConfig {
	return PlatformConfig{
		APIBaseURL:     v.GetString("platform.api_base_url"),
		WebhookSecret:  v.GetString("platform.webhook_secret"),
		UserAgent:      v.GetString("platform.user_agent"),
		TimeoutSeconds: v.GetInt("platform.timeout_seconds"),
		PageSize:       v.GetInt("platform.page_size"),
	}
}

func readSync(v *viper.Viper) SyncConfig {
	return SyncConfig{
		DedupTTL:   v.GetDuration("sync.dedup_ttl"),
		StaleAfter: v.GetDuration("sync.stale_after"),
	}
}

func readTelemetry(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:           v.GetBool("telemetry.enabled"),
		CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:       v.GetString("telemetry.service_name"),
		Insecure:          v.GetBool("telemetry.insecure"),
	}
}

func orStr(field *string, fallback string) {
	if *field == "" {
		*field = fallback
	}
}

func orInt(field *int, fallback int) {
	if *field == 0 {
		*field = fallback
	}
}

func orDur(field *time.Duration, fallback time.Duration) {
	if *field == 0 {
		*field = fallback
	}
}

// fillDefaults treats zero values as unset, so an explicit 0 in the
// file or environment falls back too.
func (c *Config) fillDefaults() {
	orStr(&c.App.Name, "storesync-backend")
	orStr(&c.App.Env, "development")
	orStr(&c.App.Port, "8080")

	orStr(&c.Database.Host, "localhost")
	orInt(&c.Database.Port, 5432)
	orStr(&c.Database.User, "postgres")
	orStr(&c.Database.DBName, "storesync")
	orStr(&c.Database.SSLMode, "disable")
	orInt(&c.Database.MaxOpenConns, 25)
	orInt(&c.Database.MaxIdleConns, 5)
	orInt(&c.Database.ConnMaxLifetime, 60)
	orInt(&c.Database.ConnMaxIdleTime, 30)

	orStr(&c.Redis.Host, "localhost")
	orInt(&c.Redis.Port, 6379)

	orStr(&c.Log.Level, "info")
	orStr(&c.Log.Format, "console")
	orStr(&c.Log.Output, "stdout")

	orDur(&c.HTTP.ReadTimeout, 15*time.Second)
	orDur(&c.HTTP.WriteTimeout, 15*time.Second)
	orDur(&c.HTTP.IdleTimeout, 60*time.Second)
	orInt(&c.HTTP.MaxHeaderBytes, 1<<20)
	if c.HTTP.MaxBodySize == 0 {
		c.HTTP.MaxBodySize = 1 << 20 // webhook payloads are small
	}
	if len(c.HTTP.CORSAllowMethods) == 0 {
		c.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(c.HTTP.CORSAllowHeaders) == 0 {
		c.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Salla-Store-ID", "X-Salla-Signature"}
	}

	orStr(&c.Platform.APIBaseURL, "https://api.salla.dev/admin/v2")
	orStr(&c.Platform.UserAgent, "storesync-backend/1.0 (+https://github.com/storesync/backend)")
	orInt(&c.Platform.TimeoutSeconds, 30)
	orInt(&c.Platform.PageSize, 50)

	// The dedup window must outlive the platform's 48h retry horizon.
	orDur(&c.Sync.DedupTTL, 72*time.Hour)
	orDur(&c.Sync.StaleAfter, 15*time.Minute)

	orStr(&c.Telemetry.CollectorEndpoint, "localhost:4317")
	if c.Telemetry.SamplingRatio == 0 {
		c.Telemetry.SamplingRatio = 1.0
	}
	orStr(&c.Telemetry.ServiceName, "storesync-backend")
}

func (c *Config) validate() error {
	if err := c.Database.validatePool(); err != nil {
		return err
	}
	if c.Platform.PageSize < 1 || c.Platform.PageSize > 100 {
		return fmt.Errorf("platform.page_size must be between 1 and 100")
	}
	if r := c.Telemetry.SamplingRatio; r < 0.0 || r > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (d *DatabaseConfig) validatePool() error {
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}

// validateProduction rejects configurations that would run production
// with development-grade secrets or transport.
func (c *Config) validateProduction() error {
	if c.Platform.WebhookSecret == "" {
		return fmt.Errorf("platform.webhook_secret is required in production")
	}
	if c.Security.CredentialKey == "" {
		return fmt.Errorf("security.credential_key is required in production")
	}
	if len(c.Security.CredentialKey) < 32 {
		return fmt.Errorf("security.credential_key must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	return nil
}

// DSN returns the Postgres connection string with escaped credentials.
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
