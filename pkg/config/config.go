package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Jobs         JobsConfig
	Reminders    RemindersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Twilio       TwilioConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REPAIRDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"REPAIRDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REPAIRDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"REPAIRDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"REPAIRDESK_LOG_WARN_STACK" default:"false"`
	// Timezone and DateLayout define the shop calendar used for delivery dates.
	Timezone   string `envconfig:"REPAIRDESK_TIMEZONE" default:"Asia/Dhaka"`
	DateLayout string `envconfig:"REPAIRDESK_DATE_LAYOUT" default:"02-01-2006"`
	// CORSOrigins is a comma separated allow-list; empty allows local dev only.
	CORSOrigins []string `envconfig:"REPAIRDESK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the configured shop timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServiceConfig struct {
	Kind string `envconfig:"REPAIRDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"REPAIRDESK_DB_DSN"`
	Driver string `envconfig:"REPAIRDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"REPAIRDESK_DB_HOST"`
	Port     int    `envconfig:"REPAIRDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"REPAIRDESK_DB_USER"`
	Password string `envconfig:"REPAIRDESK_DB_PASSWORD"`
	Name     string `envconfig:"REPAIRDESK_DB_NAME"`
	SSLMode  string `envconfig:"REPAIRDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REPAIRDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REPAIRDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"REPAIRDESK_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REPAIRDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REPAIRDESK_REDIS_ADDR"`
	Password     string        `envconfig:"REPAIRDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"REPAIRDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REPAIRDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REPAIRDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REPAIRDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"REPAIRDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REPAIRDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REPAIRDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	Window     time.Duration `envconfig:"REPAIRDESK_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"REPAIRDESK_RATE_LIMIT_IP" default:"300"`
	OwnerLimit int           `envconfig:"REPAIRDESK_RATE_LIMIT_OWNER" default:"600"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"REPAIRDESK_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"REPAIRDESK_SQLITE_PATH" default:"repairdesk.db"`
	AutoMigrate bool   `envconfig:"REPAIRDESK_AUTO_MIGRATE" default:"false"`
}

type JobsConfig struct {
	PollInterval time.Duration `envconfig:"REPAIRDESK_JOBS_POLL_INTERVAL" default:"5s"`
	Lease        time.Duration `envconfig:"REPAIRDESK_JOBS_LEASE" default:"2m"`
	BatchSize    int           `envconfig:"REPAIRDESK_JOBS_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"REPAIRDESK_JOBS_MAX_ATTEMPTS" default:"8"`
	BaseBackoff  time.Duration `envconfig:"REPAIRDESK_JOBS_BASE_BACKOFF" default:"30s"`
	MaxBackoff   time.Duration `envconfig:"REPAIRDESK_JOBS_MAX_BACKOFF" default:"1h"`
	// MetricsAddr exposes /metrics from the worker when set, e.g. ":9102".
	MetricsAddr string `envconfig:"REPAIRDESK_WORKER_METRICS_ADDR"`
}

type RemindersConfig struct {
	DeliveryCheckHour   int           `envconfig:"REPAIRDESK_DELIVERY_CHECK_HOUR" default:"9"`
	DeliveryCheckMinute int           `envconfig:"REPAIRDESK_DELIVERY_CHECK_MINUTE" default:"0"`
	LedgerLeadTime      time.Duration `envconfig:"REPAIRDESK_LEDGER_REMINDER_LEAD" default:"24h"`
	NotificationTTLDays int           `envconfig:"REPAIRDESK_NOTIFICATION_RETENTION_DAYS" default:"30"`
	SweepInterval       time.Duration `envconfig:"REPAIRDESK_DELIVERY_SWEEP_INTERVAL" default:"1h"`
	RetentionInterval   time.Duration `envconfig:"REPAIRDESK_NOTIFICATION_RETENTION_INTERVAL" default:"24h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"REPAIRDESK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"REPAIRDESK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"REPAIRDESK_PUBSUB_NOTIFICATION_TOPIC"`
	// CreateTopic creates a missing topic at startup; meant for the emulator.
	CreateTopic bool `envconfig:"REPAIRDESK_PUBSUB_CREATE_TOPIC" default:"false"`
}

// Enabled reports whether device push fan-out is configured.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.NotificationTopic) != ""
}

type TwilioConfig struct {
	AccountSID string `envconfig:"REPAIRDESK_TWILIO_ACCOUNT_SID"`
	AuthToken  string `envconfig:"REPAIRDESK_TWILIO_AUTH_TOKEN"`
	FromNumber string `envconfig:"REPAIRDESK_TWILIO_FROM_NUMBER"`
	// DefaultCountryCode is prefixed to local numbers that start with 0.
	DefaultCountryCode string `envconfig:"REPAIRDESK_TWILIO_DEFAULT_COUNTRY_CODE" default:"+880"`
}

// Enabled reports whether SMS delivery of notifications is configured.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// ensureDSN assembles a postgres URL from the discrete DB_* variables when
// no DSN is given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	parts := map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name}
	var missing []string
	for _, env := range dbPartEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvTimezone, c.App.Timezone, err)
	}
	switch strings.ToLower(c.App.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log format %q must be json or console", c.App.LogFormat)
	}
	if c.Reminders.SweepInterval <= 0 || c.Reminders.RetentionInterval <= 0 {
		return fmt.Errorf("reminder cron intervals must be positive")
	}
	if h, m := c.Reminders.DeliveryCheckHour, c.Reminders.DeliveryCheckMinute; h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("delivery check time %02d:%02d is not a clock time", h, m)
	}
	return nil
}
