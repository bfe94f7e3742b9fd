package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Ledger       LedgerConfig
	Completion   CompletionConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWAPSTAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SWAPSTAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWAPSTAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWAPSTAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWAPSTAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWAPSTAY_DB_DSN"`
	Driver string `envconfig:"SWAPSTAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWAPSTAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SWAPSTAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWAPSTAY_DB_USER"`
	LegacyPassword string `envconfig:"SWAPSTAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWAPSTAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWAPSTAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWAPSTAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWAPSTAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWAPSTAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWAPSTAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWAPSTAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWAPSTAY_REDIS_ADDR"`
	Password     string        `envconfig:"SWAPSTAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWAPSTAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWAPSTAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWAPSTAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWAPSTAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWAPSTAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWAPSTAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LedgerConfig points at the external attestation ledger.
type LedgerConfig struct {
	BaseURL        string        `envconfig:"SWAPSTAY_LEDGER_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"SWAPSTAY_LEDGER_API_KEY"`
	RequestTimeout time.Duration `envconfig:"SWAPSTAY_LEDGER_REQUEST_TIMEOUT" default:"10s"`
	MaxAttempts    int           `envconfig:"SWAPSTAY_LEDGER_MAX_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"SWAPSTAY_LEDGER_RETRY_BACKOFF" default:"500ms"`
	StatusRecheck  int           `envconfig:"SWAPSTAY_LEDGER_STATUS_RECHECKS" default:"2"`
}

// CompletionConfig tunes the swap completion workflow.
type CompletionConfig struct {
	TxMaxAttempts     int           `envconfig:"SWAPSTAY_COMPLETION_TX_MAX_ATTEMPTS" default:"3"`
	TxRetryBackoff    time.Duration `envconfig:"SWAPSTAY_COMPLETION_TX_RETRY_BACKOFF" default:"100ms"`
	RestoreAttempts   int           `envconfig:"SWAPSTAY_COMPLETION_RESTORE_ATTEMPTS" default:"3"`
	IdempotencyTTL    time.Duration `envconfig:"SWAPSTAY_COMPLETION_IDEMPOTENCY_TTL" default:"168h"`
	AcceptRouteWindow time.Duration `envconfig:"SWAPSTAY_COMPLETION_ACCEPT_WINDOW" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SWAPSTAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SWAPSTAY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SWAPSTAY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SWAPSTAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SWAPSTAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CompletionTopic        string `envconfig:"SWAPSTAY_PUBSUB_COMPLETION_TOPIC" required:"true"`
	CompletionSubscription string `envconfig:"SWAPSTAY_PUBSUB_COMPLETION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SWAPSTAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SWAPSTAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SWAPSTAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
