package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "lumashop"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LUMASHOP_DB_DSN"
	EnvDBHost = "LUMASHOP_DB_HOST"
	EnvDBUser = "LUMASHOP_DB_USER"
	EnvDBName = "LUMASHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"LUMASHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"LUMASHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LUMASHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUMASHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LUMASHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUMASHOP_DB_DSN"`
	Driver string `envconfig:"LUMASHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUMASHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"LUMASHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUMASHOP_DB_USER"`
	LegacyPassword string `envconfig:"LUMASHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUMASHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUMASHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUMASHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUMASHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUMASHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUMASHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMASHOP_REDIS_URL"`
	Address      string        `envconfig:"LUMASHOP_REDIS_ADDR"`
	Password     string        `envconfig:"LUMASHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMASHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUMASHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUMASHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUMASHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMASHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMASHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SweepConfig drives the scheduled order-advancement worker.
type SweepConfig struct {
	Interval  time.Duration `envconfig:"LUMASHOP_SWEEP_INTERVAL" default:"30s"`
	LockTTL   time.Duration `envconfig:"LUMASHOP_SWEEP_LOCK_TTL" default:"5m"`
	BatchSize int           `envconfig:"LUMASHOP_SWEEP_BATCH_SIZE" default:"200"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUMASHOP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUMASHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LUMASHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUMASHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"LUMASHOP_PUBSUB_NOTIFICATION_TOPIC" default:"storefront-notification-events"`
	OrdersTopic       string `envconfig:"LUMASHOP_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUMASHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUMASHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUMASHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
