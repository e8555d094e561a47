package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Outbox   OutboxConfig
	Cron     CronConfig
	Tracking TrackingConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"CARGOFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"CARGOFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARGOFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARGOFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"CARGOFLOW_SERVICE_KIND" default:"api"`
	MetricsAddr string `envconfig:"CARGOFLOW_METRICS_ADDR" default:""`
}

type DBConfig struct {
	DSN    string `envconfig:"CARGOFLOW_DB_DSN"`
	Driver string `envconfig:"CARGOFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CARGOFLOW_DB_HOST"`
	Port     int    `envconfig:"CARGOFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"CARGOFLOW_DB_USER"`
	Password string `envconfig:"CARGOFLOW_DB_PASSWORD"`
	Name     string `envconfig:"CARGOFLOW_DB_NAME"`
	SSLMode  string `envconfig:"CARGOFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARGOFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARGOFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARGOFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARGOFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARGOFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARGOFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"CARGOFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARGOFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARGOFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARGOFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARGOFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARGOFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARGOFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARGOFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARGOFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARGOFLOW_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARGOFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARGOFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARGOFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARGOFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARGOFLOW_ARGON_KEY_LEN" default:"32"`
}

type OutboxConfig struct {
	BatchSize       int           `envconfig:"CARGOFLOW_OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval    time.Duration `envconfig:"CARGOFLOW_OUTBOX_POLL_INTERVAL" default:"5s"`
	MaxRetries      int           `envconfig:"CARGOFLOW_OUTBOX_MAX_RETRIES" default:"5"`
	DeliveryTimeout time.Duration `envconfig:"CARGOFLOW_OUTBOX_DELIVERY_TIMEOUT" default:"10s"`
	Workers         int           `envconfig:"CARGOFLOW_OUTBOX_WORKERS" default:"8"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CARGOFLOW_CRON_INTERVAL" default:"5m"`
	LockKey  string        `envconfig:"CARGOFLOW_CRON_LOCK_KEY" default:"cargoflow:cron:lock"`
	LockTTL  time.Duration `envconfig:"CARGOFLOW_CRON_LOCK_TTL" default:"10m"`
}

type TrackingConfig struct {
	RateLimit  int           `envconfig:"CARGOFLOW_TRACKING_RATE_LIMIT" default:"30"`
	RateWindow time.Duration `envconfig:"CARGOFLOW_TRACKING_RATE_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARGOFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"CARGOFLOW_DB_HOST": db.Host,
		"CARGOFLOW_DB_USER": db.User,
		"CARGOFLOW_DB_NAME": db.Name,
	}
	for _, key := range []string{"CARGOFLOW_DB_HOST", "CARGOFLOW_DB_USER", "CARGOFLOW_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either CARGOFLOW_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
