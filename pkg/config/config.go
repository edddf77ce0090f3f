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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Returns      ReturnsConfig
	Flutterwave  FlutterwaveConfig
	Paystack     PaystackConfig
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
	Env          string `envconfig:"KASUWA_APP_ENV" required:"true"`
	Port         string `envconfig:"KASUWA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KASUWA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KASUWA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KASUWA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KASUWA_DB_DSN"`
	Driver string `envconfig:"KASUWA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KASUWA_DB_HOST"`
	LegacyPort     int    `envconfig:"KASUWA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KASUWA_DB_USER"`
	LegacyPassword string `envconfig:"KASUWA_DB_PASSWORD"`
	LegacyName     string `envconfig:"KASUWA_DB_NAME"`
	LegacySSLMode  string `envconfig:"KASUWA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KASUWA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KASUWA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KASUWA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KASUWA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KASUWA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KASUWA_REDIS_ADDR"`
	Password     string        `envconfig:"KASUWA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KASUWA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KASUWA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KASUWA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KASUWA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KASUWA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KASUWA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KASUWA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KASUWA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KASUWA_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KASUWA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KASUWA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"KASUWA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KASUWA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"KASUWA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KASUWA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"KASUWA_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"KASUWA_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	PaymentsTopic            string `envconfig:"KASUWA_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription     string `envconfig:"KASUWA_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"KASUWA_PUBSUB_NOTIFICATION_TOPIC" default:"kasuwa-notification-events"`
	NotificationSubscription string `envconfig:"KASUWA_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KASUWA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KASUWA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KASUWA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	EscalationInterval time.Duration `envconfig:"KASUWA_CRON_ESCALATION_INTERVAL" default:"1h"`
	OutboxRetention    time.Duration `envconfig:"KASUWA_CRON_OUTBOX_RETENTION" default:"168h"`
	LockTTL            time.Duration `envconfig:"KASUWA_CRON_LOCK_TTL" default:"10m"`
}

type ReturnsConfig struct {
	// Window is how long after delivery a return may still be logged.
	Window time.Duration `envconfig:"KASUWA_RETURNS_WINDOW" default:"72h"`
}

type FlutterwaveConfig struct {
	SecretKey string        `envconfig:"KASUWA_FLUTTERWAVE_SECRET_KEY"`
	BaseURL   string        `envconfig:"KASUWA_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com"`
	Timeout   time.Duration `envconfig:"KASUWA_FLUTTERWAVE_TIMEOUT" default:"15s"`
}

type PaystackConfig struct {
	SecretKey string        `envconfig:"KASUWA_PAYSTACK_SECRET_KEY"`
	BaseURL   string        `envconfig:"KASUWA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout   time.Duration `envconfig:"KASUWA_PAYSTACK_TIMEOUT" default:"15s"`
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
