package config

// EnvPrefix is the envconfig prefix for every setting.
const EnvPrefix = "KASUWA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Env var names, spelled out so tests and deploy manifests share one source.
const (
	EnvAppEnv   = "KASUWA_APP_ENV"
	EnvPort     = "KASUWA_APP_PORT"
	EnvLogLevel = "KASUWA_LOG_LEVEL"

	EnvDBDSN      = "KASUWA_DB_DSN"
	EnvDBHost     = "KASUWA_DB_HOST"
	EnvDBUser     = "KASUWA_DB_USER"
	EnvDBName     = "KASUWA_DB_NAME"
	EnvDBPassword = "KASUWA_DB_PASSWORD"

	EnvRedisURL = "KASUWA_REDIS_URL"

	EnvJWTSecret  = "KASUWA_JWT_SECRET"
	EnvJWTIssuer  = "KASUWA_JWT_ISSUER"
	EnvJWTExpMins = "KASUWA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "KASUWA_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "KASUWA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub         = "KASUWA_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationTopic = "KASUWA_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "KASUWA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubPaymentsTopic     = "KASUWA_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentsSub       = "KASUWA_PUBSUB_PAYMENTS_SUBSCRIPTION"

	EnvFlutterwaveSecretKey = "KASUWA_FLUTTERWAVE_SECRET_KEY"
	EnvPaystackSecretKey    = "KASUWA_PAYSTACK_SECRET_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
