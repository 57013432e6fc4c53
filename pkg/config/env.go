package config

const EnvPrefix = "REPAIRDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "REPAIRDESK_APP_ENV"
	EnvPort        = "REPAIRDESK_APP_PORT"
	EnvTimezone    = "REPAIRDESK_TIMEZONE"
	EnvDBDSN       = "REPAIRDESK_DB_DSN"
	EnvDBHost      = "REPAIRDESK_DB_HOST"
	EnvDBUser      = "REPAIRDESK_DB_USER"
	EnvDBName      = "REPAIRDESK_DB_NAME"
	EnvRedisURL    = "REPAIRDESK_REDIS_URL"
	EnvJWTSecret   = "REPAIRDESK_JWT_SECRET"
	EnvJWTIssuer   = "REPAIRDESK_JWT_ISSUER"
	EnvPubSubTopic = "REPAIRDESK_PUBSUB_NOTIFICATION_TOPIC"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
