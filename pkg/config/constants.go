package config

const (
	EnvPrefix = "BIGDECK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "BIGDECK_APP_ENV"
	EnvPort     = "BIGDECK_APP_PORT"
	EnvDBDSN    = "BIGDECK_DB_DSN"
	EnvDBHost   = "BIGDECK_DB_HOST"
	EnvDBUser   = "BIGDECK_DB_USER"
	EnvDBName   = "BIGDECK_DB_NAME"
	EnvRedisURL = "BIGDECK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
