package config

const (
	EnvPrefix = "SHARECART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultLinkTTLDays = 7
)

const (
	EnvAppEnv      = "SHARECART_APP_ENV"
	EnvPort        = "SHARECART_APP_PORT"
	EnvDBDSN       = "SHARECART_DB_DSN"
	EnvDBHost      = "SHARECART_DB_HOST"
	EnvDBUser      = "SHARECART_DB_USER"
	EnvDBName      = "SHARECART_DB_NAME"
	EnvRedisURL    = "SHARECART_REDIS_URL"
	EnvJWTSecret   = "SHARECART_JWT_SECRET"
	EnvJWTIssuer   = "SHARECART_JWT_ISSUER"
	EnvLinkTTLDays = "SHARECART_LINK_TTL_DAYS"
	EnvBaseURL     = "SHARECART_BASE_URL"
	EnvUseSQLite   = "SHARECART_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
