package config

const EnvPrefix = "GEONMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "GEONMARKET_APP_ENV"
	EnvPort                   = "GEONMARKET_APP_PORT"
	EnvLogLevel               = "GEONMARKET_LOG_LEVEL"
	EnvDBDSN                  = "GEONMARKET_DB_DSN"
	EnvDBDriver               = "GEONMARKET_DB_DRIVER"
	EnvDBHost                 = "GEONMARKET_DB_HOST"
	EnvDBUser                 = "GEONMARKET_DB_USER"
	EnvDBName                 = "GEONMARKET_DB_NAME"
	EnvRedisURL               = "GEONMARKET_REDIS_URL"
	EnvJWTSecret              = "GEONMARKET_JWT_SECRET"
	EnvJWTIssuer              = "GEONMARKET_JWT_ISSUER"
	EnvJWTExpMins             = "GEONMARKET_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GEONMARKET_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "GEONMARKET_USE_SQLITE"
	EnvTossSecretKey          = "TOSS_SECRET_KEY"
	EnvTokenUnitPrice         = "GEONMARKET_TOKEN_UNIT_PRICE"
	EnvTokenPriceHistory      = "GEONMARKET_TOKEN_PRICE_HISTORY"
	EnvCORSAllowedOrigins     = "GEONMARKET_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
