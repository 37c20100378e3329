package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	ActivityStoreSQL   = "sql"
	ActivityStoreMongo = "mongo"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:storefront.db?cache=shared&_fk=1"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvActivityStore = "STOREFRONT_ACTIVITY_STORE"
	EnvMongoURI      = "STOREFRONT_MONGO_URI"
	EnvAIBaseURL     = "STOREFRONT_AI_BASE_URL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
