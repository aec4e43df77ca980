package config

const (
	EnvPrefix = "SIGNSTOCK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "SIGNSTOCK_APP_ENV"
	EnvPort       = "SIGNSTOCK_APP_PORT"
	EnvLogLevel   = "SIGNSTOCK_LOG_LEVEL"
	EnvDBDSN      = "SIGNSTOCK_DB_DSN"
	EnvDBDriver   = "SIGNSTOCK_DB_DRIVER"
	EnvDBHost     = "SIGNSTOCK_DB_HOST"
	EnvDBPort     = "SIGNSTOCK_DB_PORT"
	EnvDBUser     = "SIGNSTOCK_DB_USER"
	EnvDBPassword = "SIGNSTOCK_DB_PASSWORD"
	EnvDBName     = "SIGNSTOCK_DB_NAME"
	EnvSQLitePath = "SIGNSTOCK_SQLITE_PATH"
	EnvUseSQLite  = "SIGNSTOCK_USE_SQLITE"
	EnvRedisURL   = "SIGNSTOCK_REDIS_URL"

	EnvLedgerMaxAttempts = "SIGNSTOCK_LEDGER_MAX_ATTEMPTS"
	EnvQuickAdjustReason = "SIGNSTOCK_LEDGER_QUICK_ADJUST_REASON"
	EnvGCPProjectID      = "SIGNSTOCK_GCP_PROJECT_ID"
	EnvPubSubLedgerTopic = "SIGNSTOCK_PUBSUB_LEDGER_TOPIC"
	EnvOutboxBatchSize   = "SIGNSTOCK_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
