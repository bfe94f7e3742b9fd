package config

// EnvPrefix is intentionally empty: every variable carries the full
// SWAPSTAY_ prefix in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "SWAPSTAY_APP_ENV"
	EnvPort   = "SWAPSTAY_APP_PORT"

	EnvDBDSN  = "SWAPSTAY_DB_DSN"
	EnvDBHost = "SWAPSTAY_DB_HOST"
	EnvDBUser = "SWAPSTAY_DB_USER"
	EnvDBName = "SWAPSTAY_DB_NAME"

	EnvRedisURL = "SWAPSTAY_REDIS_URL"

	EnvLedgerBaseURL = "SWAPSTAY_LEDGER_BASE_URL"

	EnvGCPProjectID             = "SWAPSTAY_GCP_PROJECT_ID"
	EnvPubSubCompletionTopic    = "SWAPSTAY_PUBSUB_COMPLETION_TOPIC"
	EnvPubSubCompletionSub      = "SWAPSTAY_PUBSUB_COMPLETION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
