package config

const (
	EnvPrefix = "THREADSWAP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "THREADSWAP_DB_DSN"
	EnvDBHost = "THREADSWAP_DB_HOST"
	EnvDBUser = "THREADSWAP_DB_USER"
	EnvDBName = "THREADSWAP_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
