package config

const (
	EnvPrefix = "librashop"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LIBRASHOP_DB_DSN"
	EnvDBHost = "LIBRASHOP_DB_HOST"
	EnvDBUser = "LIBRASHOP_DB_USER"
	EnvDBName = "LIBRASHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
