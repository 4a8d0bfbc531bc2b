package config

const (
	EnvPrefix = "CUZONET"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "CUZONET_DB_DSN"
	EnvDBHost = "CUZONET_DB_HOST"
	EnvDBUser = "CUZONET_DB_USER"
	EnvDBName = "CUZONET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
