package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "tryon"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TRYON_DB_DSN"
	EnvDBHost = "TRYON_DB_HOST"
	EnvDBUser = "TRYON_DB_USER"
	EnvDBName = "TRYON_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
