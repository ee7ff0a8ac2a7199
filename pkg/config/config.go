package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Studio        StudioConfig
	Fashn         FashnConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Retention     RetentionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRYON_APP_ENV" required:"true"`
	Port         string `envconfig:"TRYON_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRYON_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRYON_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRYON_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRYON_DB_DSN"`
	Driver string `envconfig:"TRYON_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRYON_DB_HOST"`
	LegacyPort     int    `envconfig:"TRYON_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRYON_DB_USER"`
	LegacyPassword string `envconfig:"TRYON_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRYON_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRYON_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRYON_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRYON_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRYON_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRYON_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRYON_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRYON_REDIS_ADDR"`
	Password     string        `envconfig:"TRYON_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRYON_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRYON_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRYON_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRYON_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRYON_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRYON_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TRYON_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TRYON_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TRYON_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TRYON_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TRYON_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TRYON_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TRYON_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TRYON_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TRYON_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TRYON_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TRYON_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TRYON_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TRYON_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TRYON_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TRYON_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRYON_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRYON_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TRYON_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TRYON_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"TRYON_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"TRYON_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
}

// StudioConfig covers the creation-flow knobs: upload limits and the model
// photo preparation delay.
type StudioConfig struct {
	MaxUploadMB      int           `envconfig:"TRYON_STUDIO_MAX_UPLOAD_MB" default:"20"`
	ModelPrepDelay   time.Duration `envconfig:"TRYON_STUDIO_MODEL_PREP_DELAY" default:"3s"`
	UploadExpiry     time.Duration `envconfig:"TRYON_STUDIO_UPLOAD_EXPIRY" default:"1h"`
	RunLockTTL       time.Duration `envconfig:"TRYON_STUDIO_RUN_LOCK_TTL" default:"5m"`
	DefaultSeed      int           `envconfig:"TRYON_STUDIO_DEFAULT_SEED" default:"42"`
	DefaultNumSample int           `envconfig:"TRYON_STUDIO_DEFAULT_NUM_SAMPLES" default:"1"`
}

// FashnConfig describes the external try-on provider. The category mapping is
// deployment configuration because the provider vocabulary has shifted between
// API revisions.
type FashnConfig struct {
	BaseURL         string            `envconfig:"TRYON_FASHN_BASE_URL" default:"https://api.fashn.ai"`
	APIKey          string            `envconfig:"TRYON_FASHN_API_KEY" required:"true"`
	SubmitPath      string            `envconfig:"TRYON_FASHN_SUBMIT_PATH" default:"/v1/run"`
	StatusPath      string            `envconfig:"TRYON_FASHN_STATUS_PATH" default:"/v1/run"`
	RequestTimeout  time.Duration     `envconfig:"TRYON_FASHN_REQUEST_TIMEOUT" default:"30s"`
	PollInterval    time.Duration     `envconfig:"TRYON_FASHN_POLL_INTERVAL" default:"2s"`
	MaxPollAttempts int               `envconfig:"TRYON_FASHN_MAX_POLL_ATTEMPTS" default:"60"`
	WebhookSecret   string            `envconfig:"TRYON_FASHN_WEBHOOK_SECRET"`
	CategoryMap     map[string]string `envconfig:"TRYON_FASHN_CATEGORY_MAP" default:"top:tops,bottom:bottoms,full-body:one-pieces"`
}

type PubSubConfig struct {
	GenerationTopic        string `envconfig:"TRYON_PUBSUB_GENERATION_TOPIC" required:"true"`
	GenerationSubscription string `envconfig:"TRYON_PUBSUB_GENERATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRYON_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRYON_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRYON_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RetentionConfig bounds how long trashed rows and stuck runs survive.
type RetentionConfig struct {
	TrashTTL        time.Duration `envconfig:"TRYON_RETENTION_TRASH_TTL" default:"720h"`
	StaleRunCeiling time.Duration `envconfig:"TRYON_RETENTION_STALE_RUN_CEILING" default:"10m"`
	IdempotencyTTL  time.Duration `envconfig:"TRYON_RETENTION_IDEMPOTENCY_TTL" default:"720h"`
	NotificationTTL time.Duration `envconfig:"TRYON_RETENTION_NOTIFICATION_TTL" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
