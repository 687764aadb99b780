package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Shippo       ShippoConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"THREADSWAP_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADSWAP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADSWAP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADSWAP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THREADSWAP_DB_DSN"`
	Driver string `envconfig:"THREADSWAP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"THREADSWAP_DB_HOST"`
	Port     int    `envconfig:"THREADSWAP_DB_PORT" default:"5432"`
	User     string `envconfig:"THREADSWAP_DB_USER"`
	Password string `envconfig:"THREADSWAP_DB_PASSWORD"`
	Name     string `envconfig:"THREADSWAP_DB_NAME"`
	SSLMode  string `envconfig:"THREADSWAP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADSWAP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADSWAP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADSWAP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADSWAP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADSWAP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THREADSWAP_REDIS_ADDR"`
	Password     string        `envconfig:"THREADSWAP_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADSWAP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADSWAP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADSWAP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADSWAP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADSWAP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADSWAP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THREADSWAP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THREADSWAP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THREADSWAP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey string `envconfig:"THREADSWAP_STRIPE_API_KEY"`
	// SigningSecret is the production-issued webhook secret. DevSigningSecret is
	// only ever consulted outside production.
	SigningSecret    string `envconfig:"THREADSWAP_STRIPE_SIGNING_SECRET"`
	DevSigningSecret string `envconfig:"THREADSWAP_STRIPE_DEV_SIGNING_SECRET"`
	Env              string `envconfig:"THREADSWAP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type ShippoConfig struct {
	APIKey   string        `envconfig:"THREADSWAP_SHIPPO_API_KEY"`
	BaseURL  string        `envconfig:"THREADSWAP_SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	Timeout  time.Duration `envconfig:"THREADSWAP_SHIPPO_TIMEOUT" default:"15s"`
	Carriers []string      `envconfig:"THREADSWAP_SHIPPO_CARRIERS" default:"USPS"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"THREADSWAP_PUBSUB_PROJECT_ID"`
	NotificationsTopic string `envconfig:"THREADSWAP_PUBSUB_NOTIFICATIONS_TOPIC" default:"ts-notification-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THREADSWAP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THREADSWAP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
