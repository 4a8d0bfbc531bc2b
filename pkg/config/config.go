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
	Device       DeviceConfig
	StatusCache  StatusCacheConfig
	Import       ImportConfig
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
	Env          string `envconfig:"CUZONET_APP_ENV" required:"true"`
	Port         string `envconfig:"CUZONET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CUZONET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CUZONET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CUZONET_DB_DSN"`
	Driver string `envconfig:"CUZONET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CUZONET_DB_HOST"`
	LegacyPort     int    `envconfig:"CUZONET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CUZONET_DB_USER"`
	LegacyPassword string `envconfig:"CUZONET_DB_PASSWORD"`
	LegacyName     string `envconfig:"CUZONET_DB_NAME"`
	LegacySSLMode  string `envconfig:"CUZONET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CUZONET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CUZONET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CUZONET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CUZONET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// DeviceConfig describes the RouterOS device this instance manages. An empty
// host means no device is configured: lifecycle transitions then run in
// registry-only mode and skip every device call.
type DeviceConfig struct {
	Host         string        `envconfig:"CUZONET_DEVICE_HOST"`
	Port         int           `envconfig:"CUZONET_DEVICE_PORT" default:"80"`
	Username     string        `envconfig:"CUZONET_DEVICE_USERNAME"`
	Password     string        `envconfig:"CUZONET_DEVICE_PASSWORD"`
	UseTLS       bool          `envconfig:"CUZONET_DEVICE_USE_TLS" default:"false"`
	SkipVerify   bool          `envconfig:"CUZONET_DEVICE_TLS_SKIP_VERIFY" default:"true"`
	BlockList    string        `envconfig:"CUZONET_DEVICE_BLOCK_LIST" default:"MOROSOS"`
	ProbeTimeout time.Duration `envconfig:"CUZONET_DEVICE_PROBE_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"CUZONET_DEVICE_WRITE_TIMEOUT" default:"15s"`
}

// Enabled reports whether a device has been configured at all.
func (d DeviceConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// BaseURL builds the REST endpoint root for the configured device.
func (d DeviceConfig) BaseURL() string {
	scheme := "http"
	if d.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d/rest", scheme, strings.TrimSpace(d.Host), d.Port)
}

type StatusCacheConfig struct {
	TTL time.Duration `envconfig:"CUZONET_STATUS_CACHE_TTL" default:"60s"`
}

type ImportConfig struct {
	ErrorCap  int    `envconfig:"CUZONET_IMPORT_ERROR_CAP" default:"10"`
	PlanLabel string `envconfig:"CUZONET_IMPORT_PLAN_LABEL" default:"Importado de MikroTik"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CUZONET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CUZONET_AUTO_MIGRATE" default:"false"`
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
