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
	FeatureFlags FeatureFlagsConfig
	Undo         UndoConfig
	Autobuy      AutobuyConfig
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
	Env          string `envconfig:"BIGDECK_APP_ENV" required:"true"`
	Port         string `envconfig:"BIGDECK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIGDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIGDECK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BIGDECK_DB_DSN"`
	Driver string `envconfig:"BIGDECK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BIGDECK_DB_HOST"`
	LegacyPort     int    `envconfig:"BIGDECK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BIGDECK_DB_USER"`
	LegacyPassword string `envconfig:"BIGDECK_DB_PASSWORD"`
	LegacyName     string `envconfig:"BIGDECK_DB_NAME"`
	LegacySSLMode  string `envconfig:"BIGDECK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIGDECK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIGDECK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIGDECK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIGDECK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BIGDECK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BIGDECK_REDIS_ADDR"`
	Password     string        `envconfig:"BIGDECK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIGDECK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIGDECK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIGDECK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIGDECK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIGDECK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BIGDECK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BIGDECK_AUTO_MIGRATE" default:"false"`
}

type UndoConfig struct {
	HistoryLimit int           `envconfig:"BIGDECK_UNDO_HISTORY_LIMIT" default:"50"`
	SessionTTL   time.Duration `envconfig:"BIGDECK_UNDO_SESSION_TTL" default:"12h"`
}

type AutobuyConfig struct {
	SuggestionAlpha float64 `envconfig:"BIGDECK_AUTOBUY_SUGGESTION_ALPHA" default:"0.1"`
	LiftThreshold   float64 `envconfig:"BIGDECK_AUTOBUY_LIFT_THRESHOLD" default:"0.1"`
	MinSampleSize   int     `envconfig:"BIGDECK_AUTOBUY_MIN_SAMPLE" default:"10"`
	DefaultWindow   int     `envconfig:"BIGDECK_AUTOBUY_DEFAULT_WINDOW_DAYS" default:"30"`
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
