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
	Ledger       LedgerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SIGNSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"SIGNSTOCK_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"SIGNSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SIGNSTOCK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SIGNSTOCK_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated list of allowed browser origins.
	CORSOrigins []string `envconfig:"SIGNSTOCK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SIGNSTOCK_DB_DSN"`
	Driver string `envconfig:"SIGNSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SIGNSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"SIGNSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SIGNSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"SIGNSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SIGNSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SIGNSTOCK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SIGNSTOCK_SQLITE_PATH" default:"data/signstock.db"`

	MaxOpenConns    int           `envconfig:"SIGNSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SIGNSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SIGNSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SIGNSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SIGNSTOCK_REDIS_URL"`
	Address      string        `envconfig:"SIGNSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"SIGNSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SIGNSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SIGNSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SIGNSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SIGNSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SIGNSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SIGNSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SIGNSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SIGNSTOCK_AUTO_MIGRATE" default:"false"`
}

type LedgerConfig struct {
	MaxAttempts       int    `envconfig:"SIGNSTOCK_LEDGER_MAX_ATTEMPTS" default:"3"`
	QuickAdjustReason string `envconfig:"SIGNSTOCK_LEDGER_QUICK_ADJUST_REASON" default:"quick adjust"`
	ResetReason       string `envconfig:"SIGNSTOCK_LEDGER_RESET_REASON" default:"reset all quantities"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SIGNSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SIGNSTOCK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"SIGNSTOCK_PUBSUB_LEDGER_TOPIC" default:"signboard-ledger-events"`
	LedgerSubscription string `envconfig:"SIGNSTOCK_PUBSUB_LEDGER_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SIGNSTOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SIGNSTOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SIGNSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SIGNSTOCK_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SIGNSTOCK_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"SIGNSTOCK_CRON_LOCK_TTL" default:"25h"`
	Schedule string        `envconfig:"SIGNSTOCK_CRON_SCHEDULE"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when sqlite is enabled", EnvSQLitePath)
		}
		db.DSN = db.SQLitePath
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
