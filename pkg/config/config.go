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
	Service      ServiceConfig
	Log          LogConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	ShareLinks   ShareLinksConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Cron         CronConfig
	Privacy      PrivacyConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.ShareLinks.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHARECART_APP_ENV" required:"true"`
	Port         string `envconfig:"SHARECART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHARECART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHARECART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHARECART_SERVICE_KIND" default:"api"`
}

// LogConfig controls optional file output. Stdout is used when File is empty.
type LogConfig struct {
	File       string `envconfig:"SHARECART_LOG_FILE"`
	MaxSizeMB  int    `envconfig:"SHARECART_LOG_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"SHARECART_LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"SHARECART_LOG_MAX_AGE_DAYS" default:"28"`
	Compress   bool   `envconfig:"SHARECART_LOG_COMPRESS" default:"true"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHARECART_DB_DSN"`
	Driver string `envconfig:"SHARECART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHARECART_DB_HOST"`
	LegacyPort     int    `envconfig:"SHARECART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHARECART_DB_USER"`
	LegacyPassword string `envconfig:"SHARECART_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHARECART_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHARECART_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SHARECART_SQLITE_PATH" default:"sharecart.db"`

	MaxOpenConns    int           `envconfig:"SHARECART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHARECART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHARECART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHARECART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHARECART_REDIS_URL"`
	Address      string        `envconfig:"SHARECART_REDIS_ADDR"`
	Password     string        `envconfig:"SHARECART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHARECART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHARECART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHARECART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHARECART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHARECART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHARECART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHARECART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHARECART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHARECART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// ShareLinksConfig drives link generation and the public URL shape.
type ShareLinksConfig struct {
	TTLDays            int    `envconfig:"SHARECART_LINK_TTL_DAYS" default:"7"`
	BaseURL            string `envconfig:"SHARECART_BASE_URL" required:"true"`
	CartURL            string `envconfig:"SHARECART_CART_URL"`
	DefaultRedirectURL string `envconfig:"SHARECART_DEFAULT_REDIRECT_URL"`
}

// TTL returns the configured link lifetime, falling back to seven days.
func (s ShareLinksConfig) TTL() time.Duration {
	days := s.TTLDays
	if days <= 0 {
		days = DefaultLinkTTLDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ResolvedCartURL returns the storefront cart page, defaulting to {base}/cart/.
func (s ShareLinksConfig) ResolvedCartURL() string {
	if s.CartURL != "" {
		return s.CartURL
	}
	return strings.TrimRight(s.BaseURL, "/") + "/cart/"
}

// ResolvedRedirectURL is where expired or unknown links land.
func (s ShareLinksConfig) ResolvedRedirectURL() string {
	if s.DefaultRedirectURL != "" {
		return s.DefaultRedirectURL
	}
	return s.ResolvedCartURL()
}

func (s ShareLinksConfig) validate() error {
	if s.TTLDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvLinkTTLDays)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvBaseURL)
	}
	return nil
}

type SessionConfig struct {
	CookieName string        `envconfig:"SHARECART_SESSION_COOKIE" default:"sharecart_session"`
	TTL        time.Duration `envconfig:"SHARECART_SESSION_TTL" default:"48h"`
	Secure     bool          `envconfig:"SHARECART_SESSION_SECURE" default:"true"`
}

type RateLimitConfig struct {
	GenerateWindow  time.Duration `envconfig:"SHARECART_RATE_LIMIT_GENERATE_WINDOW" default:"1m"`
	GenerateIPLimit int           `envconfig:"SHARECART_RATE_LIMIT_GENERATE_IP_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHARECART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	Schedule string        `envconfig:"SHARECART_CRON_SCHEDULE" default:"@daily"`
	LockTTL  time.Duration `envconfig:"SHARECART_CRON_LOCK_TTL" default:"1h"`
}

type PrivacyConfig struct {
	HashVisitorAddress bool   `envconfig:"SHARECART_PRIVACY_HASH_VISITOR_ADDRESS" default:"false"`
	AddressSalt        string `envconfig:"SHARECART_PRIVACY_ADDRESS_SALT"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHARECART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHARECART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
