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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Idempotency   IdempotencyConfig
	LocalStore    LocalStoreConfig
	Toss          TossConfig
	TokenMarket   TokenMarketConfig
	Listings      ListingsConfig
	Ranking       RankingConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.TokenMarket.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEONMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"GEONMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEONMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEONMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN        string `envconfig:"GEONMARKET_DB_DSN"`
	Driver     string `envconfig:"GEONMARKET_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"GEONMARKET_SQLITE_PATH" default:"geonmarket.db"`

	LegacyHost     string `envconfig:"GEONMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"GEONMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GEONMARKET_DB_USER"`
	LegacyPassword string `envconfig:"GEONMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"GEONMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"GEONMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GEONMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEONMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEONMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEONMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"GEONMARKET_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEONMARKET_REDIS_URL"`
	Address      string        `envconfig:"GEONMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"GEONMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEONMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEONMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEONMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEONMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEONMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEONMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GEONMARKET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GEONMARKET_JWT_ISSUER" default:"geonmarket"`
	ExpirationMinutes      int    `envconfig:"GEONMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GEONMARKET_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GEONMARKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GEONMARKET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GEONMARKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GEONMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GEONMARKET_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	SignInWindow     time.Duration `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNIN_WINDOW" default:"1m"`
	SignInEmailLimit int           `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNIN_EMAIL_LIMIT" default:"5"`
	SignInIPLimit    int           `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNIN_IP_LIMIT" default:"20"`
	SignUpWindow     time.Duration `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignUpEmailLimit int           `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignUpIPLimit    int           `envconfig:"GEONMARKET_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GEONMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GEONMARKET_AUTO_MIGRATE" default:"false"`
}

type IdempotencyConfig struct {
	DefaultTTL  time.Duration `envconfig:"GEONMARKET_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"GEONMARKET_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type LocalStoreConfig struct {
	TTL time.Duration `envconfig:"GEONMARKET_LOCAL_STORE_TTL" default:"2160h"`
}

// TossConfig carries the payment gateway credentials and redirect targets.
type TossConfig struct {
	SecretKey  string        `envconfig:"TOSS_SECRET_KEY"`
	ClientKey  string        `envconfig:"GEONMARKET_TOSS_CLIENT_KEY"`
	BaseURL    string        `envconfig:"GEONMARKET_TOSS_BASE_URL" default:"https://api.tosspayments.com"`
	SuccessURL string        `envconfig:"GEONMARKET_TOSS_SUCCESS_URL" default:"http://localhost:5173/my-page"`
	FailURL    string        `envconfig:"GEONMARKET_TOSS_FAIL_URL" default:"http://localhost:5173/my-page"`
	Timeout    time.Duration `envconfig:"GEONMARKET_TOSS_TIMEOUT" default:"10s"`
}

type TokenMarketConfig struct {
	UnitPrice    int64   `envconfig:"GEONMARKET_TOKEN_UNIT_PRICE" default:"1250"`
	PriceHistory []int64 `envconfig:"GEONMARKET_TOKEN_PRICE_HISTORY" default:"1100,1150,1200,1180,1220,1250"`
	Symbol       string  `envconfig:"GEONMARKET_TOKEN_SYMBOL" default:"GMT"`
}

func (t TokenMarketConfig) validate() error {
	if t.UnitPrice <= 0 {
		return fmt.Errorf("%s must be positive", EnvTokenUnitPrice)
	}
	return nil
}

type ListingsConfig struct {
	DefaultImageURL   string `envconfig:"GEONMARKET_LISTING_DEFAULT_IMAGE_URL" default:"https://images.unsplash.com/photo-1504307651254-35680f356dfd?w=800"`
	MaxImages         int    `envconfig:"GEONMARKET_LISTING_MAX_IMAGES" default:"10"`
	TokenPriceDivisor int64  `envconfig:"GEONMARKET_LISTING_TOKEN_PRICE_DIVISOR" default:"500000"`
}

// RankingConfig bounds the seeded counters handed to listings nobody has viewed yet.
type RankingConfig struct {
	SeedViewsMin int64 `envconfig:"GEONMARKET_RANKING_SEED_VIEWS_MIN" default:"50"`
	SeedViewsMax int64 `envconfig:"GEONMARKET_RANKING_SEED_VIEWS_MAX" default:"250"`
	SeedLikesMin int64 `envconfig:"GEONMARKET_RANKING_SEED_LIKES_MIN" default:"5"`
	SeedLikesMax int64 `envconfig:"GEONMARKET_RANKING_SEED_LIKES_MAX" default:"35"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GEONMARKET_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || strings.EqualFold(db.Driver, "sqlite") {
		db.Driver = "sqlite"
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
