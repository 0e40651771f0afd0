package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Redis       RedisConfig
	Payment     PaymentConfig
	Log         LogConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
	// TrustedProxies are the proxy addresses or CIDRs whose X-Forwarded-For
	// is believed. Empty trusts none and uses the socket peer address.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	Name       string
	User       string
	Password   string
	SSLMode    string
	Timezone   string
	SQLitePath string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RateLimitConfig describes the fixed-window limiter. Duration is in seconds.
type RateLimitConfig struct {
	Requests      int
	Duration      int
	MaxBuckets    int
	SweepInterval time.Duration
}

// Window returns the fixed window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

type IdempotencyConfig struct {
	Store      string // memory, redis or database
	TTL        time.Duration
	MaxEntries int
	FailOpen   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaymentConfig struct {
	AccessToken       string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	NotificationURL   string
}

type LogConfig struct {
	Level string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg(".env file not found, using environment variables")
	}

	setDefaults()

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),

			TrustedProxies: viper.GetStringSlice("APP_TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:     viper.GetString("DB_DRIVER"),
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetString("DB_PORT"),
			Name:       viper.GetString("DB_NAME"),
			User:       viper.GetString("DB_USER"),
			Password:   viper.GetString("DB_PASSWORD"),
			SSLMode:    viper.GetString("DB_SSL_MODE"),
			Timezone:   viper.GetString("DB_TIMEZONE"),
			SQLitePath: viper.GetString("DB_SQLITE_PATH"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration:      viper.GetInt("RATE_LIMIT_DURATION"),
			MaxBuckets:    viper.GetInt("RATE_LIMIT_MAX_BUCKETS"),
			SweepInterval: viper.GetDuration("RATE_LIMIT_SWEEP_INTERVAL"),
		},
		Idempotency: IdempotencyConfig{
			Store:      viper.GetString("IDEMPOTENCY_STORE"),
			TTL:        viper.GetDuration("IDEMPOTENCY_TTL"),
			MaxEntries: viper.GetInt("IDEMPOTENCY_MAX_ENTRIES"),
			FailOpen:   viper.GetBool("IDEMPOTENCY_FAIL_OPEN"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Payment: PaymentConfig{
			AccessToken:       viper.GetString("PAYMENT_ACCESS_TOKEN"),
			BaseURL:           viper.GetString("PAYMENT_BASE_URL"),
			Timeout:           viper.GetDuration("PAYMENT_TIMEOUT"),
			RequestsPerSecond: viper.GetFloat64("PAYMENT_REQUESTS_PER_SECOND"),
			NotificationURL:   viper.GetString("PAYMENT_NOTIFICATION_URL"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "dinein-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("APP_TRUSTED_PROXIES", []string{})
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "dinein")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("DB_SQLITE_PATH", "dinein.db")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("RATE_LIMIT_MAX_BUCKETS", 10000)
	viper.SetDefault("RATE_LIMIT_SWEEP_INTERVAL", "1m")
	viper.SetDefault("IDEMPOTENCY_STORE", "memory")
	viper.SetDefault("IDEMPOTENCY_TTL", "10m")
	viper.SetDefault("IDEMPOTENCY_MAX_ENTRIES", 50000)
	viper.SetDefault("IDEMPOTENCY_FAIL_OPEN", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.mercadopago.com")
	viper.SetDefault("PAYMENT_TIMEOUT", "5s")
	viper.SetDefault("PAYMENT_REQUESTS_PER_SECOND", 10)
	viper.SetDefault("LOG_LEVEL", "info")
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
