package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port     string
	LogLevel string

	MongoURI                    string
	DBName                      string
	MongoMaxPool                uint64
	MongoConnectTimeout         time.Duration
	MongoServerSelectionTimeout time.Duration
	MongoSocketTimeout          time.Duration
	MongoMaxIdle                time.Duration

	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int

	S3Bucket        string
	S3Region        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PublicBaseURL string
	S3Prefix        string
	MaxUploadMB     int64

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	KafkaBrokers []string
	KafkaTopic   string

	CORSOrigins []string
}

// Load reads the configuration from the environment. Malformed numbers and durations are
// reported; unset values fall back to defaults.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return n
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		d, err := time.ParseDuration(getEnv(key, fallback.String()))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return d
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:                      getEnv("MONGODB_DB", "bookswap"),
		MongoMaxPool:                uint64(intVar("MONGODB_MAX_POOL", 10)),
		MongoConnectTimeout:         durVar("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		MongoServerSelectionTimeout: durVar("MONGODB_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		MongoSocketTimeout:          durVar("MONGODB_SOCKET_TIMEOUT", 45*time.Second),
		MongoMaxIdle:                durVar("MONGODB_MAX_IDLE", 30*time.Second),

		JWTSecret:  getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiry:  durVar("JWT_EXPIRES_IN", 7*24*time.Hour),
		BcryptCost: intVar("BCRYPT_COST", 12),

		S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		S3Region:        getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL: getEnv("AWS_S3_PUBLIC_BASE_URL", ""),
		S3Prefix:        getEnv("AWS_S3_PREFIX", "book-covers/"),
		MaxUploadMB:     int64(intVar("MAX_UPLOAD_MB", 10)),

		RateLimitRequests: intVar("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   durVar("RATE_LIMIT_WINDOW", 15*time.Minute),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           intVar("REDIS_DB", 0),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "bookswap-events"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}
	if cfg.S3PublicBaseURL == "" && cfg.S3Bucket != "" {
		cfg.S3PublicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequiredEnvVars must be set in the environment (or .env) for the server to start.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"JWT_SECRET",
	"AWS_S3_BUCKET",
}

// Validate checks required variables and value ranges. All problems are reported at once.
func (c *Config) Validate() error {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required env: %s", strings.Join(missing, ", ")))
	}
	if c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set to a strong secret"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
