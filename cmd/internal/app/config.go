package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	RedisURL string

	// Object storage for chat image attachments. Optional: when the
	// endpoint is empty the image endpoints respond 503.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool
	// If true:
	// - /readyz returns 503 unless Redis is configured and reachable.
	ReadinessRequireRedis bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PAWLINE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PAWLINE_LOG_LEVEL", "info"),
		LogFormat: EnvString("PAWLINE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("PAWLINE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PAWLINE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PAWLINE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PAWLINE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("PAWLINE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("PAWLINE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("PAWLINE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("PAWLINE_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("PAWLINE_DB_SCHEMA", "pawline"),

		RedisURL: EnvString("PAWLINE_REDIS_URL", ""),

		S3Endpoint:  EnvString("PAWLINE_S3_ENDPOINT", ""),
		S3AccessKey: EnvString("PAWLINE_S3_ACCESS_KEY", ""),
		S3SecretKey: EnvString("PAWLINE_S3_SECRET_KEY", ""),
		S3Bucket:    EnvString("PAWLINE_S3_BUCKET", "pawline-chat"),
		S3UseSSL:    EnvBool("PAWLINE_S3_USE_SSL", true),

		ReadinessRequireDB:    EnvBool("PAWLINE_READINESS_REQUIRE_DB", false),
		ReadinessRequireRedis: EnvBool("PAWLINE_READINESS_REQUIRE_REDIS", false),
	}
}
