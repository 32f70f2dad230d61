package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Telemetry TelemetryConfig

	DBType            string
	DBURL             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBConnectTimeout  time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Invoice   InvoiceConfig

	HealthConfigPath string
	MigrateOnStart   bool

	// SnowflakeNodeID overrides the per-binary default node. Replicas of the
	// same binary must each set a distinct value in 0..1023.
	SnowflakeNodeID *int64
}

// TelemetryConfig feeds logging, tracing and OTLP metrics.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig bounds how often a single API key may trigger score
// recomputation. Applied only when redis is configured.
type RateLimitConfig struct {
	TriggerPerMinute float64
	TriggerBurst     int
}

type SchedulerConfig struct {
	RunInterval        time.Duration
	EnabledJobs        []string
	HealthSweepTimeout time.Duration
	SweepLockTTL       time.Duration
	ExpireBatchSize    int
}

type InvoiceConfig struct {
	VATPercent    float64
	DueDays       int
	Currency      string
	Prefix        string
	SellerName    string
	SellerAddress string
	SellerVATNo   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "schoolgle"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBURL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "schoolgle"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBConnectTimeout:  getenvDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "json")),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:  strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			TriggerPerMinute: getenvFloat("RATE_LIMIT_TRIGGER_PER_MINUTE", 6),
			TriggerBurst:     getenvInt("RATE_LIMIT_TRIGGER_BURST", 3),
		},
		Scheduler: SchedulerConfig{
			RunInterval:        getenvDuration("SCHEDULER_RUN_INTERVAL", 24*time.Hour),
			EnabledJobs:        parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
			HealthSweepTimeout: getenvDuration("SCHEDULER_HEALTH_SWEEP_TIMEOUT", 10*time.Minute),
			SweepLockTTL:       getenvDuration("SCHEDULER_SWEEP_LOCK_TTL", 15*time.Minute),
			ExpireBatchSize:    getenvInt("SCHEDULER_EXPIRE_BATCH_SIZE", 100),
		},
		Invoice: InvoiceConfig{
			VATPercent:    getenvFloat("INVOICE_VAT_PERCENT", 20),
			DueDays:       getenvInt("INVOICE_DUE_DAYS", 30),
			Currency:      strings.ToUpper(getenv("INVOICE_CURRENCY", "GBP")),
			Prefix:        strings.ToUpper(getenv("INVOICE_PREFIX", "SCH")),
			SellerName:    getenv("INVOICE_SELLER_NAME", "Schoolgle Ltd"),
			SellerAddress: getenv("INVOICE_SELLER_ADDRESS", ""),
			SellerVATNo:   getenv("INVOICE_SELLER_VAT_NO", ""),
		},
		HealthConfigPath: strings.TrimSpace(getenv("HEALTH_CONFIG_PATH", "")),
		MigrateOnStart:   getenvBool("MIGRATE_ON_START", true),
		SnowflakeNodeID:  getenvOptionalInt64("SNOWFLAKE_NODE_ID"),
	}

	return cfg
}

// IsProduction reports whether the service runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// NodeID returns the configured snowflake node, or fallback when unset.
func (c Config) NodeID(fallback int64) int64 {
	if c.SnowflakeNodeID != nil {
		return *c.SnowflakeNodeID
	}
	return fallback
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvOptionalInt64(key string) *int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
