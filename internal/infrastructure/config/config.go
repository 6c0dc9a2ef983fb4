package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig
	Storage       StorageConfig
	Ledger        LedgerConfig
	Calendar      CalendarConfig
	Catalog       CatalogConfig
	Observability ObservabilityConfig
	Activities    ActivitiesConfig
}

type AppConfig struct {
	Name string
	// MetricsPort serves /metrics when observability metrics are enabled.
	MetricsPort int
}

type StorageConfig struct {
	SQLiteFile    string
	BatchSize     int
	FlushInterval time.Duration
	// WorkflowFile backs the durable intake orchestrations; empty means in-memory.
	WorkflowFile string
	// EventRetention bounds the activity audit trail.
	EventRetention time.Duration
}

type LedgerConfig struct {
	LockTimeout      time.Duration
	LimitedThreshold float64
}

type CalendarConfig struct {
	Holidays                []string
	WeekendDays             []string
	BreakerThreshold        float64
	BreakerTimeout          time.Duration
	DefaultWindowSpanInDays int
}

// CatalogConfig seeds room types on startup. Stored room types not listed
// here are kept.
type CatalogConfig struct {
	RoomTypes []RoomTypeConfig
}

type RoomTypeConfig struct {
	ID        string
	Name      string
	Capacity  int
	BasePrice string
}

type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // "json" or "text"
	MetricsEnabled bool
	TracingEnabled bool
	ZipkinEndpoint string
}

type ActivitiesConfig struct {
	RetryMaxAttempts        int
	RetryBackoffMs          int
	TimeoutSeconds          int
	CircuitBreakerThreshold float64
	CircuitBreakerTimeout   time.Duration
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "roomledger",
			MetricsPort: 9090,
		},
		Storage: StorageConfig{
			SQLiteFile:     "data/roomledger.db",
			BatchSize:      100,
			FlushInterval:  2 * time.Second,
			WorkflowFile:   "data/workflows.db",
			EventRetention: 7 * 24 * time.Hour,
		},
		Ledger: LedgerConfig{
			LockTimeout:      5 * time.Second,
			LimitedThreshold: 0.30,
		},
		Calendar: CalendarConfig{
			WeekendDays:             []string{"saturday", "sunday"},
			BreakerThreshold:        0.5,
			BreakerTimeout:          30 * time.Second,
			DefaultWindowSpanInDays: 14,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
			TracingEnabled: false,
			ZipkinEndpoint: "http://localhost:9411/api/v2/spans",
		},
		Activities: ActivitiesConfig{
			RetryMaxAttempts:        3,
			RetryBackoffMs:          100,
			TimeoutSeconds:          30,
			CircuitBreakerThreshold: 0.5,
			CircuitBreakerTimeout:   10 * time.Second,
		},
	}
}

// LoadConfig loads configuration from YAML file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	if sqliteFile := os.Getenv("APP_STORAGE_SQLITE_FILE"); sqliteFile != "" {
		cfg.Storage.SQLiteFile = sqliteFile
	}
	if workflowFile, ok := os.LookupEnv("APP_STORAGE_WORKFLOW_FILE"); ok {
		cfg.Storage.WorkflowFile = workflowFile
	}
	if lockTimeout := os.Getenv("APP_LEDGER_LOCK_TIMEOUT"); lockTimeout != "" {
		if d, err := time.ParseDuration(lockTimeout); err == nil {
			cfg.Ledger.LockTimeout = d
		}
	}
	if threshold := os.Getenv("APP_LEDGER_LIMITED_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.Ledger.LimitedThreshold = f
		}
	}
	if holidays := os.Getenv("APP_CALENDAR_HOLIDAYS"); holidays != "" {
		cfg.Calendar.Holidays = strings.Split(holidays, ",")
	}
	if weekend := os.Getenv("APP_CALENDAR_WEEKEND_DAYS"); weekend != "" {
		cfg.Calendar.WeekendDays = strings.Split(weekend, ",")
	}
	if logLevel := os.Getenv("APP_LOG_LEVEL"); logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}
	if tracingEnabled := os.Getenv("APP_TRACING_ENABLED"); tracingEnabled != "" {
		cfg.Observability.TracingEnabled = tracingEnabled == "true"
	}
	if zipkinEndpoint := os.Getenv("APP_ZIPKIN_ENDPOINT"); zipkinEndpoint != "" {
		cfg.Observability.ZipkinEndpoint = zipkinEndpoint
	}

	return cfg, nil
}
