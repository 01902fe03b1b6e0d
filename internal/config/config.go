package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendCouchbase = "couchbase"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

type Config struct {
	Env              string `mapstructure:"ENV"`
	APIPort          string `mapstructure:"API_PORT"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
	AppName          string `mapstructure:"APP_NAME"`

	StoreBackend        string `mapstructure:"STORE_BACKEND"`
	CouchbaseURL        string `mapstructure:"COUCHBASE_URL"`
	CouchbaseUsername   string `mapstructure:"COUCHBASE_USERNAME"`
	CouchbasePassword   string `mapstructure:"COUCHBASE_PASSWORD"`
	CouchbaseBucket     string `mapstructure:"COUCHBASE_BUCKET"`
	CouchbaseScope      string `mapstructure:"COUCHBASE_SCOPE"`
	CouchbaseCollection string `mapstructure:"COUCHBASE_COLLECTION"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32  `mapstructure:"DB_MIN_CONNS"`

	FHIRBaseURL  string        `mapstructure:"FHIR_BASE_URL"`
	FHIRTimeout  time.Duration `mapstructure:"FHIR_TIMEOUT"`
	FHIRPageSize int           `mapstructure:"FHIR_PAGE_SIZE"`

	AssistantURL     string        `mapstructure:"ASSISTANT_URL"`
	AssistantTimeout time.Duration `mapstructure:"ASSISTANT_TIMEOUT"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	EnableBusinessMetrics bool          `mapstructure:"ENABLE_BUSINESS_METRICS"`
	EnableSystemMetrics   bool          `mapstructure:"ENABLE_SYSTEM_METRICS"`
}

var defaults = map[string]any{
	"ENV":                     "development",
	"API_PORT":                "8080",
	"LOG_LEVEL":               "info",
	"APP_NAME":                "clinicportal",
	"STORE_BACKEND":           BackendCouchbase,
	"COUCHBASE_URL":           "couchbase://localhost",
	"COUCHBASE_BUCKET":        "clinicportal",
	"COUCHBASE_SCOPE":         "_default",
	"COUCHBASE_COLLECTION":    "_default",
	"DB_MAX_CONNS":            20,
	"DB_MIN_CONNS":            5,
	"FHIR_BASE_URL":           "https://hapi.fhir.org/baseR4",
	"FHIR_TIMEOUT":            "30s",
	"FHIR_PAGE_SIZE":          100,
	"ASSISTANT_TIMEOUT":       "20s",
	"KAFKA_TOPIC":             "clinic-events",
	"REQUEST_TIMEOUT":         "15s",
	"ENABLE_BUSINESS_METRICS": true,
	"ENABLE_SYSTEM_METRICS":   true,
}

var keys = []string{
	"ENV", "API_PORT", "LOG_LEVEL", "ELASTICSEARCH_URL", "APP_NAME",
	"STORE_BACKEND", "COUCHBASE_URL", "COUCHBASE_USERNAME", "COUCHBASE_PASSWORD",
	"COUCHBASE_BUCKET", "COUCHBASE_SCOPE", "COUCHBASE_COLLECTION",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"FHIR_BASE_URL", "FHIR_TIMEOUT", "FHIR_PAGE_SIZE",
	"ASSISTANT_URL", "ASSISTANT_TIMEOUT",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"REQUEST_TIMEOUT", "ENABLE_BUSINESS_METRICS", "ENABLE_SYSTEM_METRICS",
}

// Load reads configuration from the environment. A .env file in the parent
// or current directory is loaded first; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings the selected backend and services need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendCouchbase:
		if c.CouchbaseURL == "" || c.CouchbaseBucket == "" {
			return fmt.Errorf("COUCHBASE_URL and COUCHBASE_BUCKET are required for the couchbase backend")
		}
		if c.CouchbaseUsername == "" || c.CouchbasePassword == "" {
			return fmt.Errorf("COUCHBASE_USERNAME and COUCHBASE_PASSWORD are required for the couchbase backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q",
			BackendCouchbase, BackendPostgres, BackendMemory, c.StoreBackend)
	}

	if c.APIPort == "" {
		return fmt.Errorf("API_PORT is required")
	}
	if c.FHIRPageSize <= 0 {
		return fmt.Errorf("FHIR_PAGE_SIZE must be positive, got %d", c.FHIRPageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
