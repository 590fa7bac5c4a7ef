// Package config loads process configuration from the environment so main
// stays lean. Every knob has a default suitable for local development; only
// DATABASE_URL is required outside dev mode.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration for the certledger server.
type Config struct {
	Addr     string `envconfig:"CERTLEDGER_ADDR" default:":8080"`
	LogLevel string `envconfig:"CERTLEDGER_LOG_LEVEL" default:"info"`

	// DatabaseURL enables the Postgres record and audit stores. When empty
	// the server falls back to in-memory stores (dev mode).
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// RedisURL enables the ledger verify-result cache. Optional.
	RedisURL string `envconfig:"REDIS_URL"`

	Extraction ExtractionConfig
	Ledger     LedgerConfig
	Anchor     AnchorConfig
	Ingestion  IngestionConfig
	Audit      AuditConfig

	ShutdownTimeout time.Duration `envconfig:"CERTLEDGER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// ExtractionConfig drives the document extraction client.
type ExtractionConfig struct {
	URL     string        `envconfig:"EXTRACTION_SERVICE_URL" default:"http://localhost:5000"`
	Timeout time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"30s"`
	// Mock substitutes a fixed extraction result for the remote call. It is
	// an explicit operational switch, never implicit fallback behavior.
	Mock bool `envconfig:"EXTRACTION_MOCK" default:"false"`
}

// LedgerMode selects the integrity ledger implementation.
type LedgerMode string

const (
	LedgerModeHTTP     LedgerMode = "http"
	LedgerModeEthereum LedgerMode = "ethereum"
	LedgerModeNone     LedgerMode = "none"
)

// LedgerConfig drives the integrity ledger client.
type LedgerConfig struct {
	Mode          LedgerMode    `envconfig:"LEDGER_MODE" default:"http"`
	URL           string        `envconfig:"LEDGER_SERVICE_URL" default:"http://localhost:8545"`
	VerifyTimeout time.Duration `envconfig:"LEDGER_VERIFY_TIMEOUT" default:"10s"`
	AnchorTimeout time.Duration `envconfig:"LEDGER_ANCHOR_TIMEOUT" default:"10s"`

	// Ethereum mode only.
	ContractAddress string `envconfig:"LEDGER_CONTRACT_ADDRESS"`
	PrivateKey      string `envconfig:"LEDGER_PRIVATE_KEY"`

	// VerifyCacheTTL bounds how long a positive verify result is reused from
	// Redis. Zero disables the cache even when Redis is configured.
	VerifyCacheTTL time.Duration `envconfig:"LEDGER_VERIFY_CACHE_TTL" default:"5m"`
}

// AnchorConfig sizes the background anchoring dispatcher.
type AnchorConfig struct {
	Workers   int `envconfig:"ANCHOR_WORKERS" default:"4"`
	QueueSize int `envconfig:"ANCHOR_QUEUE_SIZE" default:"1024"`
}

// IngestionConfig bounds the bulk upload pipeline.
type IngestionConfig struct {
	ParseTimeout   time.Duration `envconfig:"INGESTION_PARSE_TIMEOUT" default:"25s"`
	MaxUploadBytes int64         `envconfig:"INGESTION_MAX_UPLOAD_BYTES" default:"10485760"`
	MaxRowErrors   int           `envconfig:"INGESTION_MAX_ROW_ERRORS" default:"25"`
}

// AuditConfig drives the verification log sink.
type AuditConfig struct {
	// KafkaBrokers enables best-effort fan-out of log entries to Kafka in
	// addition to the durable store. Empty disables the sink.
	KafkaBrokers []string `envconfig:"AUDIT_KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"AUDIT_KAFKA_TOPIC" default:"certledger.verifications"`
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("certledger", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if cfg.Ledger.Mode == LedgerModeEthereum && cfg.Ledger.ContractAddress == "" {
		return Config{}, fmt.Errorf("LEDGER_CONTRACT_ADDRESS is required in ethereum ledger mode")
	}
	return cfg, nil
}
