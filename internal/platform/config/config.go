// Package config builds the process configuration from environment variables
// so main stays lean. Every knob has a development-safe default; production
// deployments override via the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full configuration for the docproof server.
type Config struct {
	Server  Server
	DB      DB
	Redis   RedisConfig
	Events  Events
	Stellar Stellar
	Risk    Risk
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// DB captures the relational store configuration.
type DB struct {
	URL string
}

// RedisConfig captures the verification-cache configuration. An empty URL
// disables the cache entirely.
type RedisConfig struct {
	URL             string
	VerificationTTL time.Duration
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Events captures the workflow state-change event stream configuration.
// Empty Brokers disables publishing.
type Events struct {
	Brokers []string
	Topic   string
}

// NetworkConfig holds the per-network ledger endpoints.
type NetworkConfig struct {
	HorizonURL        string
	NetworkPassphrase string
}

// Stellar captures the anchoring subsystem configuration.
type Stellar struct {
	Testnet NetworkConfig
	Mainnet NetworkConfig

	// BaseFee is the per-operation fee in stroops used when building
	// transactions; MaxFee caps fee estimates.
	BaseFee int64
	MaxFee  int64

	// TxTimeout bounds transaction validity (timebounds) at submission.
	TxTimeout time.Duration

	// PollInterval is the sleep between confirmation polls;
	// ConfirmationTimeout is the total wall-clock budget for polling.
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration

	// RetryAttempts and RetryDelay bound transient-failure retries on
	// ledger reads.
	RetryAttempts int
	RetryDelay    time.Duration

	// SecretEncryptionKey is the hex-encoded 32-byte key sealing account
	// secret seeds at rest.
	SecretEncryptionKey string
}

// Risk holds the threshold above which an analyzed document is rejected
// instead of moving on to anchoring.
type Risk struct {
	RejectThreshold float64
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr: getEnv("DOCPROOF_ADDR", ":8080"),
		},
		DB: DB{
			URL: getEnv("DATABASE_URL", "postgres://localhost:5432/docproof?sslmode=disable"),
		},
		Redis: RedisConfig{
			URL:             os.Getenv("REDIS_URL"),
			VerificationTTL: getDuration("VERIFICATION_CACHE_TTL", time.Hour),
			PoolSize:        getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:    getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:     getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Events: Events{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("WORKFLOW_EVENTS_TOPIC", "docproof.workflow-events"),
		},
		Stellar: Stellar{
			Testnet: NetworkConfig{
				HorizonURL:        getEnv("STELLAR_TESTNET_HORIZON_URL", "https://horizon-testnet.stellar.org"),
				NetworkPassphrase: getEnv("STELLAR_TESTNET_PASSPHRASE", "Test SDF Network ; September 2015"),
			},
			Mainnet: NetworkConfig{
				HorizonURL:        getEnv("STELLAR_MAINNET_HORIZON_URL", "https://horizon.stellar.org"),
				NetworkPassphrase: getEnv("STELLAR_MAINNET_PASSPHRASE", "Public Global Stellar Network ; September 2015"),
			},
			BaseFee:             int64(getInt("STELLAR_BASE_FEE", 100)),
			MaxFee:              int64(getInt("STELLAR_MAX_FEE", 10000)),
			TxTimeout:           getDuration("STELLAR_TX_TIMEOUT", 30*time.Second),
			PollInterval:        getDuration("STELLAR_POLL_INTERVAL", 2*time.Second),
			ConfirmationTimeout: getDuration("STELLAR_CONFIRMATION_TIMEOUT", 60*time.Second),
			RetryAttempts:       getInt("STELLAR_RETRY_ATTEMPTS", 3),
			RetryDelay:          getDuration("STELLAR_RETRY_DELAY", time.Second),
			SecretEncryptionKey: os.Getenv("STELLAR_SECRET_ENCRYPTION_KEY"),
		},
		Risk: Risk{
			RejectThreshold: getFloat("RISK_REJECT_THRESHOLD", 0.7),
		},
	}

	if cfg.Stellar.BaseFee <= 0 {
		return Config{}, fmt.Errorf("STELLAR_BASE_FEE must be positive")
	}
	if cfg.Stellar.MaxFee < cfg.Stellar.BaseFee {
		return Config{}, fmt.Errorf("STELLAR_MAX_FEE must be at least the base fee")
	}
	if cfg.Stellar.PollInterval <= 0 || cfg.Stellar.ConfirmationTimeout <= 0 {
		return Config{}, fmt.Errorf("polling interval and confirmation timeout must be positive")
	}
	if key := cfg.Stellar.SecretEncryptionKey; key != "" && len(key) != 64 {
		return Config{}, fmt.Errorf("STELLAR_SECRET_ENCRYPTION_KEY must be 64 hex characters")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
