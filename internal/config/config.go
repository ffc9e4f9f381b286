// Package config loads service configuration from REPLEDGER_-prefixed
// environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the reputation ledger service.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Store driver: memory (single-node dev) or sqlite
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/ledger.db"`

	// BFV encryption context: parameter preset and public key file
	HEPreset        string `envconfig:"HE_PRESET" default:"PN12QP109"`
	HEPublicKeyPath string `envconfig:"HE_PUBLIC_KEY_PATH" default:"keys/bfv.pub"`

	// Decryption oracle
	OracleURL       string `envconfig:"ORACLE_URL" default:"http://localhost:8090"`
	OracleVerifyKey string `envconfig:"ORACLE_VERIFY_KEY" default:""`

	// Badge minting endpoint
	MintURL string `envconfig:"MINT_URL" default:"http://localhost:8091"`

	// Pending-request expiry; 0 disables (requests then stay pending until
	// their callback arrives)
	RequestTTLSeconds      int `envconfig:"REQUEST_TTL_SECONDS" default:"0"`
	JanitorIntervalSeconds int `envconfig:"JANITOR_INTERVAL_SECONDS" default:"60"`

	// Health probing
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("REPLEDGER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and key material shapes.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.StoreDriver == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH required for the sqlite driver")
	}
	if c.OracleVerifyKey != "" {
		if _, err := c.DecodeOracleVerifyKey(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeOracleVerifyKey decodes the hex-encoded ed25519 verification key.
func (c *Config) DecodeOracleVerifyKey() ([]byte, error) {
	key, err := hex.DecodeString(c.OracleVerifyKey)
	if err != nil {
		return nil, fmt.Errorf("ORACLE_VERIFY_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// RequestTTL returns the configured request expiry as a duration.
func (c *Config) RequestTTL() time.Duration {
	return time.Duration(c.RequestTTLSeconds) * time.Second
}

// JanitorInterval returns the janitor poll cadence.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}
