package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	// clear env vars
	_ = os.Unsetenv("REPLEDGER_STORE_DRIVER")
	_ = os.Unsetenv("REPLEDGER_HE_PRESET")
	_ = os.Unsetenv("REPLEDGER_REQUEST_TTL_SECONDS")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.StoreDriver != "sqlite" || cfg.HEPreset != "PN12QP109" || cfg.RequestTTLSeconds != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.GetHTTPAddr() != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.GetHTTPAddr())
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("REPLEDGER_STORE_DRIVER", "memory")
	_ = os.Setenv("REPLEDGER_HTTP_PORT", "9000")
	defer func() {
		_ = os.Unsetenv("REPLEDGER_STORE_DRIVER")
		_ = os.Unsetenv("REPLEDGER_HTTP_PORT")
	}()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.StoreDriver != "memory" {
		t.Fatalf("store driver env override failed, got %s", cfg.StoreDriver)
	}
	if cfg.GetHTTPAddr() != ":9000" {
		t.Fatalf("http port env override failed, got %s", cfg.GetHTTPAddr())
	}
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	_ = os.Setenv("REPLEDGER_STORE_DRIVER", "spanner")
	defer func() { _ = os.Unsetenv("REPLEDGER_STORE_DRIVER") }()

	if _, err := New(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestConfigLoad_RejectsBadVerifyKey(t *testing.T) {
	_ = os.Setenv("REPLEDGER_ORACLE_VERIFY_KEY", "not-hex")
	defer func() { _ = os.Unsetenv("REPLEDGER_ORACLE_VERIFY_KEY") }()

	if _, err := New(); err == nil {
		t.Fatal("expected error for non-hex verify key")
	}
}
