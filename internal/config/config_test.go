package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{EnvADBPath, EnvBackend, EnvRetries, EnvRetryDelay, EnvSettings, EnvFiles, EnvPackages, EnvSerials, EnvLogFile, EnvDryRun} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.Backend != BackendExec || cfg.Retries != 5 || cfg.RetryDelay != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Targets.Count() != 23 {
		t.Fatalf("expected reference targets, got %d commands", cfg.Targets.Count())
	}
	if cfg.LogFile != DefaultLogFile || cfg.DryRun || len(cfg.Serials) != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvBackend, "GADB")
	t.Setenv(EnvRetries, "2")
	t.Setenv(EnvRetryDelay, "250ms")
	t.Setenv(EnvSettings, "android_id")
	t.Setenv(EnvFiles, "/data/system/users/0/accounts.db")
	t.Setenv(EnvPackages, "com.android.vending,com.google.android.gms")
	t.Setenv(EnvSerials, "ABC123 DEF456")
	t.Setenv(EnvDryRun, "true")

	cfg := FromEnv()
	if cfg.Backend != BackendGADB || cfg.Retries != 2 || cfg.RetryDelay != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Targets.Count() != 4 {
		t.Fatalf("expected 4 commands, got %d", cfg.Targets.Count())
	}
	if strings.Join(cfg.Serials, ",") != "ABC123,DEF456" || !cfg.DryRun {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Backend: BackendExec, Retries: 1}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := []Config{
		{Backend: BackendExec, Retries: 0},
		{Backend: BackendExec, Retries: 1, RetryDelay: -time.Second},
		{Backend: "usb", Retries: 1},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}
