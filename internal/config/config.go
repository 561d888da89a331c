// Package config assembles the cleanup settings from the environment.
package config

import (
	"strings"
	"time"

	"github.com/httprunner/adbcleanup/internal/agent/device"
	"github.com/httprunner/adbcleanup/internal/cleanup"
	"github.com/httprunner/adbcleanup/internal/env"
	"github.com/pkg/errors"
)

// Environment keys. Flags on the command line take precedence.
const (
	EnvADBPath    = "ADB_PATH"
	EnvBackend    = "ADB_BACKEND"
	EnvRetries    = "CLEANUP_RETRIES"
	EnvRetryDelay = "CLEANUP_RETRY_DELAY"
	EnvSettings   = "CLEANUP_SETTINGS"
	EnvFiles      = "CLEANUP_FILES"
	EnvPackages   = "CLEANUP_PACKAGES"
	EnvSerials    = "CLEANUP_SERIALS"
	EnvLogFile    = "CLEANUP_LOG_FILE"
	EnvDryRun     = "CLEANUP_DRY_RUN"
)

const (
	// BackendExec spawns the adb executable for every command.
	BackendExec = "exec"
	// BackendGADB talks to a running adb server.
	BackendGADB = "gadb"

	DefaultLogFile = "adb_cleanup.log"
)

// Config is the effective configuration for one run.
type Config struct {
	ADBPath    string
	Backend    string
	Retries    int
	RetryDelay time.Duration
	Targets    cleanup.Targets
	Serials    []string
	LogFile    string
	DryRun     bool
}

// FromEnv reads Config from the environment (and .env), using the reference
// defaults for anything unset.
func FromEnv() Config {
	return Config{
		ADBPath:    env.String(EnvADBPath, ""),
		Backend:    strings.ToLower(env.String(EnvBackend, BackendExec)),
		Retries:    env.Int(EnvRetries, device.DefaultRetries),
		RetryDelay: env.Duration(EnvRetryDelay, device.DefaultRetryDelay),
		Targets: cleanup.NewTargets(
			env.List(EnvSettings, cleanup.DefaultSettings()),
			env.List(EnvFiles, cleanup.DefaultFiles()),
			env.List(EnvPackages, cleanup.DefaultPackages()),
		),
		Serials: device.ParseAllowlist(env.String(EnvSerials, "")),
		LogFile: env.String(EnvLogFile, DefaultLogFile),
		DryRun:  env.Bool(EnvDryRun, false),
	}
}

// Validate rejects values that would make the run meaningless.
func (c Config) Validate() error {
	if c.Retries < 1 {
		return errors.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.RetryDelay < 0 {
		return errors.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	switch c.Backend {
	case BackendExec, BackendGADB:
	default:
		return errors.Errorf("unknown adb backend %q (want %s or %s)", c.Backend, BackendExec, BackendGADB)
	}
	return nil
}
