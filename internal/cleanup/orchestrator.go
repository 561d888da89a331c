// Package cleanup resets identifying state on connected Android devices.
package cleanup

import (
	"context"
	"time"

	"github.com/httprunner/adbcleanup/internal/agent/device"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Commander runs adb commands scoped to a device.
type Commander interface {
	Check(ctx context.Context) error
	Run(ctx context.Context, serial string, args ...string) error
}

// DeviceWaiter discovers devices with a retry budget.
type DeviceWaiter interface {
	WaitForDevices(ctx context.Context, retries int, delay time.Duration) ([]string, error)
}

// Config controls Orchestrator behavior.
type Config struct {
	Targets    Targets
	Retries    int
	RetryDelay time.Duration
	DryRun     bool
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Orchestrator runs the settings, files and packages phases on every
// discovered device, one device and one command at a time.
type Orchestrator struct {
	cfg       Config
	commander Commander
	discovery DeviceWaiter
	logger    zerolog.Logger
}

type phase struct {
	name    string
	action  string
	items   func(Targets) []string
	command func(string) []string
}

// Phases run in this order; items within a phase keep their list order.
var phases = []phase{
	{name: "settings", action: "deleting secure setting", items: Targets.Settings, command: SettingCommand},
	{name: "files", action: "removing system file", items: Targets.Files, command: RemoveCommand},
	{name: "packages", action: "clearing package data", items: Targets.Packages, command: ClearCommand},
}

// New builds an Orchestrator, filling unset config fields with defaults.
func New(cfg Config, commander Commander, discovery DeviceWaiter) (*Orchestrator, error) {
	if commander == nil {
		return nil, errors.New("commander cannot be nil")
	}
	if discovery == nil {
		return nil, errors.New("device discovery cannot be nil")
	}
	if cfg.Targets.IsZero() {
		cfg.Targets = DefaultTargets()
	}
	if cfg.Retries <= 0 {
		cfg.Retries = device.DefaultRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = device.DefaultRetryDelay
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Orchestrator{
		cfg:       cfg,
		commander: commander,
		discovery: discovery,
		logger:    logger,
	}, nil
}

// Run checks the bridge, waits for devices and cleans each of them in turn.
// Only bridge, discovery and context errors are returned; failed cleanup
// commands are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info().Str("device", "N/A").Msg("starting adb cleanup")
	if err := o.commander.Check(ctx); err != nil {
		o.logger.Error().Err(err).Msg("adb cannot be used; cleanup aborted")
		return err
	}

	serials, err := o.discovery.WaitForDevices(ctx, o.cfg.Retries, o.cfg.RetryDelay)
	if err != nil {
		o.logger.Error().Err(err).Msg("device discovery failed; ensure the device is connected via USB with USB debugging enabled")
		return err
	}

	for _, serial := range serials {
		if _, err := o.CleanDevice(ctx, serial); err != nil {
			return err
		}
	}
	o.logger.Info().Int("devices", len(serials)).Msg("adb cleanup completed for all devices")
	return nil
}

// CleanDevice runs every phase on one device and returns how many commands
// failed. The error is non-nil only when ctx is done.
func (o *Orchestrator) CleanDevice(ctx context.Context, serial string) (failed int, err error) {
	logger := o.logger.With().Str("device", serial).Logger()
	logger.Info().Int("commands", o.cfg.Targets.Count()).Msg("starting cleanup operations")

	for _, p := range phases {
		for _, item := range p.items(o.cfg.Targets) {
			if err := ctx.Err(); err != nil {
				logger.Warn().Err(err).Msg("cleanup interrupted")
				return failed, err
			}
			args := p.command(item)
			logger.Info().Str("phase", p.name).Msg(p.action + ": " + item)
			if o.cfg.DryRun {
				logger.Info().Strs("args", args).Msg("dry run, command skipped")
				continue
			}
			if err := o.commander.Run(ctx, serial, args...); err != nil {
				failed++
				logger.Warn().Err(err).Str("phase", p.name).Str("item", item).Msg("command failed, continuing")
			}
		}
	}

	if failed > 0 {
		logger.Warn().Int("failed", failed).Int("commands", o.cfg.Targets.Count()).Msg("cleanup operations completed with failures")
	} else {
		logger.Info().Msg("cleanup operations completed successfully")
	}
	return failed, nil
}
