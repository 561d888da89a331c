package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/httprunner/adbcleanup/internal/agent/device"
	"github.com/httprunner/adbcleanup/internal/bridge"
	"github.com/httprunner/adbcleanup/internal/cleanup"
	"github.com/httprunner/adbcleanup/internal/config"
	"github.com/httprunner/adbcleanup/internal/env"
	adbprovider "github.com/httprunner/adbcleanup/internal/providers/adb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagADBPath string
	flagBackend string
	flagLogFile string
	flagEnvFile string
	flagSerials []string
	flagVerbose bool

	flagRetries int
	flagDelay   time.Duration
	flagDryRun  bool

	runCfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "adbcleanup",
	Short: "Reset identifying state on connected Android devices",
	Long: `adbcleanup deletes identifying secure settings, removes account and sync
state files (requires su) and clears Google services package data on every
connected, authorized device, one device at a time. Individual command
failures are logged and skipped.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := newBridge(runCfg)
		discovery := device.NewDiscovery(b, runCfg.Serials)
		orchestrator, err := cleanup.New(cleanup.Config{
			Targets:    runCfg.Targets,
			Retries:    runCfg.Retries,
			RetryDelay: runCfg.RetryDelay,
			DryRun:     runCfg.DryRun,
		}, b, discovery)
		if err != nil {
			return err
		}
		log.Info().
			Str("backend", runCfg.Backend).
			Int("retries", runCfg.Retries).
			Dur("retry_delay", runCfg.RetryDelay).
			Int("commands_per_device", runCfg.Targets.Count()).
			Bool("dry_run", runCfg.DryRun).
			Str("log_file", runCfg.LogFile).
			Msg("adb cleanup configured")
		return orchestrator.Run(ctx)
	},
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: logTimeFormat}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagADBPath, "adb", "", "adb executable overriding $"+config.EnvADBPath+" (default: adb on PATH)")
	pf.StringVar(&flagBackend, "backend", "", "adb backend: exec or gadb, overriding $"+config.EnvBackend)
	pf.StringVar(&flagLogFile, "log-file", "", "append-only log file overriding $"+config.EnvLogFile+" (default "+config.DefaultLogFile+")")
	pf.StringVar(&flagEnvFile, "env-file", "", "explicit env file loaded before the environment is read")
	pf.StringSliceVarP(&flagSerials, "serial", "s", nil, "only process these device serials, overriding $"+config.EnvSerials)
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log every adb invocation")

	f := rootCmd.Flags()
	f.IntVar(&flagRetries, "retries", device.DefaultRetries, "device discovery attempts, overriding $"+config.EnvRetries)
	f.DurationVar(&flagDelay, "delay", device.DefaultRetryDelay, "pause between discovery attempts, overriding $"+config.EnvRetryDelay)
	f.BoolVar(&flagDryRun, "dry-run", false, "log the cleanup commands without executing them")

	rootCmd.AddCommand(
		newDevicesCmd(),
		newTargetsCmd(),
	)
	_ = env.Ensure()
}

// loadConfig merges env and flags, then switches logging to the configured
// log file.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := env.LoadFile(flagEnvFile); err != nil {
		return err
	}
	cfg := config.FromEnv()
	cfg.ADBPath = firstNonEmpty(flagADBPath, cfg.ADBPath)
	cfg.Backend = strings.ToLower(firstNonEmpty(flagBackend, cfg.Backend))
	cfg.LogFile = firstNonEmpty(flagLogFile, cfg.LogFile)
	if len(flagSerials) > 0 {
		cfg.Serials = device.NormalizeAllowlist(flagSerials)
	}
	if flags := cmd.Flags(); flags.Lookup("retries") != nil {
		if flags.Changed("retries") {
			cfg.Retries = flagRetries
		}
		if flags.Changed("delay") {
			cfg.RetryDelay = flagDelay
		}
		if flags.Changed("dry-run") {
			cfg.DryRun = flagDryRun
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg.LogFile, flagVerbose); err != nil {
		return err
	}
	runCfg = cfg
	return nil
}

func newBridge(cfg config.Config) bridge.Bridge {
	if cfg.Backend == config.BackendGADB {
		return adbprovider.NewDefault()
	}
	return bridge.NewRunner(cfg.ADBPath)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case bridge.IsUnavailable(err):
		return 2
	case bridge.IsNoDevice(err):
		return 3
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg("adbcleanup command failed")
	}
	closeLogFile()
	os.Exit(exitCode(err))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
