package bridge

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultExecutable is looked up on PATH when no explicit path is configured.
const DefaultExecutable = "adb"

// Runner invokes the adb executable as a subprocess, one call at a time.
type Runner struct {
	path     string
	resolved string
}

// NewRunner returns a Runner for the given executable name or path.
func NewRunner(path string) *Runner {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultExecutable
	}
	return &Runner{path: path}
}

// Path returns the resolved executable after a successful Check, or the
// configured name before.
func (r *Runner) Path() string {
	if r.resolved != "" {
		return r.resolved
	}
	return r.path
}

// Check resolves the executable and makes sure `adb version` runs.
func (r *Runner) Check(ctx context.Context) error {
	resolved, err := exec.LookPath(r.path)
	if err != nil {
		return &UnavailableError{Path: r.configuredPath(), Err: err}
	}
	r.resolved = resolved
	version, err := r.Output(ctx, "version")
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(err, "check adb")
		}
		return &UnavailableError{Path: resolved, Err: err}
	}
	firstLine, _, _ := strings.Cut(version, "\n")
	log.Debug().Str("adb", resolved).Str("version", strings.TrimSpace(firstLine)).Msg("using adb")
	return nil
}

// Devices runs `adb devices` and parses every listed entry.
func (r *Runner) Devices(ctx context.Context) ([]Entry, error) {
	output, err := r.Output(ctx, "devices")
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, "list adb devices")
		}
		var execErr *ExecutionError
		if errors.As(err, &execErr) && execErr.ExitCode < 0 {
			return nil, &UnavailableError{Path: r.configuredPath(), Err: err}
		}
		return nil, errors.Wrap(err, "list adb devices")
	}
	return ParseDevices(output), nil
}

// Run executes adb -s <serial> <args...> and discards stdout.
func (r *Runner) Run(ctx context.Context, serial string, args ...string) error {
	_, err := r.exec(ctx, serial, args)
	return err
}

// Shell executes adb -s <serial> shell <args...>.
func (r *Runner) Shell(ctx context.Context, serial string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("adb runner: empty shell command")
	}
	return r.exec(ctx, serial, append([]string{"shell"}, args...))
}

// Output executes adb without a device scope and returns trimmed stdout.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	return r.exec(ctx, "", args)
}

func (r *Runner) configuredPath() string {
	if r.path == DefaultExecutable {
		return ""
	}
	return r.path
}

func (r *Runner) exec(ctx context.Context, serial string, args []string) (string, error) {
	full := make([]string, 0, len(args)+2)
	if serial != "" {
		full = append(full, "-s", serial)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.Path(), full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("device", serial).Strs("args", full).Msg("executing adb command")
	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())
	if err != nil && ctx.Err() != nil {
		// killed because ctx ended, not a failure of adb itself
		return output, errors.Wrapf(ctx.Err(), "adb %s", strings.Join(full, " "))
	}
	if err != nil {
		execErr := &ExecutionError{
			Serial:   serial,
			Args:     append([]string(nil), args...),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		return output, execErr
	}
	if output != "" {
		log.Debug().Str("device", serial).Str("output", output).Msg("adb command output")
	}
	return output, nil
}
