package bridge

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ExecutionError reports a single adb invocation that exited non-zero or
// could not be started.
type ExecutionError struct {
	Serial   string
	Args     []string
	ExitCode int // -1 when the process never ran
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString("adb")
	if e.Serial != "" {
		b.WriteString(" -s ")
		b.WriteString(e.Serial)
	}
	if len(e.Args) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(e.Args, " "))
	}
	fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// UnavailableError means the bridge tool cannot be invoked at all.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("adb is not installed or not found in PATH: %v", e.Err)
	}
	return fmt.Sprintf("adb at %s is not usable: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// NoDeviceError is returned once the discovery retry budget is spent.
type NoDeviceError struct {
	Attempts int
}

func (e *NoDeviceError) Error() string {
	return fmt.Sprintf("no connected devices found after %d attempt(s); connect a device and ensure USB debugging is enabled", e.Attempts)
}

// IsUnavailable reports whether err wraps an *UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// IsNoDevice reports whether err wraps a *NoDeviceError.
func IsNoDevice(err error) bool {
	var target *NoDeviceError
	return errors.As(err, &target)
}

// IsExecution reports whether err wraps an *ExecutionError.
func IsExecution(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
