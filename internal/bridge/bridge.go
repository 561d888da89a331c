// Package bridge talks to Android devices through the adb command-line tool.
package bridge

import "context"

// Device states as printed by `adb devices`.
const (
	StateDevice        = "device"
	StateOffline       = "offline"
	StateUnauthorized  = "unauthorized"
	StateUnknown       = "unknown"
	// StateNoPermissions is printed as two words when udev rules are missing.
	StateNoPermissions = "no permissions"
)

// Entry is one row of the device list.
type Entry struct {
	Serial string
	State  string
}

// Ready reports whether the device is authorized and accepts commands.
func (e Entry) Ready() bool {
	return e.State == StateDevice
}

// Bridge is the set of adb operations the cleanup needs. Runner is the
// subprocess implementation; providers/adb offers one backed by an adb server.
type Bridge interface {
	// Check fails with *UnavailableError when adb cannot be invoked.
	Check(ctx context.Context) error
	// Devices queries the connected devices once.
	Devices(ctx context.Context) ([]Entry, error)
	// Run executes args scoped to serial; failures are *ExecutionError.
	Run(ctx context.Context, serial string, args ...string) error
	// Shell runs a device shell command and returns its trimmed stdout.
	Shell(ctx context.Context, serial string, args ...string) (string, error)
}
