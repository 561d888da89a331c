package device

import (
	"context"
	"strings"

	"github.com/httprunner/adbcleanup/internal/bridge"
)

// Sheller runs a shell command on a device and returns its output.
type Sheller interface {
	Shell(ctx context.Context, serial string, args ...string) (string, error)
}

// Describe collects model, OS version and root status where possible. It is
// best-effort: failed probes leave the field empty. Devices that are not
// ready are not probed.
func Describe(ctx context.Context, sh Sheller, entry bridge.Entry) Meta {
	meta := Meta{Serial: entry.Serial, State: entry.State}
	if !entry.Ready() || sh == nil {
		return meta
	}
	getprop := func(key string) string {
		output, err := sh.Shell(ctx, entry.Serial, "getprop", key)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(output)
	}
	meta.Model = getprop("ro.product.model")
	meta.OSVersion = getprop("ro.build.version.release")
	meta.SDK = getprop("ro.build.version.sdk")

	if output, err := sh.Shell(ctx, entry.Serial, "su", "-c", "id"); err == nil && strings.Contains(output, "uid=0") {
		meta.IsRoot = "true"
		return meta
	}
	if output, err := sh.Shell(ctx, entry.Serial, "which", "su"); err == nil && strings.TrimSpace(output) != "" {
		meta.IsRoot = "true"
		return meta
	}
	meta.IsRoot = "false"
	return meta
}
