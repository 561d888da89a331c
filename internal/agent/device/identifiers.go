package device

import (
	"context"
	"strings"

	"github.com/httprunner/adbcleanup/internal/bridge"
)

// Identifiers is a read-only snapshot of the values the cleanup is meant to
// reset. Fields the device does not expose stay empty.
type Identifiers struct {
	AndroidID    string
	SerialNo     string
	IMEI         string
	WiFiMAC      string
	BluetoothMAC string
}

// Identify reads the device identifiers without changing anything on the
// device. Every lookup is best-effort.
func Identify(ctx context.Context, sh Sheller, entry bridge.Entry) Identifiers {
	var ids Identifiers
	if !entry.Ready() || sh == nil {
		return ids
	}
	run := func(args ...string) string {
		output, err := sh.Shell(ctx, entry.Serial, args...)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(output)
	}

	ids.AndroidID = run("settings", "get", "secure", "android_id")
	if ids.AndroidID == "null" {
		ids.AndroidID = ""
	}
	ids.SerialNo = run("getprop", "ro.serialno")

	ids.IMEI = parseIMEI(run("dumpsys", "telephony.registry", "|", "grep", "mImei"))
	if ids.IMEI == "" {
		ids.IMEI = run("getprop", "gsm.imei")
	}

	if iface := run("getprop", "wifi.interface"); iface != "" {
		ids.WiFiMAC = strings.ToUpper(run("cat", "/sys/class/net/"+iface+"/address"))
	}

	ids.BluetoothMAC = run("getprop", "bluetooth.bdaddr")
	if ids.BluetoothMAC == "" {
		ids.BluetoothMAC = run("getprop", "bluetooth.address")
	}
	ids.BluetoothMAC = strings.ToUpper(ids.BluetoothMAC)
	return ids
}

// parseIMEI takes the first non-empty mImei=<value> from telephony.registry.
func parseIMEI(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "mImei") {
			continue
		}
		idx := strings.LastIndex(line, "=")
		if idx < 0 {
			continue
		}
		if imei := strings.TrimSpace(line[idx+1:]); imei != "" && imei != "null" {
			return imei
		}
	}
	return ""
}
