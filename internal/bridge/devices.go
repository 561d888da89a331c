package bridge

import (
	"bufio"
	"strings"
)

// knownStates lists the connection states adb prints in the second column.
// Anything else on a line means it is a client/server banner, not a device.
var knownStates = map[string]struct{}{
	StateDevice:        {},
	StateOffline:       {},
	StateUnauthorized:  {},
	StateUnknown:       {},
	StateNoPermissions: {},
	"authorizing":      {},
	"connecting":       {},
	"bootloader":       {},
	"recovery":         {},
	"rescue":           {},
	"sideload":         {},
	"host":             {},
	"detached":         {},
}

// ParseDevices parses the output of `adb devices` (and `adb devices -l`).
// The header line, daemon and version banners and blank lines are skipped.
func ParseDevices(output string) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		state := fields[1]
		if state == "no" && len(fields) > 2 && fields[2] == "permissions" {
			state = StateNoPermissions
		}
		if _, ok := knownStates[state]; !ok {
			continue
		}
		entries = append(entries, Entry{Serial: fields[0], State: state})
	}
	return entries
}
