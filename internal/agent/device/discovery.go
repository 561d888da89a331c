package device

import (
	"context"
	"strings"
	"time"

	"github.com/httprunner/adbcleanup/internal/bridge"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Discovery 负责查询已连接且已授权的设备，并在没有设备时按固定间隔重试。
type Discovery struct {
	source Source
	allow  []string
	sleep  Sleeper
}

// NewDiscovery builds a Discovery over source. A non-empty allow list
// restricts results to those serials.
func NewDiscovery(source Source, allow []string) *Discovery {
	return &Discovery{
		source: source,
		allow:  NormalizeAllowlist(allow),
		sleep:  sleepContext,
	}
}

// WithSleeper replaces the delay implementation, mainly for tests.
func (d *Discovery) WithSleeper(sleep Sleeper) *Discovery {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

// ListDevices queries the bridge once and returns the serials of devices in
// the "device" state. An empty result is not an error.
func (d *Discovery) ListDevices(ctx context.Context) ([]string, error) {
	if d == nil || d.source == nil {
		return nil, errors.New("device discovery: source is nil")
	}
	entries, err := d.source.Devices(ctx)
	if err != nil {
		if bridge.IsUnavailable(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "list devices failed")
	}

	ready := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Ready() {
			log.Warn().Str("device", entry.Serial).Str("state", entry.State).Msg("skipping device that is not ready")
			continue
		}
		ready = append(ready, entry.Serial)
	}
	return d.filter(ready), nil
}

func (d *Discovery) filter(serials []string) []string {
	if len(d.allow) == 0 {
		return serials
	}
	present := make(map[string]struct{}, len(serials))
	for _, serial := range serials {
		present[serial] = struct{}{}
	}
	result := make([]string, 0, len(d.allow))
	for _, serial := range d.allow {
		if _, ok := present[serial]; ok {
			result = append(result, serial)
			continue
		}
		log.Warn().Str("device", serial).Msg("requested device is not connected")
	}
	return result
}

// WaitForDevices calls ListDevices up to retries times and returns the first
// non-empty result. It sleeps delay between unsuccessful attempts but not
// after the last one, then fails with *bridge.NoDeviceError.
func (d *Discovery) WaitForDevices(ctx context.Context, retries int, delay time.Duration) ([]string, error) {
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; attempt <= retries; attempt++ {
		log.Info().Int("attempt", attempt).Int("retries", retries).Msg("checking for connected devices")
		serials, err := d.ListDevices(ctx)
		if err != nil {
			return nil, err
		}
		if len(serials) > 0 {
			log.Info().Strs("devices", serials).Msg("connected devices found")
			return serials, nil
		}
		log.Warn().Int("attempt", attempt).Msg("no connected devices found")
		if attempt < retries {
			log.Info().Dur("delay", delay).Msg("retrying device discovery")
			if err := d.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, &bridge.NoDeviceError{Attempts: retries}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseAllowlist splits a comma/semicolon/whitespace separated serial list.
func ParseAllowlist(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t', ' ', '|':
			return true
		default:
			return false
		}
	})
	return NormalizeAllowlist(parts)
}

// NormalizeAllowlist trims serials and drops blanks and duplicates, keeping
// the first occurrence order.
func NormalizeAllowlist(serials []string) []string {
	if len(serials) == 0 {
		return nil
	}
	out := make([]string, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, serial := range serials {
		trimmed := strings.TrimSpace(serial)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
