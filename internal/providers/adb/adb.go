package adb

import (
	"context"
	"strconv"
	"strings"

	"github.com/httprunner/adbcleanup/internal/bridge"
	"github.com/httprunner/httprunner/v5/pkg/gadb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// exitMarker prefixes the remote exit status appended to every shell command,
// since the adb server protocol only returns the command output.
const exitMarker = "__adbcleanup_exit="

// serverAddr is where gadb.NewClient connects.
const serverAddr = "server localhost:5037"

// Provider implements bridge.Bridge through a running adb server using gadb.
type Provider struct {
	client gadb.Client
	ready  bool
}

// New creates a Provider backed by the given gadb client.
func New(client gadb.Client) *Provider {
	return &Provider{client: client, ready: true}
}

// NewDefault creates a Provider that connects to the default adb server on
// first use.
func NewDefault() *Provider {
	return &Provider{}
}

func (p *Provider) ensureClient() (gadb.Client, error) {
	if p.ready {
		return p.client, nil
	}
	client, err := gadb.NewClient()
	if err != nil {
		return gadb.Client{}, err
	}
	p.client = client
	p.ready = true
	return client, nil
}

// Check makes sure the adb server answers a device query.
func (p *Provider) Check(ctx context.Context) error {
	if p == nil {
		return &bridge.UnavailableError{Err: errors.New("adb provider is nil")}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "check adb server")
	}
	client, err := p.ensureClient()
	if err != nil {
		return &bridge.UnavailableError{Path: serverAddr, Err: err}
	}
	if _, err := client.DeviceSerialList(); err != nil {
		return &bridge.UnavailableError{Path: serverAddr, Err: err}
	}
	return nil
}

// Devices returns every device known to the adb server with its state
// normalized to the names printed by `adb devices`.
func (p *Provider) Devices(ctx context.Context) ([]bridge.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "list adb devices")
	}
	client, err := p.ensureClient()
	if err != nil {
		return nil, &bridge.UnavailableError{Path: serverAddr, Err: err}
	}
	devs, err := client.DeviceList()
	if err != nil {
		return nil, &bridge.UnavailableError{Path: serverAddr, Err: errors.Wrap(err, "list adb devices")}
	}
	entries := make([]bridge.Entry, 0, len(devs))
	for _, dev := range devs {
		if dev == nil {
			continue
		}
		serial := strings.TrimSpace(dev.Serial())
		if serial == "" {
			continue
		}
		entries = append(entries, bridge.Entry{Serial: serial, State: normalizeState(dev.State())})
	}
	return entries, nil
}

// normalizeState maps gadb states onto the names `adb devices` prints.
func normalizeState(state gadb.DeviceState, err error) string {
	if err != nil {
		return bridge.StateUnknown
	}
	switch state {
	case gadb.StateOnline:
		return bridge.StateDevice
	case gadb.StateOffline, gadb.StateDisconnected:
		return bridge.StateOffline
	case gadb.StateUnauthorized:
		return bridge.StateUnauthorized
	case gadb.StateUnknown, "":
		return bridge.StateUnknown
	default:
		return strings.ToLower(string(state))
	}
}

// Run executes a `shell ...` command on the given device. Other adb
// subcommands have no server-side equivalent here.
func (p *Provider) Run(ctx context.Context, serial string, args ...string) error {
	if len(args) == 0 || args[0] != "shell" {
		return &bridge.ExecutionError{
			Serial:   serial,
			Args:     append([]string(nil), args...),
			ExitCode: -1,
			Err:      errors.New("gadb backend only supports shell commands"),
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "adb shell")
	}
	_, err := p.shell(serial, args)
	return err
}

// Shell runs a shell command on the given device and returns its output.
func (p *Provider) Shell(ctx context.Context, serial string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("adb provider: empty shell command")
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "adb shell")
	}
	return p.shell(serial, append([]string{"shell"}, args...))
}

func (p *Provider) shell(serial string, args []string) (string, error) {
	execErr := func(code int, stderr string, err error) *bridge.ExecutionError {
		return &bridge.ExecutionError{
			Serial:   serial,
			Args:     append([]string(nil), args...),
			ExitCode: code,
			Stderr:   stderr,
			Err:      err,
		}
	}
	dev, err := p.findDevice(serial)
	if err != nil {
		return "", execErr(-1, "", err)
	}
	raw := shellCommand(args)
	log.Debug().Str("device", serial).Str("command", raw).Msg("executing adb shell via server")
	output, err := dev.RunShellCommand(raw)
	if err != nil {
		return "", execErr(-1, "", err)
	}
	body, code := splitExitStatus(output)
	if code != 0 {
		return body, execErr(code, body, errors.Errorf("remote command exited with %d", code))
	}
	return body, nil
}

func (p *Provider) findDevice(serial string) (*gadb.Device, error) {
	client, err := p.ensureClient()
	if err != nil {
		return nil, errors.Wrap(err, "init adb client")
	}
	devs, err := client.DeviceList()
	if err != nil {
		return nil, errors.Wrap(err, "list adb devices")
	}
	target := strings.TrimSpace(serial)
	for _, d := range devs {
		if d != nil && strings.TrimSpace(d.Serial()) == target {
			return d, nil
		}
	}
	return nil, errors.Errorf("device %s not found", serial)
}

// shellCommand turns `shell <words...>` into the raw command sent to the
// server, followed by an echo of the exit status.
func shellCommand(args []string) string {
	words := args
	if len(words) > 0 && words[0] == "shell" {
		words = words[1:]
	}
	return strings.Join(words, " ") + "; echo " + exitMarker + "$?"
}

// splitExitStatus separates the command output from the trailing exit marker.
// A missing marker is treated as success.
func splitExitStatus(output string) (string, int) {
	idx := strings.LastIndex(output, exitMarker)
	if idx < 0 {
		return strings.TrimSpace(output), 0
	}
	body := strings.TrimSpace(output[:idx])
	code, err := strconv.Atoi(strings.TrimSpace(output[idx+len(exitMarker):]))
	if err != nil {
		return body, 0
	}
	return body, code
}
