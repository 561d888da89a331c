package cleanup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/httprunner/adbcleanup/internal/bridge"
	"github.com/rs/zerolog"
)

type call struct {
	serial string
	args   []string
}

type stubCommander struct {
	checkErr error
	failOn   map[string]bool // keyed by the last argument of a command
	calls    []call
	checks   int
}

func (s *stubCommander) Check(ctx context.Context) error {
	s.checks++
	return s.checkErr
}

func (s *stubCommander) Run(ctx context.Context, serial string, args ...string) error {
	s.calls = append(s.calls, call{serial: serial, args: append([]string(nil), args...)})
	if s.failOn[args[len(args)-1]] {
		return &bridge.ExecutionError{Serial: serial, Args: args, ExitCode: 1, Stderr: "Failed"}
	}
	return nil
}

type stubWaiter struct {
	serials []string
	err     error
	calls   int
	retries int
	delay   time.Duration
}

func (s *stubWaiter) WaitForDevices(ctx context.Context, retries int, delay time.Duration) ([]string, error) {
	s.calls++
	s.retries = retries
	s.delay = delay
	return s.serials, s.err
}

func newTestOrchestrator(t *testing.T, cfg Config, commander *stubCommander, waiter *stubWaiter) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)
	cfg.Logger = &logger
	o, err := New(cfg, commander, waiter)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o, buf
}

func expectedCommands(targets Targets) [][]string {
	var out [][]string
	for _, name := range targets.Settings() {
		out = append(out, SettingCommand(name))
	}
	for _, path := range targets.Files() {
		out = append(out, RemoveCommand(path))
	}
	for _, pkg := range targets.Packages() {
		out = append(out, ClearCommand(pkg))
	}
	return out
}

func assertBatch(t *testing.T, calls []call, serial string, want [][]string) {
	t.Helper()
	if len(calls) != len(want) {
		t.Fatalf("expected %d commands for %s, got %d", len(want), serial, len(calls))
	}
	for i, c := range calls {
		if c.serial != serial {
			t.Fatalf("command %d scoped to %q, want %q", i, c.serial, serial)
		}
		if strings.Join(c.args, " ") != strings.Join(want[i], " ") {
			t.Fatalf("command %d = %v, want %v", i, c.args, want[i])
		}
	}
}

func TestRunSingleDeviceIssuesEveryCommandInOrder(t *testing.T) {
	commander := &stubCommander{}
	waiter := &stubWaiter{serials: []string{"ABC123"}}
	o, _ := newTestOrchestrator(t, Config{}, commander, waiter)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(commander.calls) != 23 {
		t.Fatalf("expected 3+8+12=23 commands, got %d", len(commander.calls))
	}
	assertBatch(t, commander.calls, "ABC123", expectedCommands(DefaultTargets()))
}

func TestRunUsesDiscoveryDefaults(t *testing.T) {
	waiter := &stubWaiter{serials: []string{"ABC123"}}
	o, _ := newTestOrchestrator(t, Config{RetryDelay: -1}, &stubCommander{}, waiter)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if waiter.retries != 5 || waiter.delay != 5*time.Second {
		t.Fatalf("unexpected discovery policy: retries=%d delay=%s", waiter.retries, waiter.delay)
	}
}

func TestRunTwoDevicesSequentially(t *testing.T) {
	commander := &stubCommander{}
	waiter := &stubWaiter{serials: []string{"DEV-A", "DEV-B"}}
	o, _ := newTestOrchestrator(t, Config{}, commander, waiter)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	perDevice := DefaultTargets().Count()
	if len(commander.calls) != 2*perDevice {
		t.Fatalf("expected %d commands, got %d", 2*perDevice, len(commander.calls))
	}
	want := expectedCommands(DefaultTargets())
	assertBatch(t, commander.calls[:perDevice], "DEV-A", want)
	assertBatch(t, commander.calls[perDevice:], "DEV-B", want)
}

func TestRunContinuesPastFailures(t *testing.T) {
	targets := NewTargets(
		[]string{"android_id", "advertising_id"},
		[]string{"/data/a", "/data/b"},
		[]string{"com.example.one", "com.example.two"},
	)
	commander := &stubCommander{failOn: map[string]bool{
		"android_id":      true,
		"com.example.two": true,
	}}
	commander.failOn[RemoveCommand("/data/a")[3]] = true
	waiter := &stubWaiter{serials: []string{"DEV-A", "DEV-B"}}
	o, logs := newTestOrchestrator(t, Config{Targets: targets}, commander, waiter)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("per-item failures must not fail the run: %v", err)
	}
	want := expectedCommands(targets)
	assertBatch(t, commander.calls[:6], "DEV-A", want)
	assertBatch(t, commander.calls[6:], "DEV-B", want)

	out := logs.String()
	if strings.Count(out, `"message":"command failed, continuing"`) != 6 {
		t.Fatalf("expected 6 failure warnings, got log:\n%s", out)
	}
	if !strings.Contains(out, `"device":"DEV-B"`) || !strings.Contains(out, `"item":"com.example.two"`) {
		t.Fatalf("warning should name device and item, got log:\n%s", out)
	}
}

func TestCleanDeviceReturnsFailureCount(t *testing.T) {
	commander := &stubCommander{failOn: map[string]bool{"com.android.vending": true, "android_id": true}}
	o, _ := newTestOrchestrator(t, Config{}, commander, &stubWaiter{})
	failed, err := o.CleanDevice(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("clean device failed: %v", err)
	}
	if failed != 2 {
		t.Fatalf("expected 2 failures, got %d", failed)
	}
	if len(commander.calls) != 23 {
		t.Fatalf("expected 23 commands, got %d", len(commander.calls))
	}
}

func TestRunBridgeUnavailable(t *testing.T) {
	commander := &stubCommander{checkErr: &bridge.UnavailableError{Err: errors.New("not found")}}
	waiter := &stubWaiter{serials: []string{"ABC123"}}
	o, _ := newTestOrchestrator(t, Config{}, commander, waiter)

	err := o.Run(context.Background())
	if !bridge.IsUnavailable(err) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if len(commander.calls) != 0 || waiter.calls != 0 {
		t.Fatalf("no discovery or commands expected, got %d commands %d discoveries", len(commander.calls), waiter.calls)
	}
}

func TestRunBridgeUnavailableLogsUnderlyingCause(t *testing.T) {
	cases := []struct {
		name string
		err  *bridge.UnavailableError
		want string
	}{
		{"missing executable", &bridge.UnavailableError{Err: errors.New("executable file not found in $PATH")}, "not found in PATH"},
		{"adb server down", &bridge.UnavailableError{Path: "server localhost:5037", Err: errors.New("connection refused")}, "server localhost:5037 is not usable: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, logs := newTestOrchestrator(t, Config{}, &stubCommander{checkErr: tc.err}, &stubWaiter{})
			if err := o.Run(context.Background()); !bridge.IsUnavailable(err) {
				t.Fatalf("expected UnavailableError, got %v", err)
			}
			if !strings.Contains(logs.String(), tc.want) {
				t.Fatalf("log should carry %q, got:\n%s", tc.want, logs.String())
			}
			if tc.err.Path != "" && strings.Contains(logs.String(), "PATH") {
				t.Fatalf("adb server failure must not blame PATH, got:\n%s", logs.String())
			}
		})
	}
}

func TestRunNoDevices(t *testing.T) {
	commander := &stubCommander{}
	waiter := &stubWaiter{err: &bridge.NoDeviceError{Attempts: 5}}
	o, _ := newTestOrchestrator(t, Config{}, commander, waiter)

	if err := o.Run(context.Background()); !bridge.IsNoDevice(err) {
		t.Fatalf("expected NoDeviceError, got %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("no commands expected, got %d", len(commander.calls))
	}
}

func TestRunDryRunIssuesNoCommands(t *testing.T) {
	commander := &stubCommander{}
	o, logs := newTestOrchestrator(t, Config{DryRun: true}, commander, &stubWaiter{serials: []string{"ABC123"}})
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("dry run must not execute commands, got %d", len(commander.calls))
	}
	if strings.Count(logs.String(), "dry run, command skipped") != 23 {
		t.Fatalf("expected 23 dry-run lines, got log:\n%s", logs.String())
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	commander := &stubCommander{}
	o, _ := newTestOrchestrator(t, Config{}, commander, &stubWaiter{serials: []string{"ABC123"}})
	if err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(commander.calls) != 0 {
		t.Fatalf("no commands expected after cancellation, got %d", len(commander.calls))
	}
}

func TestNewRejectsNilDependencies(t *testing.T) {
	if _, err := New(Config{}, nil, &stubWaiter{}); err == nil {
		t.Fatal("expected error for nil commander")
	}
	if _, err := New(Config{}, &stubCommander{}, nil); err == nil {
		t.Fatal("expected error for nil discovery")
	}
}
