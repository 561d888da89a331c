package device

import (
	"context"
	"time"

	"github.com/httprunner/adbcleanup/internal/bridge"
)

const (
	// DefaultRetries is the number of device queries before giving up.
	DefaultRetries = 5
	// DefaultRetryDelay is the pause between unsuccessful device queries.
	DefaultRetryDelay = 5 * time.Second
)

// Source returns every device entry the bridge currently reports.
type Source interface {
	Devices(ctx context.Context) ([]bridge.Entry, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Meta 保存设备的静态信息。
type Meta struct {
	Serial    string
	State     string
	Model     string
	OSVersion string
	SDK       string
	IsRoot    string
}
