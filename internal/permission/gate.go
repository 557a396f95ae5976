package permission

import (
	"context"
	"time"
)

type Status string

const (
	Granted     Status = "granted"
	Denied      Status = "denied"
	Prompt      Status = "prompt"
	Unsupported Status = "unsupported"
)

// DefaultRequestTimeout bounds the native consent prompt so a user who never
// answers cannot hang the caller.
const DefaultRequestTimeout = 8 * time.Second

// Platform is the device permission API. Status reflects the current grant
// without prompting; Request may show the native consent dialog and blocks
// until the user responds.
type Platform interface {
	Status(ctx context.Context) (Status, error)
	Request(ctx context.Context) (Status, error)
}

type Gate struct {
	platform Platform
	timeout  time.Duration
}

func NewGate(platform Platform, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Gate{platform: platform, timeout: timeout}
}

// QueryStatus never fails: a platform without a permission query capability
// reports Unsupported, and callers optimistically try the stream anyway.
func (g *Gate) QueryStatus(ctx context.Context) Status {
	if g.platform == nil {
		return Unsupported
	}
	status, err := g.platform.Status(ctx)
	if err != nil {
		return Unsupported
	}
	return status
}

// RequestAccess runs the consent flow and resolves to Granted or Denied. A
// prompt left unanswered past the timeout resolves as Denied.
func (g *Gate) RequestAccess(ctx context.Context) Status {
	if g.platform == nil {
		return Denied
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		status Status
		err    error
	}
	ch := make(chan answer, 1)
	go func() {
		status, err := g.platform.Request(ctx)
		ch <- answer{status, err}
	}()

	select {
	case <-ctx.Done():
		return Denied
	case a := <-ch:
		if a.err != nil || a.status != Granted {
			return Denied
		}
		return Granted
	}
}
