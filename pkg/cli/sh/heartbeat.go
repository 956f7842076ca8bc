package sh

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Heartbeat writes "tick N" lines to Out every Interval.
type Heartbeat struct {
	Interval time.Duration
	Out      io.Writer
}

// Name implements framework.Named.
func (h *Heartbeat) Name() string {
	return "heartbeat"
}

// Run implements framework.Runnable.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintf(h.Out, "tick %d\n", n)
		}
	}
}
