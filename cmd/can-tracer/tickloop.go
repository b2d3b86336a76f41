package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/openvehicletools/can-tracer/internal/hub"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

// runTickLoop owns the session: after Connect it is the only goroutine
// touching it. Every pass runs one poll cycle and publishes the snapshot;
// Disconnect runs on this same goroutine once the context ends.
func runTickLoop(ctx context.Context, sess *tracer.Session, h *hub.Hub, every time.Duration, l *slog.Logger) {
	defer sess.Disconnect()
	l.Info("tick_loop_start", "interval", every.String())
	defer l.Info("tick_loop_end")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			h.Publish(sess.Tick(now))
		}
	}
}
