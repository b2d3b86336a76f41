package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openvehicletools/can-tracer/internal/metrics"
)

func startStatusLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"ticks", snap.Ticks,
					"rx", snap.Rx,
					"rx_passed", snap.RxPassed,
					"tx", snap.Tx,
					"table_size", snap.TableSize,
					"last_tick", snap.LastTick,
					"peak_tick", snap.PeakTick,
					"malformed", snap.Malformed,
					"hub_drops", snap.HubDrops,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
