package tracer

import (
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// Tick runs one poll cycle: transmit if due, receive, filter and fold,
// account activity, and return a fresh snapshot. Read and write failures
// are recorded for display and absorbed; the session stays Connected.
// Calling Tick while Disconnected just returns the current snapshot.
func (s *Session) Tick(now time.Time) Snapshot {
	if s.state != Connected {
		return s.Snapshot()
	}
	s.lastTick = now

	// 1. Transmit step.
	sent := 0
	if s.tx.Enabled && s.tx.Validate() == nil && s.transmitDue(now) {
		f := can.New(s.tx.ID, s.tx.Data, s.tx.ID > can.SFFMask)
		if err := s.ch.WritePackets([]can.Frame{f}, s.writeTimeout); err != nil {
			s.lastWriteErr = err.Error()
			metrics.IncError(metrics.ErrChannelWrite)
			s.logger.Warn("frame_write_error", "id", f.ID, "error", err)
		} else {
			s.lastWriteErr = ""
			s.lastTx = now
			sent = 1
			s.totalTx++
			metrics.IncTx()
			// Sent frames join the trace unfiltered.
			s.table[f.ID] = f
		}
	}

	// 2. Receive step.
	frames, err := s.ch.ReadPackets(s.readMax, s.readTimeout)
	if err != nil {
		s.lastReadErr = err.Error()
		metrics.IncError(metrics.ErrChannelRead)
		s.logger.Warn("frame_read_error", "error", err)
		frames = nil
	} else {
		s.lastReadErr = ""
	}

	// 3. Filter & fold.
	passed := 0
	for _, f := range frames {
		if s.filter.Pass(f) {
			s.table[f.ID] = f
			passed++
		}
	}
	s.totalRx += uint64(len(frames))
	s.totalPassed += uint64(passed)
	metrics.AddRx(len(frames))
	metrics.AddRxPassed(passed)

	// 4. Activity accounting: raw channel load plus our own transmission.
	count := uint32(len(frames) + sent)
	s.activity.Push(count)
	metrics.IncTick()
	metrics.SetTableSize(len(s.table))
	metrics.SetTickActivity(int(count), int(s.activity.Peak()))

	// 5. Snapshot for consumers.
	return s.Snapshot()
}

// transmitDue applies the interval gate. A zero lastTx means nothing was
// sent this connection yet, so the first enabled tick fires immediately.
func (s *Session) transmitDue(now time.Time) bool {
	if s.lastTx.IsZero() {
		return true
	}
	return now.Sub(s.lastTx) >= s.tx.Interval
}
