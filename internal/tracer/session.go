// Package tracer holds the live trace session: one CAN channel, the
// mask/filter state, the latest-frame-per-ID table, the rolling activity
// buffer and the periodic-transmit scheduler. A session is owned by
// exactly one goroutine; consumers only ever see Snapshot copies.
package tracer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/logging"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// State is the session lifecycle state.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// TxSpec is the operator-configured periodic transmit frame. Enabled is
// toggled separately from the rest so an invalid edit never silently
// disables a running transmission.
type TxSpec struct {
	ID       uint32
	Data     []byte
	Interval time.Duration
	Enabled  bool
}

// Validate rejects payloads outside 1..8 bytes and non-positive
// intervals before any write is attempted.
func (t TxSpec) Validate() error {
	if len(t.Data) == 0 || len(t.Data) > can.MaxDataLen {
		return fmt.Errorf("%w: got %d", ErrBadPayload, len(t.Data))
	}
	if t.Interval <= 0 {
		return ErrBadInterval
	}
	return nil
}

const (
	defaultReadMax      = 1000
	defaultReadTimeout  = 15 * time.Millisecond
	defaultWriteTimeout = 50 * time.Millisecond
)

// Session drives one CAN channel through poll ticks. Methods are not safe
// for concurrent use; see the package comment.
type Session struct {
	handle *hardware.Handle
	ch     hardware.Channel
	state  State
	baud   uint32

	filter   FilterSpec
	table    map[uint32]can.Frame
	activity ActivityBuffer
	tx       TxSpec
	lastTx   time.Time
	lastTick time.Time

	lastConnectErr string
	lastReadErr    string
	lastWriteErr   string

	totalRx     uint64
	totalPassed uint64
	totalTx     uint64

	readMax      int
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *slog.Logger
}

type Option func(*Session)

// WithReadBudget bounds one receive step: at most max frames, waiting at
// most timeout.
func WithReadBudget(max int, timeout time.Duration) Option {
	return func(s *Session) {
		if max > 0 {
			s.readMax = max
		}
		if timeout > 0 {
			s.readTimeout = timeout
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession wraps a hardware handle. The handle outlives any number of
// connect/disconnect cycles on the session.
func NewSession(h *hardware.Handle, opts ...Option) *Session {
	s := &Session{
		handle:       h,
		table:        make(map[uint32]can.Frame),
		readMax:      defaultReadMax,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		logger:       logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State { return s.state }

// Connect builds, configures and opens a channel at the given bitrate.
// On any failure the partially built channel is closed, the session stays
// Disconnected and the cause is kept for display.
func (s *Session) Connect(baud uint32) error {
	if s.state == Connected {
		return ErrConnected
	}
	name := s.handle.Describe().Name
	fail := func(stage string, err error) error {
		wrapped := fmt.Errorf("connect %s: %s: %w", name, stage, err)
		s.lastConnectErr = wrapped.Error()
		metrics.IncError(metrics.ErrConnect)
		s.logger.Warn("session_connect_failed", "driver", name, "stage", stage, "error", err)
		return wrapped
	}
	ch, err := s.handle.CreateCANChannel()
	if err != nil {
		return fail("create channel", err)
	}
	if err := ch.Configure(baud, false); err != nil {
		_ = ch.Close()
		return fail("configure", err)
	}
	if err := ch.Open(); err != nil {
		_ = ch.Close()
		return fail("open", err)
	}
	s.ch = ch
	s.state = Connected
	s.baud = baud
	s.lastConnectErr = ""
	s.reset()
	metrics.IncConnect()
	s.logger.Info("session_connected", "driver", name, "baud", baud)
	return nil
}

// Disconnect closes the channel and clears all per-session trace state.
// Safe to call in any state.
func (s *Session) Disconnect() {
	if s.ch != nil {
		if err := s.ch.Close(); err != nil {
			s.logger.Warn("channel_close_error", "error", err)
		}
		s.ch = nil
	}
	if s.state == Connected {
		metrics.IncDisconnect()
		s.logger.Info("session_disconnected")
	}
	s.state = Disconnected
	s.baud = 0
	s.reset()
}

// reset clears trace state at the Connected/Disconnected transitions.
// The last connect error survives so the operator can still read it.
func (s *Session) reset() {
	s.table = make(map[uint32]can.Frame)
	s.activity.Reset()
	s.lastTx = time.Time{}
	s.lastTick = time.Time{}
	s.lastReadErr = ""
	s.lastWriteErr = ""
	s.totalRx, s.totalPassed, s.totalTx = 0, 0, 0
	metrics.SetTableSize(0)
}

// SetMaskText parses operator input as hex; malformed or empty text keeps
// the previous mask.
func (s *Session) SetMaskText(text string) {
	if v, ok := ParseHex(text); ok {
		s.filter.Mask = v
	}
}

// SetFilterText parses operator input as hex; malformed or empty text
// keeps the previous filter.
func (s *Session) SetFilterText(text string) {
	if v, ok := ParseHex(text); ok {
		s.filter.Filter = v
	}
}

// SelectAddress narrows the view to exactly one CAN ID.
func (s *Session) SelectAddress(addr uint32) {
	s.filter = FilterSpec{Mask: 0xFFFFFFFF, Filter: addr}
}

// ResetFilter restores the accept-all filter.
func (s *Session) ResetFilter() { s.filter = FilterSpec{} }

func (s *Session) Filter() FilterSpec { return s.filter }

// SetTransmit replaces the transmit spec after validation; an invalid
// spec is rejected and the current one is kept.
func (s *Session) SetTransmit(spec TxSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	spec.Data = append([]byte(nil), spec.Data...)
	s.tx = spec
	return nil
}

// EnableTransmit toggles the transmit schedule without touching the spec.
func (s *Session) EnableTransmit(on bool) { s.tx.Enabled = on }
