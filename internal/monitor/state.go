package monitor

import (
	"fmt"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

// State is the JSON shape served at /api/state and streamed line-wise at
// /api/stream: one complete view of the trace, ready to render.
type State struct {
	State        string   `json:"state"`
	Driver       string   `json:"driver"`
	Baud         uint32   `json:"baud"`
	Mask         string   `json:"mask"`
	Filter       string   `json:"filter"`
	Entries      []Entry  `json:"entries"`
	Activity     []uint32 `json:"activity"`
	MaxRate      uint32   `json:"max_rate"`
	TotalRx      uint64   `json:"total_rx"`
	TotalPassed  uint64   `json:"total_passed"`
	TotalTx      uint64   `json:"total_tx"`
	TxEnabled    bool     `json:"tx_enabled"`
	Taken        string   `json:"taken,omitempty"`
	ConnectError string   `json:"connect_error,omitempty"`
	ReadError    string   `json:"read_error,omitempty"`
	WriteError   string   `json:"write_error,omitempty"`
}

// Entry is one frame table row.
type Entry struct {
	ID       string `json:"id"`
	Extended bool   `json:"extended"`
	Len      int    `json:"len"`
	Data     string `json:"data"`
}

// StateFrom flattens a snapshot into the wire shape. Identifiers and
// payloads go out as uppercase hex, the way operators read them.
func StateFrom(snap tracer.Snapshot) State {
	st := State{
		State:        snap.State.String(),
		Driver:       snap.Driver,
		Baud:         snap.Baud,
		Mask:         fmt.Sprintf("%08X", snap.Mask),
		Filter:       fmt.Sprintf("%08X", snap.Filter),
		Entries:      make([]Entry, 0, len(snap.Entries)),
		Activity:     snap.Activity,
		MaxRate:      snap.MaxRate,
		TotalRx:      snap.TotalRx,
		TotalPassed:  snap.TotalPassed,
		TotalTx:      snap.TotalTx,
		TxEnabled:    snap.TxEnabled,
		ConnectError: snap.ConnectError,
		ReadError:    snap.ReadError,
		WriteError:   snap.WriteError,
	}
	if !snap.Taken.IsZero() {
		st.Taken = snap.Taken.Format(time.RFC3339Nano)
	}
	if st.Activity == nil {
		st.Activity = []uint32{}
	}
	for _, f := range snap.Entries {
		st.Entries = append(st.Entries, Entry{
			ID:       formatID(f),
			Extended: f.Extended,
			Len:      int(f.Len),
			Data:     fmt.Sprintf("%X", f.Payload()),
		})
	}
	return st
}

// formatID uses the same digit widths as the SLCAN line tokens: three for
// standard identifiers, eight for extended ones.
func formatID(f can.Frame) string {
	if f.Extended {
		return fmt.Sprintf("%08X", f.ID)
	}
	return fmt.Sprintf("%03X", f.ID)
}
