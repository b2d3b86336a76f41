package tracer

import (
	"sort"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
)

// Snapshot is a deep copy of everything a consumer may render. Handing
// out copies keeps the live table and buffer single-owner.
type Snapshot struct {
	State  State
	Driver string
	Baud   uint32

	Mask   uint32
	Filter uint32

	// Entries holds the latest frame per ID that matches the current
	// filter, ID ascending.
	Entries []can.Frame

	// Activity is the filled prefix of per-tick counts, newest first.
	Activity []uint32
	MaxRate  uint32

	TotalRx     uint64
	TotalPassed uint64
	TotalTx     uint64

	TxEnabled bool
	Taken     time.Time

	ConnectError string
	ReadError    string
	WriteError   string
}

// Snapshot builds a copy of the current session state. The table is
// re-filtered on the way out so entries recorded under an older filter
// disappear from view as soon as the filter narrows.
func (s *Session) Snapshot() Snapshot {
	entries := make([]can.Frame, 0, len(s.table))
	for _, f := range s.table {
		if s.filter.Pass(f) {
			entries = append(entries, f)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return Snapshot{
		State:        s.state,
		Driver:       s.handle.Describe().Name,
		Baud:         s.baud,
		Mask:         s.filter.Mask,
		Filter:       s.filter.Filter,
		Entries:      entries,
		Activity:     s.activity.Counts(),
		MaxRate:      s.activity.MaxRate(),
		TotalRx:      s.totalRx,
		TotalPassed:  s.totalPassed,
		TotalTx:      s.totalTx,
		TxEnabled:    s.tx.Enabled,
		Taken:        s.lastTick,
		ConnectError: s.lastConnectErr,
		ReadError:    s.lastReadErr,
		WriteError:   s.lastWriteErr,
	}
}
