package tracer

// ActivityCap is how many per-tick counts the activity buffer keeps.
const ActivityCap = 100

// baselineRate is the minimum display ceiling so a quiet bus still gets a
// sensibly scaled plot.
const baselineRate = 10

// ActivityBuffer holds per-tick frame counts, newest first. The zero
// value is ready to use.
type ActivityBuffer struct {
	counts [ActivityCap]uint32
	filled int
	peak   uint32
}

// Push records one tick's count at the front, evicting the oldest entry
// once the buffer is full.
func (b *ActivityBuffer) Push(n uint32) {
	copy(b.counts[1:], b.counts[:ActivityCap-1])
	b.counts[0] = n
	if b.filled < ActivityCap {
		b.filled++
	}
	if n > b.peak {
		b.peak = n
	}
}

// Counts returns a copy of the filled prefix, newest first.
func (b *ActivityBuffer) Counts() []uint32 {
	out := make([]uint32, b.filled)
	copy(out, b.counts[:b.filled])
	return out
}

func (b *ActivityBuffer) Filled() int { return b.filled }

// Peak is the largest count seen since the last Reset.
func (b *ActivityBuffer) Peak() uint32 { return b.peak }

// MaxRate is the display ceiling: the peak, never below the baseline.
// Non-decreasing between resets.
func (b *ActivityBuffer) MaxRate() uint32 {
	if b.peak < baselineRate {
		return baselineRate
	}
	return b.peak
}

func (b *ActivityBuffer) Reset() { *b = ActivityBuffer{} }
