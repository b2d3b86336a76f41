package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors
var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_rx_frames_total",
		Help: "Total CAN frames read from the channel.",
	})
	FramesRxPassed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_rx_frames_passed_total",
		Help: "Total inbound CAN frames accepted by the mask/filter pair.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_tx_frames_total",
		Help: "Total CAN frames transmitted on the channel.",
	})
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_ticks_total",
		Help: "Total poll cycles executed while connected.",
	})
	Connects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_connects_total",
		Help: "Total successful channel connects.",
	})
	Disconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_disconnects_total",
		Help: "Total session disconnects.",
	})
	FrameTableEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_frame_table_entries",
		Help: "Distinct CAN identifiers currently held in the frame table.",
	})
	LastTickFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_last_tick_frames",
		Help: "Frames counted during the most recent poll cycle.",
	})
	PeakTickFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_peak_tick_frames",
		Help: "Highest per-tick frame count observed this session.",
	})
	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_session_connected",
		Help: "1 while a CAN channel is open, 0 otherwise.",
	})
	DriversListed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_drivers_listed",
		Help: "Diagnostic drivers found by the last store enumeration.",
	})
	HubConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracer_hub_consumers",
		Help: "Snapshot consumers currently attached to the hub.",
	})
	HubDroppedSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_hub_dropped_snapshots_total",
		Help: "Snapshots dropped because a consumer queue was full.",
	})
	HubKickedConsumers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracer_hub_kicked_consumers_total",
		Help: "Consumers detached for falling behind under the kick policy.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (bad length, bad hex, truncated line).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrChannelRead  = "channel_read"
	ErrChannelWrite = "channel_write"
	ErrConnect      = "connect"
	ErrDriverLoad   = "driver_load"
	ErrRegistry     = "registry"
	ErrMonitorHTTP  = "monitor_http"
)

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localRx        uint64
	localRxPassed  uint64
	localTx        uint64
	localTicks     uint64
	localConnects  uint64
	localDiscons   uint64
	localErrors    uint64
	localMalformed uint64
	localTable     uint64
	localLastTick  uint64
	localPeak      uint64
	localHubDrop   uint64
	localHubKick   uint64
	localHubCons   uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	Rx          uint64
	RxPassed    uint64
	Tx          uint64
	Ticks       uint64
	Connects    uint64
	Disconnects uint64
	Errors      uint64 // sum across error labels
	Malformed   uint64
	TableSize   uint64
	LastTick    uint64
	PeakTick    uint64
	HubDrops    uint64
	HubKicks    uint64
	HubClients  uint64
}

func Snap() Snapshot {
	return Snapshot{
		Rx:          atomic.LoadUint64(&localRx),
		RxPassed:    atomic.LoadUint64(&localRxPassed),
		Tx:          atomic.LoadUint64(&localTx),
		Ticks:       atomic.LoadUint64(&localTicks),
		Connects:    atomic.LoadUint64(&localConnects),
		Disconnects: atomic.LoadUint64(&localDiscons),
		Errors:      atomic.LoadUint64(&localErrors),
		Malformed:   atomic.LoadUint64(&localMalformed),
		TableSize:   atomic.LoadUint64(&localTable),
		LastTick:    atomic.LoadUint64(&localLastTick),
		PeakTick:    atomic.LoadUint64(&localPeak),
		HubDrops:    atomic.LoadUint64(&localHubDrop),
		HubKicks:    atomic.LoadUint64(&localHubKick),
		HubClients:  atomic.LoadUint64(&localHubCons),
	}
}

// Wrapper helpers to keep call sites simple.
func AddRx(n int) {
	FramesRx.Add(float64(n))
	atomic.AddUint64(&localRx, uint64(n))
}

func AddRxPassed(n int) {
	FramesRxPassed.Add(float64(n))
	atomic.AddUint64(&localRxPassed, uint64(n))
}

func IncTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localTx, 1)
}

func IncTick() {
	Ticks.Inc()
	atomic.AddUint64(&localTicks, 1)
}

func IncConnect() {
	Connects.Inc()
	SessionConnected.Set(1)
	atomic.AddUint64(&localConnects, 1)
}

func IncDisconnect() {
	Disconnects.Inc()
	SessionConnected.Set(0)
	atomic.AddUint64(&localDiscons, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncHubDrop() {
	HubDroppedSnapshots.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncHubKick() {
	HubKickedConsumers.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func SetHubConsumers(n int) {
	HubConsumers.Set(float64(n))
	atomic.StoreUint64(&localHubCons, uint64(n))
}

// SetTableSize records the frame table population after a tick.
func SetTableSize(n int) {
	FrameTableEntries.Set(float64(n))
	atomic.StoreUint64(&localTable, uint64(n))
}

// SetTickActivity records the latest and peak per-tick frame counts.
func SetTickActivity(last, peak int) {
	LastTickFrames.Set(float64(last))
	PeakTickFrames.Set(float64(peak))
	atomic.StoreUint64(&localLastTick, uint64(last))
	atomic.StoreUint64(&localPeak, uint64(peak))
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register the error label series so the first error does not pay
	// a registration latency.
	for _, lbl := range []string{
		ErrChannelRead, ErrChannelWrite, ErrConnect,
		ErrDriverLoad, ErrRegistry, ErrMonitorHTTP,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers the function consulted by monitor /ready.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so the endpoint doesn't flap
		return true
	}
	return fn()
}
