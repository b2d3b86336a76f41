package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

type appConfig struct {
	driverName      string
	storePath       string
	listDrivers     bool
	baud            int
	lineBaud        int
	tickEvery       time.Duration
	mask            string
	filter          string
	txID            string
	txData          string
	txEvery         time.Duration
	txEnable        bool
	monitorAddr     string
	hubBuffer       int
	hubPolicy       string
	logFormat       string
	logLevel        string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	driverName := flag.String("driver", "", "Driver name from the store (empty selects the first one found)")
	storePath := flag.String("driver-store", "", "TOML driver store path merged with the Passthru registry")
	listDrivers := flag.Bool("list-drivers", false, "List configured drivers and exit")
	baud := flag.Int("baud", 500000, "CAN bitrate")
	lineBaud := flag.Int("line-baud", 115200, "Serial line rate for slcan adapters")
	tickEvery := flag.Duration("tick-interval", 50*time.Millisecond, "Poll cycle period")
	mask := flag.String("mask", "", "Startup address mask (hex)")
	filterV := flag.String("filter", "", "Startup address filter (hex)")
	txID := flag.String("tx-id", "", "Periodic transmit CAN ID (hex); empty disables transmit")
	txData := flag.String("tx-data", "", "Periodic transmit payload (hex bytes, 1..8)")
	txEvery := flag.Duration("tx-interval", time.Second, "Periodic transmit interval")
	txEnable := flag.Bool("tx-enable", false, "Start with periodic transmit enabled")
	monitorAddr := flag.String("monitor-addr", "", "Monitor HTTP listen address (e.g., :9323); empty disables")
	hubBuf := flag.Int("hub-buffer", 8, "Per-consumer snapshot buffer")
	hubPolicy := flag.String("hub-policy", "drop", "Backpressure policy: drop|kick")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement of the monitor")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default can-tracer-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.driverName = *driverName
	cfg.storePath = *storePath
	cfg.listDrivers = *listDrivers
	cfg.baud = *baud
	cfg.lineBaud = *lineBaud
	cfg.tickEvery = *tickEvery
	cfg.mask = *mask
	cfg.filter = *filterV
	cfg.txID = *txID
	cfg.txData = *txData
	cfg.txEvery = *txEvery
	cfg.txEnable = *txEnable
	cfg.monitorAddr = *monitorAddr
	cfg.hubBuffer = *hubBuf
	cfg.hubPolicy = *hubPolicy
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.baud <= 0 || !hardware.ValidBaud(uint32(c.baud)) {
		return fmt.Errorf("unsupported baud %d", c.baud)
	}
	if c.lineBaud <= 0 {
		return fmt.Errorf("line-baud must be > 0 (got %d)", c.lineBaud)
	}
	if c.tickEvery <= 0 {
		return errors.New("tick-interval must be > 0")
	}
	if c.mask != "" {
		if _, ok := tracer.ParseHex(c.mask); !ok {
			return fmt.Errorf("invalid mask %q", c.mask)
		}
	}
	if c.filter != "" {
		if _, ok := tracer.ParseHex(c.filter); !ok {
			return fmt.Errorf("invalid filter %q", c.filter)
		}
	}
	if _, _, err := c.txSpec(); err != nil {
		return err
	}
	return nil
}

// txSpec builds the startup transmit spec from the tx-* settings; ok is
// false when none were given.
func (c *appConfig) txSpec() (tracer.TxSpec, bool, error) {
	if c.txID == "" && c.txData == "" {
		return tracer.TxSpec{}, false, nil
	}
	id, ok := tracer.ParseHex(c.txID)
	if !ok {
		return tracer.TxSpec{}, false, fmt.Errorf("invalid tx-id %q", c.txID)
	}
	if id > can.EFFMask {
		return tracer.TxSpec{}, false, fmt.Errorf("tx-id %X out of range", id)
	}
	data, err := hex.DecodeString(c.txData)
	if err != nil {
		return tracer.TxSpec{}, false, fmt.Errorf("invalid tx-data %q: %v", c.txData, err)
	}
	spec := tracer.TxSpec{ID: id, Data: data, Interval: c.txEvery}
	if err := spec.Validate(); err != nil {
		return tracer.TxSpec{}, false, err
	}
	return spec, true, nil
}

// applyEnvOverrides maps CAN_TRACER_* environment variables to config fields
// unless a corresponding flag was explicitly set. Boolean & numeric parsing is lax:
// empty values ignored. Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["driver"]; !ok {
		if v, ok := get("CAN_TRACER_DRIVER"); ok && v != "" {
			c.driverName = v
		}
	}
	if _, ok := set["driver-store"]; !ok {
		if v, ok := get("CAN_TRACER_DRIVER_STORE"); ok && v != "" {
			c.storePath = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("CAN_TRACER_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["line-baud"]; !ok {
		if v, ok := get("CAN_TRACER_LINE_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.lineBaud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_LINE_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["tick-interval"]; !ok {
		if v, ok := get("CAN_TRACER_TICK_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.tickEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_TICK_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mask"]; !ok {
		if v, ok := get("CAN_TRACER_MASK"); ok && v != "" {
			c.mask = v
		}
	}
	if _, ok := set["filter"]; !ok {
		if v, ok := get("CAN_TRACER_FILTER"); ok && v != "" {
			c.filter = v
		}
	}
	if _, ok := set["tx-id"]; !ok {
		if v, ok := get("CAN_TRACER_TX_ID"); ok && v != "" {
			c.txID = v
		}
	}
	if _, ok := set["tx-data"]; !ok {
		if v, ok := get("CAN_TRACER_TX_DATA"); ok && v != "" {
			c.txData = v
		}
	}
	if _, ok := set["tx-interval"]; !ok {
		if v, ok := get("CAN_TRACER_TX_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.txEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_TX_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["tx-enable"]; !ok {
		if v, ok := get("CAN_TRACER_TX_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.txEnable = true
			case "0", "false", "no", "off":
				c.txEnable = false
			}
		}
	}
	if _, ok := set["monitor-addr"]; !ok {
		if v, ok := get("CAN_TRACER_MONITOR"); ok {
			c.monitorAddr = v
		}
	}
	if _, ok := set["hub-buffer"]; !ok {
		if v, ok := get("CAN_TRACER_HUB_BUFFER"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.hubBuffer = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_HUB_BUFFER: %w", err)
			}
		}
	}
	if _, ok := set["hub-policy"]; !ok {
		if v, ok := get("CAN_TRACER_HUB_POLICY"); ok && v != "" {
			c.hubPolicy = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("CAN_TRACER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("CAN_TRACER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("CAN_TRACER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TRACER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("CAN_TRACER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("CAN_TRACER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
