package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/metrics"
	"github.com/openvehicletools/can-tracer/internal/monitor"
	"github.com/openvehicletools/can-tracer/internal/passthru"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

// Helper implementations live in dedicated files: version.go, config.go,
// logger.go, hub_init.go, status_logger.go, backends.go, tickloop.go, mdns.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("can-tracer %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	l.Info("build_info", "version", version, "commit", commit, "date", date)

	reg := hardware.NewRegistry(passthru.Store{}, hardware.FileStore{Path: cfg.storePath})
	if cfg.listDrivers {
		printDrivers(reg.List())
		return
	}
	desc, ok := reg.Find(cfg.driverName)
	if !ok {
		l.Error("driver_not_found", "driver", cfg.driverName)
		os.Exit(1)
	}
	drv, err := loadDriver(desc, cfg.lineBaud)
	if err != nil {
		metrics.IncError(metrics.ErrDriverLoad)
		l.Error("driver_load_error", "driver", desc.Name, "error", err)
		os.Exit(1)
	}
	handle := hardware.NewHandle(drv)

	h := initHub(cfg, l)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startStatusLogger(ctx, cfg.logMetricsEvery, l, &wg)

	if cfg.monitorAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		mon := monitor.NewServer(
			monitor.WithListenAddr(cfg.monitorAddr),
			monitor.WithHub(h),
			monitor.WithLogger(l),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mon.Serve(ctx); err != nil {
				l.Error("monitor_error", "error", err)
				cancel()
			}
		}()
		// Advertise once the monitor listener is ready.
		go func() {
			if !cfg.mdnsEnable {
				return
			}
			select {
			case <-mon.Ready():
			case <-ctx.Done():
				return
			}
			port := 0
			if _, p, err := net.SplitHostPort(mon.Addr()); err == nil {
				if pn, perr := strconv.Atoi(p); perr == nil {
					port = pn
				}
			}
			cleanupMDNS, err := startMDNS(ctx, cfg, desc.Name, port)
			if err != nil {
				l.Warn("mdns_start_failed", "error", err)
				return
			}
			l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", port)
			go func() { <-ctx.Done(); cleanupMDNS() }()
		}()
		metrics.SetReadinessFunc(func() bool {
			select {
			case <-mon.Ready():
			default:
				return false
			}
			return ctx.Err() == nil
		})
	} else {
		metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	}

	sess := tracer.NewSession(handle, tracer.WithLogger(l))
	sess.SetMaskText(cfg.mask)
	sess.SetFilterText(cfg.filter)
	if spec, configured, err := cfg.txSpec(); err == nil && configured {
		_ = sess.SetTransmit(spec) // validated by parseFlags
		sess.EnableTransmit(cfg.txEnable)
	}

	if err := sess.Connect(uint32(cfg.baud)); err != nil {
		l.Error("connect_failed", "error", err)
		cancel()
		wg.Wait()
		_ = handle.Close()
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTickLoop(ctx, sess, h, cfg.tickEvery, l)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigCh:
		l.Info("shutdown_signal", "signal", s.String())
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
	_ = handle.Close()
}

func printDrivers(list []hardware.Descriptor) {
	if len(list) == 0 {
		fmt.Println("no drivers found")
		return
	}
	for _, d := range list {
		fmt.Printf("%-28s %-10s %-20s %s\n", d.Name, d.API, d.Vendor, d.Library)
	}
}
