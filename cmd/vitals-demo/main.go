// Package main runs a small process that wires every part of the vitals SDK
// together: the built-in monitors, the lifecycle state machine, and whichever
// telemetry sinks the environment configures.
//
// Environment Variables:
//
//	VITALS_VERSION          - version label stamped on every event
//	VITALS_CHANNEL          - release channel label (e.g. stable, beta)
//	VITALS_REDIS_URL        - append events to a Redis stream (redis://host:port)
//	VITALS_OTEL_ENDPOINT    - emit OTLP spans to this collector (host:port)
//	VITALS_OTEL_STDOUT      - "true" traces to stdout instead of a collector
//	VITALS_WEBHOOK_URL      - POST event envelopes to this HTTP endpoint
//	VITALS_WS_URL           - stream event envelopes over this WebSocket URL
//	VITALS_REMOTE_WRITE_URL - push numeric stats to a Prometheus remote-write endpoint
//	VITALS_DNS_SERVER       - re-resolve the remote-write host via this DNS server
//
// Example Usage:
//
//	export VITALS_REDIS_URL="redis://localhost:6379"
//	export VITALS_OTEL_STDOUT="true"
//	go run ./cmd/vitals-demo -log-level debug -leak 8
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/probeworks/vitals"
	"github.com/probeworks/vitals/leakmaker"
	"github.com/probeworks/vitals/monitors"
	"github.com/probeworks/vitals/sinks"
	"github.com/probeworks/vitals/zaplog"
)

func main() {
	logLevel := flag.String("log-level", "info", "zap log level: debug, info, warn or error")
	leakCount := flag.Int("leak", 0, "number of 512KiB strings to deliberately retain")
	flag.Parse()

	// 1. Logging first so everything after it is observable.
	logger, err := zaplog.New(*logLevel)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 2. Build the sink chain from the environment.
	sink, closeSinks, err := buildSink(logger)
	if err != nil {
		log.Fatalf("sink setup failed: %v", err)
	}
	defer closeSinks()

	// 3. Lifecycle source and shared configuration.
	app := vitals.NewAppState("vitals-demo")
	cc, err := vitals.NewCommonConfig(app,
		vitals.WithLogger(logger),
		vitals.WithSink(sink),
	)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// 4. Register the built-in monitors while still in the background, so
	// nothing is emitted yet.
	mgr, err := vitals.New(cc)
	if err != nil {
		log.Fatalf("manager setup failed: %v", err)
	}
	for _, cfg := range []vitals.MonitorConfig{
		monitors.HeapConfig{AllocWatermark: 512 << 20},
		monitors.GoroutineConfig{Watermark: 2000},
		monitors.FDConfig{Watermark: 1024},
		monitors.EventLoopConfig{},
	} {
		if err := mgr.AddMonitorConfig(cfg); err != nil {
			log.Fatalf("monitor %s rejected: %v", cfg.Kind(), err)
		}
	}

	// 5. Start observing the lifecycle, then bring the app to the
	// foreground. The first activation flushes one aggregated snapshot.
	if err := mgr.OnApplicationCreate(); err != nil {
		log.Fatalf("lifecycle attach failed: %v", err)
	}
	app.Dispatch(vitals.AppCreate)
	app.Dispatch(vitals.AppActive)

	// 6. Registering while foreground emits that monitor's stats right away.
	if err := mgr.AddMonitorConfig(monitors.LeakConfig{MaxAge: time.Minute}); err != nil {
		log.Fatalf("monitor %s rejected: %v", monitors.KindLeak, err)
	}

	// 7. Optionally retain memory so the heap monitor has something to see.
	if *leakCount > 0 {
		maker := &leakmaker.StringMaker{}
		for i := 0; i < *leakCount; i++ {
			maker.StartLeak()
		}
		logger.Info("retained demo allocations", map[string]interface{}{
			"count": leakmaker.Retained(),
			"bytes": leakmaker.Retained() * leakmaker.DefaultLeakSize,
		})
	}

	logger.Info("vitals demo running, press Ctrl+C to stop", map[string]interface{}{
		"monitors": len(mgr.Kinds()),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	app.Dispatch(vitals.AppStop)
	if mon, ok := mgr.Monitor(monitors.KindEventLoop); ok {
		if el, ok := mon.(*monitors.EventLoopMonitor); ok {
			el.Stop()
		}
	}
	logger.Info("vitals demo stopped", nil)
}

// buildSink assembles the telemetry pipeline: every configured transport
// fans out behind a dedup filter, with a structured-log sink always present.
func buildSink(logger *zaplog.Logger) (vitals.TelemetrySink, func(), error) {
	targets := []vitals.TelemetrySink{sinks.NewLog(logger)}
	var closers []func()

	if redisURL := os.Getenv("VITALS_REDIS_URL"); redisURL != "" {
		rs, err := sinks.NewRedis(redisURL, sinks.WithRedisLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, rs)
		closers = append(closers, func() { _ = rs.Close() })
	}

	if endpoint, stdout := os.Getenv("VITALS_OTEL_ENDPOINT"), os.Getenv("VITALS_OTEL_STDOUT"); endpoint != "" || stdout == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ots, err := sinks.NewOTel(ctx, sinks.OTelConfig{
			ServiceName: "vitals-demo",
			Endpoint:    endpoint,
			Insecure:    true,
			Writer:      os.Stdout,
		})
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, ots)
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ots.Shutdown(ctx)
		})
	}

	if hookURL := os.Getenv("VITALS_WEBHOOK_URL"); hookURL != "" {
		ws, err := sinks.NewWebhook(hookURL, sinks.WithWebhookLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, ws)
		closers = append(closers, func() { _ = ws.Close() })
	}

	if wsURL := os.Getenv("VITALS_WS_URL"); wsURL != "" {
		ss, err := sinks.NewWebSocket(wsURL, sinks.WithWebSocketLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, ss)
		closers = append(closers, func() { _ = ss.Close() })
	}

	if rwURL := os.Getenv("VITALS_REMOTE_WRITE_URL"); rwURL != "" {
		opts := []sinks.RemoteWriteOption{sinks.WithRemoteWriteLogger(logger)}
		if dnsServer := os.Getenv("VITALS_DNS_SERVER"); dnsServer != "" {
			opts = append(opts, sinks.WithDNSRefresh(dnsServer, time.Minute))
		}
		rw, err := sinks.NewRemoteWrite(rwURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, rw)
		closers = append(closers, func() { _ = rw.Close() })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return sinks.Dedup(sinks.Multi(targets...)), cleanup, nil
}
