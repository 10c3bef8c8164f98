/*
Package vitals is an embeddable process-health monitoring SDK.

Host applications register pluggable monitors (heap, goroutines, file
descriptors, event-loop latency, retained-object leaks, or their own) with a
Manager. The Manager initializes each monitor kind at most once, watches the
application's foreground/background lifecycle, and flushes one aggregated
JSON stats event per activation through a pluggable telemetry sink.

Architecture Overview:

 1. Contracts layer - Monitor, MonitorConfig, TelemetrySink, LifecycleSource,
    Application and Logger interfaces (this package)
 2. Manager layer - the kind-keyed registry with at-most-once initialization
    and the one-shot lifecycle flush
 3. Collaborator packages - monitors/ (built-in monitors), sinks/ (telemetry
    transports), zaplog/ (zap-backed Logger)

Thread Safety:

All Manager methods are safe for concurrent use. Registration is serialized
by a single mutex so that for any kind exactly one monitor is ever installed
and initialized, regardless of how many goroutines race on registration. The
flush gate is an atomic two-state machine, so concurrent lifecycle deliveries
cannot double-flush.

Usage:

Construct the shared configuration once, then a Manager from it:

	app := vitals.NewAppState("checkout-api")
	cc, err := vitals.NewCommonConfig(app,
		vitals.WithVersion("1.4.2"),
		vitals.WithSink(sink),
	)
	if err != nil {
		log.Fatal(err)
	}
	mgr, err := vitals.New(cc)
	if err != nil {
		log.Fatal(err)
	}

	_ = mgr.AddMonitorConfig(heapCfg)
	_ = mgr.AddMonitorConfig(goroutineCfg)
	_ = mgr.OnApplicationCreate()

	app.Dispatch(vitals.AppCreate)
	app.Dispatch(vitals.AppActive) // first activation flushes the aggregate

Design Principles:

 1. Explicit wiring - no package-level registry; the Manager is constructed
    at startup and handed to collaborators
 2. Fail-safe emission - sink and marshal failures never crash the host
 3. Zero-config collaborators - logger and sink default to no-ops
*/
package vitals
