/*
Package sinks provides TelemetrySink implementations for the vitals SDK.

Transports:

  - LogSink         - writes events to a vitals.Logger
  - RedisSink       - appends events to a capped Redis stream
  - OTelSink        - emits one OpenTelemetry span per event plus a counter
  - RemoteWriteSink - pushes numeric payload values to Prometheus remote write
  - WebSocketSink   - streams JSON envelopes over a WebSocket
  - WebhookSink     - POSTs JSON envelopes to an HTTP collector

Combinators:

  - Multi - fans one event out to several sinks concurrently
  - Dedup - suppresses consecutive identical events

Every sink honors the fire-and-forget contract: AddCustomStatEvent never
returns an error and never panics; transport failures are logged and the
event is dropped.
*/
package sinks
