/*
Package monitors ships the built-in monitor suite for the vitals SDK.

Each monitor comes as a pair: a Config value implementing
vitals.MonitorConfig (register it with Manager.AddMonitorConfig) and the
Monitor implementation it constructs. Kinds:

  - heap      - Go heap and RSS statistics, shared process-wide instance
  - goroutine - goroutine count with an optional watermark
  - fd        - open file descriptor count (Linux /proc based)
  - eventloop - scheduler latency sampled by ticker drift
  - leak      - finalizer-based retained-object watcher

All monitors keep LogParams side-effect-free: snapshots read counters that
background samplers or runtime introspection maintain.
*/
package monitors
