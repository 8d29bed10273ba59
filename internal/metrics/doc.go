// Package metrics provides real-time metrics collection for the balancer.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Accepted and rejected connection counts
//   - Target selection frequencies
//   - Relay session durations with percentile calculations (P50, P95, P99)
//   - Bytes moved per target
//   - Health status tracking
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the relay path. Events are sent via buffered channels with
// non-blocking semantics to prevent performance degradation under load.
package metrics
