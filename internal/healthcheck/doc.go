// Package healthcheck implements the background health monitor. Each tick
// fans out one HTTP GET per target with a per-probe timeout, joins all
// results, and commits the tick atomically to the shared registry. Health is
// a plain boolean: 2xx means healthy, anything else does not.
package healthcheck
