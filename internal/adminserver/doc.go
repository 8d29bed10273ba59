// Package adminserver hosts the optional HTTP admin endpoint exposing
// metrics snapshots and a liveness probe, separate from the TCP data plane.
package adminserver
