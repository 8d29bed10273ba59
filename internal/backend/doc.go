// Package backend defines the immutable backend and path-route values built
// from configuration at startup, plus the lock-guarded health registry shared
// between the health monitor (writer) and the routing engine (reader).
package backend
