// Package proxy implements the TCP data plane: an accept loop spawning one
// goroutine per connection, a bounded single-chunk peek to derive a routing
// path, and a bidirectional byte relay to the chosen backend. HTTP parsing is
// a best-effort routing signal only; the relay itself carries arbitrary bytes
// and relies on socket flow control for backpressure.
package proxy
