package proxy

import (
	"net"
)

// unavailableResponse is the one piece of traffic the balancer fabricates
// itself. The exact bytes, advertised length included, are part of the
// external contract and must not change.
const unavailableResponse = "HTTP/1.1 503 Service Unavailable\r\nContent-Length: 20\r\n\r\nService Unavailable"

// writeUnavailable sends the synthesized 503 and performs an orderly
// write-side shutdown so the client reads the full response before the close.
func writeUnavailable(conn net.Conn) error {
	if _, err := conn.Write([]byte(unavailableResponse)); err != nil {
		return err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		return tcp.CloseWrite()
	}

	return nil
}
