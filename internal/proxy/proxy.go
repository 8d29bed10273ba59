package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/tcplb/internal/metrics"
	"github.com/angeloszaimis/tcplb/internal/routing"
)

// peekSize bounds the initial read used to derive a routing path. Request
// lines spanning more than one chunk are not supported.
const peekSize = 1024

// Server accepts raw TCP connections and bridges each to exactly one backend
// chosen by the router. Beyond the initial peek it is payload-agnostic.
type Server struct {
	listener  net.Listener
	router    *routing.Router
	collector *metrics.Collector
	logger    *slog.Logger
}

// New binds the listening socket. A nil collector disables metrics emission.
func New(address string, router *routing.Router, collector *metrics.Collector, logger *slog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	return &Server{
		listener:  listener,
		router:    router,
		collector: collector,
		logger:    logger,
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until the context is cancelled, spawning one
// goroutine per connection. Per-connection failures never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	s.logger.Info("Load balancer listening",
		slog.String("address", s.listener.Addr().String()))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	client := conn.RemoteAddr().String()
	s.collector.Emit(metrics.Event{
		Type:      metrics.EventConnectionAccepted,
		Timestamp: time.Now(),
	})

	// A read may return data alongside an error; partial data is used as-is
	// and a persistent failure surfaces through the relay. A clean EOF with
	// no bytes is an empty initial chunk: it still routes (default path "/")
	// so the client can read the backend's side of the exchange.
	buf := make([]byte, peekSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		s.logger.Warn("Failed to read from client",
			slog.String("client", client),
			slog.Any("err", err))
		return
	}
	initial := buf[:n]
	path := requestPath(initial)

	address, err := s.router.Route(path)
	if err != nil {
		s.logger.Warn("No healthy targets available",
			slog.String("client", client),
			slog.String("path", path))

		s.collector.Emit(metrics.Event{
			Type:      metrics.EventConnectionRejected,
			Timestamp: time.Now(),
		})

		if err := writeUnavailable(conn); err != nil {
			s.logger.Debug("Failed to write unavailable response",
				slog.String("client", client),
				slog.Any("err", err))
		}
		return
	}

	s.logger.Info("Forwarding connection",
		slog.String("client", client),
		slog.String("target", address),
		slog.String("path", path))

	s.collector.Emit(metrics.Event{
		Type:      metrics.EventTargetSelected,
		Timestamp: time.Now(),
		Target:    address,
	})

	start := time.Now()
	moved, err := s.relay(conn, address, initial)
	if err != nil {
		s.logger.Warn("Connection ended with error",
			slog.String("client", client),
			slog.String("target", address),
			slog.Any("err", err))
	}

	s.collector.Emit(metrics.Event{
		Type:      metrics.EventSessionCompleted,
		Timestamp: time.Now(),
		Target:    address,
		Duration:  time.Since(start),
		Bytes:     moved,
	})
}

// relay bridges the client to the chosen backend. The already-consumed peek
// bytes go out first, in order, so the backend sees the stream exactly as the
// client sent it. Both directions are then copied concurrently; a direction
// reaching end-of-stream half-closes its peer so the other direction can
// drain, while an I/O error tears down both halves immediately.
func (s *Server) relay(client net.Conn, address string, initial []byte) (int64, error) {
	upstream, err := net.Dial("tcp", address)
	if err != nil {
		return 0, fmt.Errorf("connect %s: %w", address, err)
	}
	defer upstream.Close()

	if _, err := upstream.Write(initial); err != nil {
		return 0, fmt.Errorf("replay initial chunk: %w", err)
	}

	var moved atomic.Int64
	moved.Add(int64(len(initial)))

	done := make(chan error, 2)
	splice := func(dst, src net.Conn) {
		n, err := io.Copy(dst, src)
		moved.Add(n)
		if tcp, ok := dst.(*net.TCPConn); ok {
			tcp.CloseWrite()
		}
		done <- err
	}
	go splice(upstream, client)
	go splice(client, upstream)

	first := <-done
	if first != nil && !errors.Is(first, net.ErrClosed) {
		// abort: closing both sockets unblocks the other copy
		upstream.Close()
		client.Close()
		<-done
		return moved.Load(), first
	}

	second := <-done
	if second != nil && !errors.Is(second, net.ErrClosed) {
		return moved.Load(), second
	}
	return moved.Load(), nil
}

// requestPath extracts a routing path from the first chunk of client data.
// Best effort only: the second whitespace token of the first line, or "/"
// when the chunk is empty or not HTTP-shaped.
func requestPath(initial []byte) string {
	line := initial
	if i := bytes.IndexByte(initial, '\n'); i >= 0 {
		line = initial[:i]
	}

	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return "/"
	}

	return fields[1]
}
