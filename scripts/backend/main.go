// Backend is a simple test HTTP server used for load balancer testing.
// It answers every path with a line identifying the serving port and exposes
// a /health endpoint whose status can be flipped at runtime.
//
// Usage:
//
//	go run ./scripts/backend -port 8081
//	curl -X POST localhost:8081/toggle-health   # flip health on/off
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
)

func main() {
	port := flag.Int("port", 8081, "Listen port")
	startHealthy := flag.Bool("healthy", true, "Initial health status")
	flag.Parse()

	var healthy atomic.Bool
	healthy.Store(*startHealthy)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "OK")
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "NOT OK")
	})

	http.HandleFunc("/toggle-health", func(w http.ResponseWriter, r *http.Request) {
		now := !healthy.Load()
		healthy.Store(now)
		log.Printf("health toggled to %v", now)
		fmt.Fprintf(w, "healthy=%v\n", now)
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		w.Header().Set("X-Served-By", fmt.Sprintf("backend-%d", *port))
		fmt.Fprintf(w, "served by backend on port %d\n", *port)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("test backend listening on %s (healthy=%v)", addr, *startHealthy)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
