// Loadtest is a concurrent TCP load generator for balancer testing. Each
// request opens a fresh connection, writes an HTTP request line, reads the
// full response, and tallies which backend answered via the X-Served-By
// header emitted by scripts/backend.
//
// Usage:
//
//	go run ./scripts/loadtest -addr localhost:8080 -path / -concurrency 10 -requests 1000
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		addr        = flag.String("addr", "localhost:8080", "Balancer address")
		path        = flag.String("path", "/", "Request path")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
	)
	flag.Parse()

	jobs := make(chan int)
	var wg sync.WaitGroup

	var success, failure int32
	distribution := make(map[string]int)
	var latencies []time.Duration
	var mu sync.Mutex

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				served, err := doRequest(*addr, *path)
				elapsed := time.Since(start)

				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				atomic.AddInt32(&success, 1)

				mu.Lock()
				distribution[served]++
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}()
	}

	startAll := time.Now()
	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	total := time.Since(startAll)

	fmt.Printf("requests: %d  success: %d  failure: %d  elapsed: %v\n",
		*requests, success, failure, total)

	keys := make([]string, 0, len(distribution))
	for k := range distribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, distribution[k])
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("latency p50=%v p95=%v p99=%v\n",
			latencies[len(latencies)*50/100],
			latencies[len(latencies)*95/100],
			latencies[min(len(latencies)*99/100, len(latencies)-1)])
	}

	if failure > 0 {
		os.Exit(1)
	}
}

// doRequest opens one connection, sends a minimal HTTP/1.0 request so the
// backend closes after responding, and returns the X-Served-By value.
func doRequest(addr, path string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	request := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\n\r\n", path, addr)
	if _, err := conn.Write([]byte(request)); err != nil {
		return "", err
	}

	served := "unknown"
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "X-Served-By: "); ok {
			served = v
		}
	}

	return served, scanner.Err()
}
