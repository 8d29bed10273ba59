package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex        sync.RWMutex
	accepted     int64
	rejected     int64
	selections   map[string]int64
	sessions     map[string]int64
	bytesMoved   map[string]int64
	durations    map[string][]time.Duration
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	AcceptedConnections int64                    `json:"accepted_connections"`
	RejectedConnections int64                    `json:"rejected_connections"`
	Uptime              time.Duration            `json:"uptime"`
	Targets             map[string]TargetMetrics `json:"targets"`
}

type TargetMetrics struct {
	Selections  int64         `json:"selections"`
	Sessions    int64         `json:"sessions"`
	BytesMoved  int64         `json:"bytes_moved"`
	Healthy     bool          `json:"healthy"`
	AvgSession  time.Duration `json:"avg_session"`
	P50Session  time.Duration `json:"p50_session"`
	P95Session  time.Duration `json:"p95_session"`
	P99Session  time.Duration `json:"p99_session"`
}

func (m *Metrics) IncrementAccepted() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.accepted++
}

func (m *Metrics) IncrementRejected() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejected++
}

func (m *Metrics) RecordSelection(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[target]++
}

func (m *Metrics) RecordSession(target string, duration time.Duration, bytes int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sessions[target]++
	m.bytesMoved[target] += bytes
	m.durations[target] = append(m.durations[target], duration)

	if len(m.durations[target]) > 1000 {
		m.durations[target] = m.durations[target][1:]
	}
}

func (m *Metrics) UpdateHealthStatus(target string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[target] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		AcceptedConnections: m.accepted,
		RejectedConnections: m.rejected,
		Uptime:              time.Since(m.startTime),
		Targets:             make(map[string]TargetMetrics),
	}

	allTargets := make(map[string]bool)
	for target := range m.selections {
		allTargets[target] = true
	}
	for target := range m.sessions {
		allTargets[target] = true
	}
	for target := range m.healthStatus {
		allTargets[target] = true
	}

	for target := range allTargets {
		tm := TargetMetrics{
			Selections: m.selections[target],
			Sessions:   m.sessions[target],
			BytesMoved: m.bytesMoved[target],
			Healthy:    m.healthStatus[target],
		}

		durations := m.durations[target]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			tm.AvgSession = average(sorted)
			tm.P50Session = percentile(sorted, 0.50)
			tm.P95Session = percentile(sorted, 0.95)
			tm.P99Session = percentile(sorted, 0.99)
		}

		snap.Targets[target] = tm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:   make(map[string]int64),
		sessions:     make(map[string]int64),
		bytesMoved:   make(map[string]int64),
		durations:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
