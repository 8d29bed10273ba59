package metrics_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcplb/internal/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("connection counters", func() {
		It("should count accepted and rejected connections", func() {
			m.IncrementAccepted()
			m.IncrementAccepted()
			m.IncrementRejected()

			snap := m.Snapshot()
			Expect(snap.AcceptedConnections).To(Equal(int64(2)))
			Expect(snap.RejectedConnections).To(Equal(int64(1)))
		})
	})

	Describe("RecordSelection", func() {
		It("should track targets separately", func() {
			m.RecordSelection("localhost:8081")
			m.RecordSelection("localhost:8082")
			m.RecordSelection("localhost:8081")

			snap := m.Snapshot()
			Expect(snap.Targets["localhost:8081"].Selections).To(Equal(int64(2)))
			Expect(snap.Targets["localhost:8082"].Selections).To(Equal(int64(1)))
		})
	})

	Describe("RecordSession", func() {
		It("should accumulate sessions and bytes", func() {
			m.RecordSession("localhost:8081", 10*time.Millisecond, 512)
			m.RecordSession("localhost:8081", 30*time.Millisecond, 1024)

			snap := m.Snapshot()
			tm := snap.Targets["localhost:8081"]
			Expect(tm.Sessions).To(Equal(int64(2)))
			Expect(tm.BytesMoved).To(Equal(int64(1536)))
			Expect(tm.AvgSession).To(Equal(20 * time.Millisecond))
		})

		It("should compute session percentiles", func() {
			for i := 1; i <= 100; i++ {
				m.RecordSession("localhost:8081", time.Duration(i)*time.Millisecond, 1)
			}

			tm := m.Snapshot().Targets["localhost:8081"]
			Expect(tm.P50Session).To(BeNumerically(">=", 50*time.Millisecond))
			Expect(tm.P95Session).To(BeNumerically(">=", 95*time.Millisecond))
			Expect(tm.P99Session).To(BeNumerically(">=", 99*time.Millisecond))
		})
	})

	Describe("UpdateHealthStatus", func() {
		It("should surface the latest judgment in the snapshot", func() {
			m.UpdateHealthStatus("localhost:8081", true)
			m.UpdateHealthStatus("localhost:8081", false)

			Expect(m.Snapshot().Targets["localhost:8081"].Healthy).To(BeFalse())
		})
	})
})

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(os.Stdout, nil))
		collector = metrics.NewCollector(100, log)
		ctx, cancel = context.WithCancel(context.Background())
		collector.Start(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	It("should fold emitted events into the store", func() {
		collector.Emit(metrics.Event{Type: metrics.EventConnectionAccepted, Timestamp: time.Now()})
		collector.Emit(metrics.Event{Type: metrics.EventTargetSelected, Target: "localhost:8081"})
		collector.Emit(metrics.Event{
			Type:     metrics.EventSessionCompleted,
			Target:   "localhost:8081",
			Duration: 5 * time.Millisecond,
			Bytes:    64,
		})

		Eventually(func() int64 {
			return collector.Snapshot().AcceptedConnections
		}).Should(Equal(int64(1)))
		Eventually(func() int64 {
			return collector.Snapshot().Targets["localhost:8081"].Sessions
		}).Should(Equal(int64(1)))
	})

	It("should tolerate emission on a nil collector", func() {
		var nilCollector *metrics.Collector
		Expect(func() {
			nilCollector.Emit(metrics.Event{Type: metrics.EventConnectionAccepted})
		}).NotTo(Panic())
	})

	It("should drop events instead of blocking when the buffer is full", func() {
		small := metrics.NewCollector(1, slog.New(slog.NewTextHandler(os.Stdout, nil)))
		// never started: the buffer stays full after one event
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 100; i++ {
				small.Emit(metrics.Event{Type: metrics.EventConnectionAccepted})
			}
		}()
		Eventually(done).Should(BeClosed())
	})
})
