package routing_test

import (
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcplb/internal/backend"
	"github.com/angeloszaimis/tcplb/internal/routing"
)

func TestRouting(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Routing Suite")
}

var _ = Describe("Router", func() {
	var (
		targets  []backend.Backend
		registry *backend.Registry
	)

	BeforeEach(func() {
		targets = []backend.Backend{
			{ID: 0, Address: "localhost:8081", HealthCheckPath: "/health"},
			{ID: 1, Address: "localhost:8082", HealthCheckPath: "/health"},
		}
		registry = backend.NewRegistry(len(targets))
	})

	Describe("round-robin selection", func() {
		It("should alternate between two healthy targets", func() {
			router := routing.NewRouter(targets, nil, registry)

			for _, want := range []string{"localhost:8081", "localhost:8082", "localhost:8081", "localhost:8082"} {
				addr, err := router.Route("/")
				Expect(err).NotTo(HaveOccurred())
				Expect(addr).To(Equal(want))
			}
		})

		It("should skip an unhealthy target", func() {
			registry.Set(1, false)
			router := routing.NewRouter(targets, nil, registry)

			for i := 0; i < 5; i++ {
				addr, err := router.Route("/")
				Expect(err).NotTo(HaveOccurred())
				Expect(addr).To(Equal("localhost:8081"))
			}
		})

		It("should distribute selections evenly over a static pool", func() {
			targets = append(targets, backend.Backend{ID: 2, Address: "localhost:8083", HealthCheckPath: "/health"})
			registry = backend.NewRegistry(len(targets))
			router := routing.NewRouter(targets, nil, registry)

			counts := make(map[string]int)
			for i := 0; i < 300; i++ {
				addr, err := router.Route("/")
				Expect(err).NotTo(HaveOccurred())
				counts[addr]++
			}

			Expect(counts["localhost:8081"]).To(Equal(100))
			Expect(counts["localhost:8082"]).To(Equal(100))
			Expect(counts["localhost:8083"]).To(Equal(100))
		})

		It("should visit candidates in cyclic configuration order", func() {
			targets = append(targets, backend.Backend{ID: 2, Address: "localhost:8083", HealthCheckPath: "/health"})
			registry = backend.NewRegistry(len(targets))
			router := routing.NewRouter(targets, nil, registry)

			var order []string
			for i := 0; i < 6; i++ {
				addr, _ := router.Route("/")
				order = append(order, addr)
			}
			Expect(order).To(Equal([]string{
				"localhost:8081", "localhost:8082", "localhost:8083",
				"localhost:8081", "localhost:8082", "localhost:8083",
			}))
		})

		It("should not reset the cursor when pool membership changes", func() {
			router := routing.NewRouter(targets, nil, registry)

			addr, _ := router.Route("/")
			Expect(addr).To(Equal("localhost:8081"))
			addr, _ = router.Route("/")
			Expect(addr).To(Equal("localhost:8082"))

			// cursor is now 2; with a shrunken pool of one it lands on the
			// survivor regardless of its old position
			registry.Set(0, false)
			addr, err := router.Route("/")
			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal("localhost:8082"))
		})

		It("should return ErrNoBackends when every target is unhealthy", func() {
			registry.Commit([]bool{false, false})
			router := routing.NewRouter(targets, nil, registry)

			_, err := router.Route("/")
			Expect(err).To(MatchError(routing.ErrNoBackends))
		})

		It("should return ErrNoBackends for an empty pool", func() {
			router := routing.NewRouter(nil, nil, backend.NewRegistry(0))

			_, err := router.Route("/anything")
			Expect(err).To(MatchError(routing.ErrNoBackends))
		})
	})

	Describe("path routes", func() {
		var routes []backend.PathRoute

		BeforeEach(func() {
			routes = []backend.PathRoute{
				{PathPrefix: "/api", Address: "localhost:9001"},
			}
		})

		It("should send matching paths to the pinned address", func() {
			router := routing.NewRouter(targets, routes, registry)

			addr, err := router.Route("/api/x")
			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal("localhost:9001"))
		})

		It("should match even when every pool target is unhealthy", func() {
			registry.Commit([]bool{false, false})
			router := routing.NewRouter(targets, routes, registry)

			addr, err := router.Route("/api")
			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal("localhost:9001"))
		})

		It("should honor configuration order on overlapping prefixes", func() {
			routes = []backend.PathRoute{
				{PathPrefix: "/api/v2", Address: "localhost:9002"},
				{PathPrefix: "/api", Address: "localhost:9001"},
			}
			router := routing.NewRouter(targets, routes, registry)

			addr, _ := router.Route("/api/v2/users")
			Expect(addr).To(Equal("localhost:9002"))

			addr, _ = router.Route("/api/v1/users")
			Expect(addr).To(Equal("localhost:9001"))
		})

		It("should exclude path-routed addresses from the round-robin pool", func() {
			// 8082 is both a pool target and a path-route address
			routes = []backend.PathRoute{
				{PathPrefix: "/static", Address: "localhost:8082"},
			}
			router := routing.NewRouter(targets, routes, registry)

			for i := 0; i < 10; i++ {
				addr, err := router.Route("/")
				Expect(err).NotTo(HaveOccurred())
				Expect(addr).To(Equal("localhost:8081"))
			}
		})

		It("should return ErrNoBackends when exclusion empties the pool", func() {
			routes = []backend.PathRoute{
				{PathPrefix: "/a", Address: "localhost:8081"},
				{PathPrefix: "/b", Address: "localhost:8082"},
			}
			router := routing.NewRouter(targets, routes, registry)

			_, err := router.Route("/other")
			Expect(err).To(MatchError(routing.ErrNoBackends))
		})
	})

	Describe("concurrent selection", func() {
		It("should hand out every position exactly once per cycle", func() {
			targets = append(targets, backend.Backend{ID: 2, Address: "localhost:8083", HealthCheckPath: "/health"})
			registry = backend.NewRegistry(len(targets))
			router := routing.NewRouter(targets, nil, registry)

			const workers = 30
			results := make(chan string, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					addr, err := router.Route("/")
					Expect(err).NotTo(HaveOccurred())
					results <- addr
				}()
			}
			wg.Wait()
			close(results)

			counts := make(map[string]int)
			for addr := range results {
				counts[addr]++
			}
			Expect(counts["localhost:8081"]).To(Equal(10))
			Expect(counts["localhost:8082"]).To(Equal(10))
			Expect(counts["localhost:8083"]).To(Equal(10))
		})
	})
})
