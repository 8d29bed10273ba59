package adminserver_test

import (
	"context"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcplb/internal/adminserver"
)

func TestAdminServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AdminServer Suite")
}

var _ = Describe("Server", func() {
	var handler http.Handler

	BeforeEach(func() {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	Describe("New", func() {
		It("should accept a host:port address", func() {
			srv, err := adminserver.New("localhost:9090", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should accept a port-only address", func() {
			srv, err := adminserver.New(":9090", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should reject an address without a port", func() {
			_, err := adminserver.New("localhost", handler)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an invalid host", func() {
			_, err := adminserver.New("not a host:9090", handler)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("lifecycle", func() {
		It("should start and shut down cleanly", func() {
			srv, err := adminserver.New("127.0.0.1:0", handler)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(errCh).Should(Receive(BeNil()))
		})
	})
})
