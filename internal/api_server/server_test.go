package apiserver_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apiserver "github.com/stepfree/access-planner/internal/api_server"
	"github.com/stepfree/access-planner/internal/config"
	handlers "github.com/stepfree/access-planner/internal/handlers/v1alpha1"
	"github.com/stepfree/access-planner/pkg/requestid"
)

var _ = Describe("api server", func() {
	var srv *apiserver.Server

	BeforeEach(func() {
		srv = apiserver.New(config.NewDefault(), handlers.NewServiceHandler(nil), nil)
	})

	It("serves health behind the gateway prefix", func() {
		router, err := srv.Router()
		Expect(err).To(BeNil())

		for _, path := range []string{"/health", "/api/access-planner/health"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			Expect(rec.Code).To(Equal(http.StatusOK), path)
			Expect(rec.Header().Get(requestid.RequestIDHeader)).ToNot(BeEmpty())
		}
	})

	It("keeps the caller request id", func() {
		router, err := srv.Router()
		Expect(err).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestid.RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get(requestid.RequestIDHeader)).To(Equal("req-42"))
	})

	It("answers cors preflight requests", func() {
		router, err := srv.Router()
		Expect(err).To(BeNil())

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/evaluations", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).ToNot(BeEmpty())
	})

	It("stops serving when the context is cancelled", func() {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(BeNil())
		srv = apiserver.New(config.NewDefault(), handlers.NewServiceHandler(nil), listener)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Run(ctx) }()

		Eventually(func() error {
			resp, err := http.Get("http://" + listener.Addr().String() + "/health")
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			return nil
		}, 2*time.Second, 50*time.Millisecond).Should(Succeed())

		cancel()
		Eventually(done, 7*time.Second).Should(Receive(BeNil()))
	})
})
