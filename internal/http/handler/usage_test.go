package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"brewcast.app/captioner/internal/http/handler"
)

type mockUsageReader struct {
	sumFn func(ctx context.Context, since time.Time) (float64, error)
}

func (m *mockUsageReader) SumCostSince(ctx context.Context, since time.Time) (float64, error) {
	if m.sumFn != nil {
		return m.sumFn(ctx, since)
	}
	return 0, errors.New("mock not configured")
}

var _ = Describe("UsageHandler", func() {
	var (
		router *gin.Engine
		usage  *mockUsageReader
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		usage = &mockUsageReader{}
		router.GET("/api/usage", handler.NewUsageHandler(usage).Summary)
	})

	It("sums spend over the default 24 hour window", func() {
		usage.sumFn = func(_ context.Context, since time.Time) (float64, error) {
			Expect(time.Since(since)).To(BeNumerically("~", 24*time.Hour, time.Minute))
			return 1.75, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["hours"]).To(BeEquivalentTo(24))
		Expect(resp["cost_usd"]).To(BeEquivalentTo(1.75))
	})

	It("honors an explicit window", func() {
		usage.sumFn = func(_ context.Context, since time.Time) (float64, error) {
			Expect(time.Since(since)).To(BeNumerically("~", 168*time.Hour, time.Minute))
			return 12.40, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/api/usage?hours=168", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("rejects a window outside the allowed range", func() {
		for _, query := range []string{"hours=0", "hours=-4", "hours=99999", "hours=soon"} {
			req := httptest.NewRequest(http.MethodGet, "/api/usage?"+query, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest), "query %q", query)
		}
	})

	It("maps store failures to 500", func() {
		usage.sumFn = func(context.Context, time.Time) (float64, error) {
			return 0, errors.New("connection refused")
		}

		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
