package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"brewcast.app/captioner/internal/http/handler"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/store"
)

type mockBrandDirectory struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.BrandVoiceProfile, error)
	updateFn     func(ctx context.Context, profile *model.BrandVoiceProfile) error
	listActiveFn func(ctx context.Context) ([]model.BrandVoiceProfile, error)
}

func (m *mockBrandDirectory) GetByID(ctx context.Context, id int64) (*model.BrandVoiceProfile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockBrandDirectory) Update(ctx context.Context, profile *model.BrandVoiceProfile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, profile)
	}
	return errors.New("mock not configured")
}

func (m *mockBrandDirectory) ListActive(ctx context.Context) ([]model.BrandVoiceProfile, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, errors.New("mock not configured")
}

func validProfileBody() map[string]any {
	return map[string]any{
		"name":         "Daily Grind",
		"adjectives":   []string{"warm", "playful"},
		"default_tone": map[string]any{"primary": "friendly"},
		"content_mix": map[string]any{
			"education_pct":  40,
			"engagement_pct": 40,
			"promotion_pct":  20,
		},
		"active": true,
	}
}

var _ = Describe("BrandHandler", func() {
	var (
		router *gin.Engine
		brands *mockBrandDirectory
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		brands = &mockBrandDirectory{}
		h := handler.NewBrandHandler(brands)
		router.GET("/api/brands", h.List)
		router.PUT("/api/brands/:id", h.Update)
	})

	Describe("GET /api/brands", func() {
		It("lists the active brands", func() {
			brands.listActiveFn = func(context.Context) ([]model.BrandVoiceProfile, error) {
				return []model.BrandVoiceProfile{
					{ID: 1, Name: "Daily Grind", Active: true, PreferredProvider: "ollama"},
					{ID: 2, Name: "Night Owl", Active: true},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/api/brands", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Brands []map[string]any `json:"brands"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Brands).To(HaveLen(2))
			Expect(resp.Brands[0]["name"]).To(Equal("Daily Grind"))
			Expect(resp.Brands[0]["preferred_provider"]).To(Equal("ollama"))
		})

		It("maps store failures to 500", func() {
			brands.listActiveFn = func(context.Context) ([]model.BrandVoiceProfile, error) {
				return nil, errors.New("connection refused")
			}

			req := httptest.NewRequest(http.MethodGet, "/api/brands", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("connection refused"))
		})
	})

	Describe("PUT /api/brands/:id", func() {
		It("updates a brand with the id taken from the path", func() {
			var updated *model.BrandVoiceProfile
			brands.updateFn = func(_ context.Context, profile *model.BrandVoiceProfile) error {
				updated = profile
				return nil
			}

			body, _ := json.Marshal(validProfileBody())
			req := httptest.NewRequest(http.MethodPut, "/api/brands/3", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(updated).NotTo(BeNil())
			Expect(updated.ID).To(Equal(int64(3)))
			Expect(updated.Name).To(Equal("Daily Grind"))
		})

		It("rejects a profile that fails validation", func() {
			payload := validProfileBody()
			payload["content_mix"] = map[string]any{
				"education_pct":  50,
				"engagement_pct": 50,
				"promotion_pct":  50,
			}

			body, _ := json.Marshal(payload)
			req := httptest.NewRequest(http.MethodPut, "/api/brands/3", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("content mix"))
		})

		It("returns 404 for an unknown brand", func() {
			brands.updateFn = func(context.Context, *model.BrandVoiceProfile) error {
				return store.ErrNotFound
			}

			body, _ := json.Marshal(validProfileBody())
			req := httptest.NewRequest(http.MethodPut, "/api/brands/99", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a non-numeric id", func() {
			body, _ := json.Marshal(validProfileBody())
			req := httptest.NewRequest(http.MethodPut, "/api/brands/latest", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
