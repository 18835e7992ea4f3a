package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"geo-cluster/internal/config"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	h := RateLimit(0.001, 2)(okHandler())
	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestWrap_DisabledPassesThrough(t *testing.T) {
	h := Wrap(config.Config{RateLimitEnabled: false, RateLimitQPS: 0.001}, okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
