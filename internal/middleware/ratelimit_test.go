// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	decisions []bool
}

func (o *recordingObserver) RateLimitDecision(_ string, allowed bool) {
	o.decisions = append(o.decisions, allowed)
}

func TestLocalFallbackEnforcesBurst(t *testing.T) {
	obs := &recordingObserver{}
	rl := NewRateLimiter(nil, RateLimitConfig{
		Bucket:   "sensitive",
		Limit:    PerMinute(1, 2),
		KeyFunc:  KeyByClientAndEndpoint,
		Observer: obs,
	})

	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/v1/ebooks/7f1c2a5e-8b1d-4c2e-9a61-0c1de2f3a4b5/download", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, []bool{true, true, false}, obs.decisions)
}

func TestKeyByClientAndEndpointNormalisesIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/ebooks/7f1c2a5e-8b1d-4c2e-9a61-0c1de2f3a4b5/purchase", nil)
	req.RemoteAddr = "198.51.100.4:1234"

	assert.Equal(t, "ip:198.51.100.4:endpoint:/v1/ebooks/{id}/purchase", KeyByClientAndEndpoint(req))
}

func TestClientIPPrefersLastForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 192.0.2.7")

	require.Equal(t, "192.0.2.7", ClientIP(req))
}
