package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/models"
	"go.uber.org/zap"
)

var testTiers = Tiers{
	Anonymous: admission.Tier{Name: "anonymous", Max: 2},
	Verified:  admission.Tier{Name: "verified", Max: 3},
}

func newAdmissionHandler() http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := AdmissionMiddleware(admission.NewController(time.Minute), testTiers, metrics.New(), zap.NewNop(), "/api/health")(ok)
	return IdentityMiddleware(fakeVerifier{"k1": "apikey:k1", "k2": "apikey:k2"}, nil, zap.NewNop())(chain)
}

func doRequest(h http.Handler, path, addr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr + ":5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAdmissionMiddleware_Anonymous(t *testing.T) {
	h := newAdmissionHandler()

	for i := 0; i < testTiers.Anonymous.Max; i++ {
		w := doRequest(h, "/docs", "203.0.113.1", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doRequest(h, "/docs", "203.0.113.1", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retryAfter)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, models.ErrorResponse{Error: "Rate limit exceeded", Code: "RATE_LIMITED"}, body)

	// Другой адрес учитывается отдельно
	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.2", "").Code)
}

func TestAdmissionMiddleware_VerifiedTier(t *testing.T) {
	h := newAdmissionHandler()

	for i := 0; i < testTiers.Verified.Max; i++ {
		require.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "k1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "/docs", "203.0.113.1", "k1").Code)

	// Второй ключ с того же адреса не затронут
	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "k2").Code)
	// Анонимный лимит адреса тоже не израсходован
	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "").Code)
}

func TestAdmissionMiddleware_ExemptPath(t *testing.T) {
	h := newAdmissionHandler()

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "/api/health", "203.0.113.1", "").Code)
	}
	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "").Code)
}

func TestAdmissionMiddleware_WithoutIdentity(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := AdmissionMiddleware(admission.NewController(time.Minute), testTiers, nil, zap.NewNop())(ok)

	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "/docs", "203.0.113.1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "/docs", "203.0.113.1", "").Code)
}
