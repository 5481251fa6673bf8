package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/geo"
	"github.com/tempizhere/linkpulse/internal/identity"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/middleware"
	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
	"github.com/tempizhere/linkpulse/internal/service"
	"github.com/tempizhere/linkpulse/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret = "test-secret"
	testTarget    = "https://example.com/docs"
)

var testTiers = middleware.Tiers{
	Anonymous: admission.Tier{Name: "anonymous", Max: 20},
	Verified:  admission.Tier{Name: "verified", Max: 100},
}

// testEnv собирает сервис целиком поверх хранилища в памяти
type testEnv struct {
	repo    *repository.MemoryRepository
	jwt     *identity.JWTVerifier
	metrics *metrics.Metrics
	handler http.Handler
}

// envOption настраивает testEnv
type envOption func(*envSettings)

type envSettings struct {
	proxies  *middleware.ProxyTrust
	enricher func(repo repository.Repository) service.Enricher
}

// withTrustedProxies разрешает заголовки X-Forwarded-For и X-Real-IP от указанных сетей
func withTrustedProxies(t *testing.T, cidrs ...string) envOption {
	proxies, err := middleware.NewProxyTrust(cidrs)
	require.NoError(t, err)
	return func(s *envSettings) { s.proxies = proxies }
}

// withEnricher подключает фоновое обогащение геоданными
func withEnricher(build func(repo repository.Repository) service.Enricher) envOption {
	return func(s *envSettings) { s.enricher = build }
}

func setupTestEnvironment(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	repo := repository.NewMemoryRepository()
	return newTestEnv(t, repo, repo, opts...)
}

func newTestEnv(t *testing.T, repo repository.Repository, mem *repository.MemoryRepository, opts ...envOption) *testEnv {
	t.Helper()

	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}

	logger := zap.NewNop()
	m := metrics.New()
	jwtVerifier := identity.NewJWTVerifier(testJWTSecret, "linkpulse")

	var enricher service.Enricher
	if settings.enricher != nil {
		enricher = settings.enricher(repo)
	}
	resolver := service.NewResolver(repo, service.NewRecorder(repo), enricher, logger)
	appInstance := NewApp(resolver, stats.NewAggregator(repo, 0, 0), repo, m, logger)

	handler := NewRouter(appInstance, RouterConfig{
		Admission:      admission.NewController(time.Minute),
		Tiers:          testTiers,
		Verifier:       identity.Chain{identity.NewAPIKeyVerifier(repo), jwtVerifier},
		Metrics:        m,
		TrustedProxies: settings.proxies,
		Logger:         logger,
	})

	return &testEnv{repo: mem, jwt: jwtVerifier, metrics: m, handler: handler}
}

func (e *testEnv) get(path, addr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr + ":40000"
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) eventCount(t *testing.T, linkID string) int {
	t.Helper()
	events, err := e.repo.ListAccessEventsForLink(context.Background(), linkID)
	require.NoError(t, err)
	return len(events)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func hashSecret(t *testing.T, secret string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func TestHandleRedirect(t *testing.T) {
	env := setupTestEnvironment(t)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})
	env.repo.AddLink(models.Link{ID: "l2", Slug: "old", TargetURL: "https://example.com/old", ExpiresAt: &past})
	env.repo.AddLink(models.Link{ID: "l3", Slug: "soon", TargetURL: "https://example.com/soon", ExpiresAt: &future})

	tests := []struct {
		name         string
		path         string
		expectedCode int
		location     string
		errorBody    *models.ErrorResponse
	}{
		{
			name:         "active link redirects",
			path:         "/docs",
			expectedCode: http.StatusFound,
			location:     testTarget,
		},
		{
			name:         "link with future expiry redirects",
			path:         "/soon",
			expectedCode: http.StatusFound,
			location:     "https://example.com/soon",
		},
		{
			name:         "expired link is gone",
			path:         "/old",
			expectedCode: http.StatusGone,
			errorBody:    &models.ErrorResponse{Error: "Link expired", Code: CodeGone},
		},
		{
			name:         "unknown slug",
			path:         "/missing",
			expectedCode: http.StatusNotFound,
			errorBody:    &models.ErrorResponse{Error: "Link not found", Code: CodeNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(tt.path, "203.0.113.10", nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
			if tt.errorBody != nil {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Equal(t, *tt.errorBody, decodeError(t, w))
			}
		})
	}

	assert.Equal(t, 1, env.eventCount(t, "l1"))
	assert.Equal(t, 0, env.eventCount(t, "l2"), "expired link must not record access")
}

func TestHandleRedirect_Secret(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "private", TargetURL: testTarget, SecretHash: hashSecret(t, "pw")})

	w := env.get("/private", "203.0.113.10", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrorResponse{Error: "Secret required", Code: CodeUnauthorized}, decodeError(t, w))

	w = env.get("/private?secret=wrong", "203.0.113.10", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrorResponse{Error: "Invalid secret", Code: CodeUnauthorized}, decodeError(t, w))

	w = env.get("/private?secret=", "203.0.113.10", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid secret", decodeError(t, w).Error)

	assert.Equal(t, 0, env.eventCount(t, "l1"))

	w = env.get("/private?secret=pw", "203.0.113.10", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testTarget, w.Header().Get("Location"))
	assert.Equal(t, 1, env.eventCount(t, "l1"))

	// Устаревшее имя параметра
	w = env.get("/private?password=pw", "203.0.113.10", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, 2, env.eventCount(t, "l1"))
}

func TestHandleRedirect_RecordsRequestMetadata(t *testing.T) {
	env := setupTestEnvironment(t, withTrustedProxies(t, "10.0.0.0/8"))
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	header := http.Header{}
	header.Set("User-Agent", "test-agent/1.0")
	header.Set("Referer", "https://twitter.com/some/post")
	header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	w := env.get("/docs", "10.0.0.1", header)
	require.Equal(t, http.StatusFound, w.Code)

	events, err := env.repo.ListAccessEventsForLink(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "198.51.100.7", events[0].SourceAddr)
	assert.Equal(t, "test-agent/1.0", events[0].UserAgent)
	assert.Equal(t, "https://twitter.com/some/post", events[0].Referrer)
	assert.Nil(t, events[0].Geo)
}

func TestHandleRedirect_ForwardedFromUntrustedPeer(t *testing.T) {
	env := setupTestEnvironment(t, withTrustedProxies(t, "10.0.0.0/8"))
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	header := http.Header{}
	header.Set("X-Forwarded-For", "198.51.100.7")
	header.Set("X-Real-IP", "198.51.100.8")
	require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.9", header).Code)

	events, err := env.repo.ListAccessEventsForLink(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "203.0.113.9", events[0].SourceAddr)
}

// blockingLookup зависает до отмены контекста
type blockingLookup struct {
	started chan struct{}
	once    sync.Once
}

func (l *blockingLookup) Lookup(ctx context.Context, _ string) (*models.GeoInfo, error) {
	l.once.Do(func() { close(l.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandleRedirect_SlowEnrichmentDoesNotBlock(t *testing.T) {
	const lookupTimeout = 500 * time.Millisecond

	lookup := &blockingLookup{started: make(chan struct{})}
	var enricher *geo.Enricher
	env := setupTestEnvironment(t, withEnricher(func(repo repository.Repository) service.Enricher {
		enricher = geo.NewEnricher(lookup, service.NewRecorder(repo), zap.NewNop(), geo.WithTimeout(lookupTimeout))
		return enricher
	}))
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	start := time.Now()
	w := env.get("/docs", "203.0.113.10", nil)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testTarget, w.Header().Get("Location"))
	assert.Less(t, elapsed, lookupTimeout/2, "redirect waited for geo lookup")

	select {
	case <-lookup.started:
	case <-time.After(time.Second):
		t.Fatal("geo lookup was not dispatched")
	}

	events, err := env.repo.ListAccessEventsForLink(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Geo)

	enricher.Wait()

	events, err = env.repo.ListAccessEventsForLink(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Geo, "failed lookup must leave event without geo")
}

func TestHandleRedirect_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMockRepository(ctrl)
	repo.EXPECT().FindLinkBySlug(gomock.Any(), "docs").Return(&models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget}, nil)
	repo.EXPECT().InsertAccessEvent(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	env := newTestEnv(t, repo, nil)
	w := env.get("/docs", "203.0.113.10", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), testTarget)
	assert.Equal(t, models.ErrorResponse{Error: "Internal server error", Code: CodeInternal}, decodeError(t, w))
}

func TestAdmission_AnonymousLimit(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	for i := 0; i < testTiers.Anonymous.Max; i++ {
		w := env.get("/docs", "203.0.113.10", nil)
		require.Equal(t, http.StatusFound, w.Code, "request %d", i+1)
	}

	w := env.get("/docs", "203.0.113.10", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retryAfter)
	assert.LessOrEqual(t, retryAfter, 60)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)

	// Отклонённый запрос не доходит до резолвера
	assert.Equal(t, testTiers.Anonymous.Max, env.eventCount(t, "l1"))

	// Другой адрес не затронут
	assert.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.11", nil).Code)

	// Служебные пути не ограничиваются
	assert.Equal(t, http.StatusOK, env.get(HealthPath, "203.0.113.10", nil).Code)
}

func TestAdmission_RotatingForwardedHeader(t *testing.T) {
	env := setupTestEnvironment(t, withTrustedProxies(t, "10.0.0.0/8"))
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	forwarded := func(i int) http.Header {
		h := http.Header{}
		h.Set("X-Forwarded-For", "10.0."+strconv.Itoa(i/256)+"."+strconv.Itoa(i%256))
		h.Set("X-Real-IP", "10.1."+strconv.Itoa(i/256)+"."+strconv.Itoa(i%256))
		return h
	}

	// Новый заголовок на каждый запрос не даёт новой идентичности
	for i := 0; i < testTiers.Anonymous.Max; i++ {
		require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.9", forwarded(i)).Code, "request %d", i+1)
	}
	w := env.get("/docs", "203.0.113.9", forwarded(testTiers.Anonymous.Max))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
	assert.Equal(t, testTiers.Anonymous.Max, env.eventCount(t, "l1"))

	// За доверенным прокси клиенты различаются по X-Forwarded-For
	viaProxy := func(client string) http.Header {
		h := http.Header{}
		h.Set("X-Forwarded-For", client)
		return h
	}
	for i := 0; i < testTiers.Anonymous.Max; i++ {
		require.Equal(t, http.StatusFound, env.get("/docs", "10.0.0.1", viaProxy("198.51.100.1")).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, env.get("/docs", "10.0.0.1", viaProxy("198.51.100.1")).Code)
	assert.Equal(t, http.StatusFound, env.get("/docs", "10.0.0.1", viaProxy("198.51.100.2")).Code)
}

func TestAdmission_IndependentCredentials(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})
	env.repo.AddAPIKey(models.APIKey{ID: "k1", Key: "key-one"})

	alice, err := env.jwt.Issue("alice", time.Hour)
	require.NoError(t, err)

	bearer := func(token string) http.Header {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		return h
	}

	// Исчерпываем анонимный лимит адреса
	for i := 0; i < testTiers.Anonymous.Max; i++ {
		require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.10", nil).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, env.get("/docs", "203.0.113.10", nil).Code)

	// Подтверждённые вызывающие с того же адреса учитываются отдельно и получают больший лимит
	w := env.get("/docs", "203.0.113.10", bearer(alice))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))

	w = env.get("/docs", "203.0.113.10", bearer("key-one"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))

	// Непринятый токен означает анонимного вызывающего
	assert.Equal(t, http.StatusTooManyRequests, env.get("/docs", "203.0.113.10", bearer("bogus")).Code)
}

func TestHandleStats(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	for i, ref := range []string{"https://twitter.com/a", "https://twitter.com/b", "https://facebook.com/x", ""} {
		header := http.Header{}
		if ref != "" {
			header.Set("Referer", ref)
		}
		require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113."+strconv.Itoa(20+i), header).Code)
	}

	w := env.get("/api/links/l1/stats", "203.0.113.10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var summary models.StatsSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.EqualValues(t, 4, summary.TotalClicks)
	assert.Equal(t, []models.ReferrerCount{
		{Referrer: "twitter.com", Count: 2},
		{Referrer: "direct", Count: 1},
		{Referrer: "facebook.com", Count: 1},
	}, summary.TopReferrers)
	require.Len(t, summary.ClicksByDay, 1)
	assert.EqualValues(t, 4, summary.ClicksByDay[0].Count)
	assert.Empty(t, summary.ClicksByCountry)
	assert.Len(t, summary.RecentClicks, 4)

	w = env.get("/api/links/missing/stats", "203.0.113.10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrorResponse{Error: "Link not found", Code: CodeNotFound}, decodeError(t, w))
}

func TestHandleStats_EmptyLink(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	w := env.get("/api/links/l1/stats", "203.0.113.10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalClicks":0,"clicksByDay":[],"clicksByCountry":[],"topReferrers":[],"recentClicks":[]}`, w.Body.String())
}

func TestHandleClicks(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	header := http.Header{}
	header.Set("User-Agent", "test-agent/1.0")
	require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.10", header).Code)

	w := env.get("/api/links/l1/clicks", "203.0.113.10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ClicksResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Clicks, 1)
	click := resp.Clicks[0]
	require.NotNil(t, click.IP)
	assert.Equal(t, "203.0.113.10", *click.IP)
	require.NotNil(t, click.UserAgent)
	assert.Equal(t, "test-agent/1.0", *click.UserAgent)
	assert.Nil(t, click.Referrer)
	assert.Nil(t, click.Country)
	assert.Positive(t, click.Timestamp)

	assert.Equal(t, http.StatusNotFound, env.get("/api/links/missing/clicks", "203.0.113.10", nil).Code)
}

func TestHandleHealth(t *testing.T) {
	env := setupTestEnvironment(t)

	w := env.get(HealthPath, "203.0.113.10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := repository.NewMockRepository(ctrl)
	repo.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

	w = newTestEnv(t, repo, nil).get(HealthPath, "203.0.113.10", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnvironment(t)
	env.repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: testTarget})

	require.Equal(t, http.StatusFound, env.get("/docs", "203.0.113.10", nil).Code)
	require.Equal(t, http.StatusNotFound, env.get("/missing", "203.0.113.10", nil).Code)

	w := env.get(MetricsPath, "203.0.113.10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `linkpulse_resolutions_total{outcome="redirect"} 1`)
	assert.Contains(t, body, `linkpulse_resolutions_total{outcome="not_found"} 1`)
	assert.Contains(t, body, `linkpulse_admission_decisions_total{outcome="allowed",tier="anonymous"} 2`)
}

func TestMetricsEndpoint_TrustedSubnet(t *testing.T) {
	repo := repository.NewMemoryRepository()
	logger := zap.NewNop()
	m := metrics.New()
	proxies, err := middleware.NewProxyTrust([]string{"127.0.0.1/32"})
	require.NoError(t, err)
	resolver := service.NewResolver(repo, service.NewRecorder(repo), nil, logger)
	handler := NewRouter(NewApp(resolver, stats.NewAggregator(repo, 0, 0), repo, m, logger), RouterConfig{
		Admission:      admission.NewController(time.Minute),
		Tiers:          testTiers,
		Metrics:        m,
		TrustedSubnet:  "192.168.1.0/24",
		TrustedProxies: proxies,
		Logger:         logger,
	})

	scrape := func(remoteAddr, realIP string) int {
		req := httptest.NewRequest(http.MethodGet, MetricsPath, nil)
		req.RemoteAddr = remoteAddr
		if realIP != "" {
			req.Header.Set("X-Real-IP", realIP)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	// Через доверенный прокси учитывается X-Real-IP
	assert.Equal(t, http.StatusOK, scrape("127.0.0.1:1234", "192.168.1.100"))
	assert.Equal(t, http.StatusForbidden, scrape("127.0.0.1:1234", "10.0.0.1"))

	// Прямое соединение проверяется по RemoteAddr
	assert.Equal(t, http.StatusOK, scrape("192.168.1.7:1234", ""))
	assert.Equal(t, http.StatusForbidden, scrape("203.0.113.5:1234", "192.168.1.100"))
}
