package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/middleware"
	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
	"github.com/tempizhere/linkpulse/internal/service"
	"github.com/tempizhere/linkpulse/internal/stats"
	"go.uber.org/zap"
)

// Коды ошибок в теле ответа
const (
	CodeNotFound     = "NOT_FOUND"
	CodeGone         = "GONE"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// App содержит хендлеры и зависимости
type App struct {
	resolver *service.Resolver
	stats    *stats.Aggregator
	repo     repository.Repository
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewApp создаёт новое приложение. m может быть nil.
func NewApp(resolver *service.Resolver, aggregator *stats.Aggregator, repo repository.Repository, m *metrics.Metrics, logger *zap.Logger) *App {
	return &App{
		resolver: resolver,
		stats:    aggregator,
		repo:     repo,
		metrics:  m,
		logger:   logger,
	}
}

// HandleRedirect обрабатывает GET-запросы на "/{slug}"
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	addr := middleware.RemoteHost(r)
	if caller, ok := middleware.CallerFromContext(r.Context()); ok {
		addr = caller.Addr
	}

	res, err := a.resolver.Resolve(r.Context(), service.Request{
		Slug:       slug,
		Secret:     secretParam(r),
		SourceAddr: addr,
		UserAgent:  r.UserAgent(),
		Referrer:   r.Referer(),
	})
	if err != nil {
		a.writeResolveError(w, slug, err)
		return
	}

	a.metrics.ObserveResolution("redirect")
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Location", res.Target)
	w.WriteHeader(http.StatusFound)
}

// secretParam возвращает секрет из ?secret= или устаревшего ?password=.
// nil означает, что секрет не передан.
func secretParam(r *http.Request) *string {
	q := r.URL.Query()
	for _, name := range []string{"secret", "password"} {
		if q.Has(name) {
			v := q.Get(name)
			return &v
		}
	}
	return nil
}

func (a *App) writeResolveError(w http.ResponseWriter, slug string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		a.metrics.ObserveResolution("not_found")
		a.writeError(w, http.StatusNotFound, "Link not found", CodeNotFound)
	case errors.Is(err, service.ErrExpired):
		a.metrics.ObserveResolution("expired")
		a.writeError(w, http.StatusGone, "Link expired", CodeGone)
	case errors.Is(err, service.ErrSecretRequired):
		a.metrics.ObserveResolution("secret_required")
		a.writeError(w, http.StatusUnauthorized, "Secret required", CodeUnauthorized)
	case errors.Is(err, service.ErrSecretInvalid):
		a.metrics.ObserveResolution("secret_invalid")
		a.writeError(w, http.StatusUnauthorized, "Invalid secret", CodeUnauthorized)
	default:
		a.metrics.ObserveResolution("error")
		a.logger.Error("Failed to resolve link", zap.String("slug", slug), zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "Internal server error", CodeInternal)
	}
}

// HandleClicks обрабатывает GET-запросы на "/api/links/{id}/clicks"
func (a *App) HandleClicks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clicks, err := a.stats.Clicks(r.Context(), id)
	if err != nil {
		a.writeStatsError(w, id, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, models.ClicksResponse{Clicks: clicks})
}

// HandleStats обрабатывает GET-запросы на "/api/links/{id}/stats"
func (a *App) HandleStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := a.stats.Summarize(r.Context(), id)
	if err != nil {
		a.writeStatsError(w, id, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, summary)
}

func (a *App) writeStatsError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, stats.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "Link not found", CodeNotFound)
		return
	}
	a.logger.Error("Failed to load link analytics", zap.String("link_id", id), zap.Error(err))
	a.writeError(w, http.StatusInternalServerError, "Internal server error", CodeInternal)
}

// HandleHealth обрабатывает GET-запросы на "/api/health"
func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.Ping(r.Context()); err != nil {
		a.logger.Warn("Storage health check failed", zap.Error(err))
		a.writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	a.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) writeError(w http.ResponseWriter, status int, message, code string) {
	a.writeJSONResponse(w, status, models.ErrorResponse{Error: message, Code: code})
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to encode JSON", zap.Error(err))
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Debug("Failed to write response", zap.Error(err))
	}
}
