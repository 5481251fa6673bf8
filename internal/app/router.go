package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/identity"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/middleware"
	"go.uber.org/zap"
)

// Пути, не подлежащие контролю частоты запросов
const (
	HealthPath  = "/api/health"
	MetricsPath = "/metrics"
)

// RouterConfig содержит зависимости конвейера обработки запросов
type RouterConfig struct {
	Admission *admission.Controller
	Tiers     middleware.Tiers
	Verifier  identity.Verifier
	Metrics   *metrics.Metrics
	// TrustedSubnet ограничивает доступ к /metrics; пустое значение оставляет его открытым
	TrustedSubnet string
	// TrustedProxies - обратные прокси, чьим заголовкам X-Forwarded-For и X-Real-IP можно верить
	TrustedProxies *middleware.ProxyTrust
	Logger         *zap.Logger
}

// NewRouter собирает маршруты и middleware сервиса
func NewRouter(a *App, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(middleware.IdentityMiddleware(cfg.Verifier, cfg.TrustedProxies, cfg.Logger))
	r.Use(middleware.AdmissionMiddleware(cfg.Admission, cfg.Tiers, cfg.Metrics, cfg.Logger, HealthPath, MetricsPath))

	r.Get(HealthPath, a.HandleHealth)

	if cfg.Metrics != nil {
		var metricsHandler http.Handler = cfg.Metrics.Handler()
		if cfg.TrustedSubnet != "" {
			metricsHandler = middleware.TrustedSubnetMiddleware(cfg.TrustedSubnet, cfg.TrustedProxies, cfg.Logger)(metricsHandler)
		}
		r.Method(http.MethodGet, MetricsPath, metricsHandler)
	}

	r.Route("/api/links/{id}", func(r chi.Router) {
		r.Use(middleware.GzipMiddleware)
		r.Get("/clicks", a.HandleClicks)
		r.Get("/stats", a.HandleStats)
	})

	r.Get("/{slug}", a.HandleRedirect)

	return r
}
