package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tempizhere/linkpulse/internal/admission"
	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/models"
	"go.uber.org/zap"
)

// Tiers задаёт лимиты для анонимных и подтверждённых вызывающих
type Tiers struct {
	Anonymous admission.Tier
	Verified  admission.Tier
}

// AdmissionMiddleware пропускает запрос только в пределах лимита вызывающего.
// Пути из exempt не проверяются. Ожидает Caller от IdentityMiddleware.
func AdmissionMiddleware(controller *admission.Controller, tiers Tiers, m *metrics.Metrics, logger *zap.Logger, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			caller, ok := CallerFromContext(r.Context())
			if !ok {
				// Без IdentityMiddleware заголовкам прокси не доверяем
				addr := RemoteHost(r)
				caller = Caller{Key: "ip:" + addr, Addr: addr}
			}
			tier := tiers.Anonymous
			if caller.Verified {
				tier = tiers.Verified
			}

			decision := controller.Admit(caller.Key, tier, time.Now())
			m.ObserveAdmission(tier.Name, decision.Allowed)
			if !decision.Allowed {
				logger.Info("Request rejected by admission",
					zap.String("tier", tier.Name),
					zap.String("uri", r.RequestURI),
					zap.Int("retry_after", decision.RetryAfter))
				writeRateLimited(w, decision.RetryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(tier.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: "Rate limit exceeded",
		Code:  "RATE_LIMITED",
	})
}
