package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/tempizhere/linkpulse/internal/identity"
	"go.uber.org/zap"
)

// callerKey для хранения Caller в контексте
type callerKey struct{}

// Caller описывает вызывающего
type Caller struct {
	// Key - ключ идентичности для учёта допуска
	Key string
	// Verified - предъявлен ли подтверждённый токен
	Verified bool
	// Addr - сетевой адрес клиента
	Addr string
}

// CallerFromContext возвращает Caller, установленный IdentityMiddleware
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// WithCaller кладёт Caller в контекст
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// IdentityMiddleware определяет вызывающего по bearer-токену или по адресу.
// Непринятый токен не отклоняет запрос: вызывающий считается анонимным.
// Адрес клиента определяется через proxies; nil не доверяет заголовкам прокси.
func IdentityMiddleware(verifier identity.Verifier, proxies *ProxyTrust, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := proxies.ClientAddr(r)
			caller := Caller{Key: "ip:" + addr, Addr: addr}

			if token, ok := identity.BearerToken(r.Header.Get("Authorization")); ok && verifier != nil {
				key, err := verifier.Verify(r.Context(), token)
				switch {
				case err == nil:
					caller.Key = key
					caller.Verified = true
				case errors.Is(err, identity.ErrInvalidCredential):
					logger.Debug("Credential rejected", zap.String("client_ip", addr))
				default:
					logger.Warn("Credential verification failed", zap.String("client_ip", addr), zap.Error(err))
				}
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
