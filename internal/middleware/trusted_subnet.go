// Package middleware содержит HTTP middleware для обработки запросов.
// Включает определение вызывающего, контроль частоты запросов, логирование,
// сжатие ответов и проверку доверенных подсетей.
package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// TrustedSubnetMiddleware пропускает только клиентов из доверенной подсети (CIDR).
// Адрес клиента определяется через proxies: X-Real-IP учитывается только от доверенного прокси.
// Пустая подсеть запрещает доступ всем.
func TrustedSubnetMiddleware(trustedSubnet string, proxies *ProxyTrust, logger *zap.Logger) func(http.Handler) http.Handler {
	// Парсим CIDR-нотацию один раз при сборке цепочки
	var (
		network  *net.IPNet
		parseErr error
	)
	if trustedSubnet != "" {
		_, network, parseErr = net.ParseCIDR(trustedSubnet)
		if parseErr != nil {
			logger.Error("Invalid trusted_subnet CIDR",
				zap.String("trusted_subnet", trustedSubnet),
				zap.Error(parseErr))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Если trusted_subnet пустой, запрещаем доступ
			if trustedSubnet == "" {
				logger.Warn("Access denied: trusted_subnet is empty",
					zap.String("uri", r.RequestURI),
					zap.String("remote_addr", r.RemoteAddr))
				http.Error(w, "Access denied", http.StatusForbidden)
				return
			}
			if parseErr != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			// Получаем адрес клиента с учётом доверенных прокси
			clientIP := proxies.ClientAddr(r)

			// Проверяем, входит ли IP в доверенную подсеть
			ip := net.ParseIP(clientIP)
			if ip == nil || !network.Contains(ip) {
				logger.Warn("Access denied: IP not in trusted subnet",
					zap.String("uri", r.RequestURI),
					zap.String("client_ip", clientIP),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("trusted_subnet", trustedSubnet))
				http.Error(w, "Access denied", http.StatusForbidden)
				return
			}

			// IP входит в доверенную подсеть, разрешаем доступ
			next.ServeHTTP(w, r)
		})
	}
}
