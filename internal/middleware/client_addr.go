package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust определяет адрес клиента с учётом доверенных обратных прокси.
// Заголовки X-Forwarded-For и X-Real-IP учитываются только для соединений
// из доверенных сетей, иначе адресом клиента считается RemoteAddr.
// Нулевой *ProxyTrust не доверяет никому.
type ProxyTrust struct {
	networks []*net.IPNet
}

// NewProxyTrust разбирает список доверенных прокси в нотации CIDR
func NewProxyTrust(cidrs []string) (*ProxyTrust, error) {
	p := &ProxyTrust{}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		p.networks = append(p.networks, network)
	}
	return p, nil
}

// Trusted сообщает, входит ли адрес в одну из доверенных сетей
func (p *ProxyTrust) Trusted(addr string) bool {
	if p == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range p.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientAddr возвращает адрес клиента.
// От доверенного прокси берётся ближайший недоверенный адрес X-Forwarded-For
// (цепочка разбирается справа налево), затем X-Real-IP.
func (p *ProxyTrust) ClientAddr(r *http.Request) string {
	remote := RemoteHost(r)
	if !p.Trusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				// Дальше мусора в цепочке не идём
				break
			}
			if !p.Trusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return remote
}

// RemoteHost возвращает адрес из RemoteAddr без порта
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
