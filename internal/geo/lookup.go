// Package geo дописывает к событиям доступа страну и город источника.
//
// Обогащение выполняется в фоне после записи события и никогда не влияет на ответ
// клиенту: любая ошибка поиска отбрасывается.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tempizhere/linkpulse/internal/models"
)

const (
	// DefaultLookupURL - адрес публичного сервиса ip-api
	DefaultLookupURL = "http://ip-api.com/json"
	// DefaultTimeout ограничивает один поиск
	DefaultTimeout = 5 * time.Second
)

// ErrLookupFailed возвращается при любой неудаче поиска
var ErrLookupFailed = errors.New("geo lookup failed")

// Lookup определяет источник гео-данных по адресу
type Lookup interface {
	Lookup(ctx context.Context, addr string) (*models.GeoInfo, error)
}

// IPAPIClient ищет гео-данные через HTTP API ip-api.com
type IPAPIClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewIPAPIClient создаёт клиент. Пустой baseURL заменяется DefaultLookupURL.
func NewIPAPIClient(baseURL string, timeout time.Duration) *IPAPIClient {
	if baseURL == "" {
		baseURL = DefaultLookupURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &IPAPIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
}

// Lookup запрашивает страну (ISO-код) и город для addr
func (c *IPAPIClient) Lookup(ctx context.Context, addr string) (*models.GeoInfo, error) {
	url := fmt.Sprintf("%s/%s?fields=status,countryCode,city", c.baseURL, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("%w: status %q", ErrLookupFailed, result.Status)
	}
	// Ответ без страны и города считается неудачным
	if result.CountryCode == "" && result.City == "" {
		return nil, fmt.Errorf("%w: empty location for %s", ErrLookupFailed, addr)
	}

	return &models.GeoInfo{Country: result.CountryCode, City: result.City}, nil
}

// IsPublicAddr сообщает, имеет ли смысл искать гео-данные для addr.
// Неразбираемые, локальные и частные адреса пропускаются.
func IsPublicAddr(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
