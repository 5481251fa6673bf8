package geo

import (
	"context"
	"sync"
	"time"

	"github.com/tempizhere/linkpulse/internal/metrics"
	"github.com/tempizhere/linkpulse/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Исходы обогащения для метрик
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeThrottled = "throttled"
	OutcomeSkipped   = "skipped"
)

// Updater записывает гео-данные в событие
type Updater interface {
	UpdateGeo(ctx context.Context, eventID string, geo models.GeoInfo) error
}

// Enricher запускает обогащение событий в отдельных горутинах
type Enricher struct {
	lookup  Lookup
	updater Updater
	cache   Cache
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger

	wg sync.WaitGroup
}

// Option настраивает Enricher
type Option func(*Enricher)

// WithCache включает кеширование результатов поиска
func WithCache(cache Cache) Option {
	return func(e *Enricher) {
		e.cache = cache
	}
}

// WithRateLimit ограничивает число исходящих запросов в секунду.
// Запросы сверх лимита не ждут, а отбрасываются.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Enricher) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout задаёт предельное время одного обогащения
func WithTimeout(timeout time.Duration) Option {
	return func(e *Enricher) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithMetrics включает учёт исходов в метриках
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enricher) {
		e.metrics = m
	}
}

// NewEnricher создаёт новый экземпляр Enricher
func NewEnricher(lookup Lookup, updater Updater, logger *zap.Logger, opts ...Option) *Enricher {
	e := &Enricher{
		lookup:  lookup,
		updater: updater,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich запускает фоновое обогащение события и сразу возвращает управление.
// Контекст запроса не используется: обогащение переживает ответ клиенту.
func (e *Enricher) Enrich(eventID, sourceAddr string) {
	if !IsPublicAddr(sourceAddr) {
		e.metrics.ObserveGeo(OutcomeSkipped)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.metrics.ObserveGeo(e.run(ctx, eventID, sourceAddr))
	}()
}

// Wait ждёт завершения запущенных обогащений. Используется при остановке сервиса.
func (e *Enricher) Wait() {
	e.wg.Wait()
}

func (e *Enricher) run(ctx context.Context, eventID, addr string) string {
	var (
		geo *models.GeoInfo
		hit bool
	)
	if e.cache != nil {
		geo, hit = e.cache.Get(ctx, addr)
	}

	if !hit {
		if e.limiter != nil && !e.limiter.Allow() {
			e.logger.Debug("Geo lookup throttled", zap.String("event_id", eventID))
			return OutcomeThrottled
		}
		var err error
		geo, err = e.lookup.Lookup(ctx, addr)
		if err != nil {
			e.logger.Debug("Geo lookup failed", zap.String("event_id", eventID), zap.Error(err))
			return OutcomeFailed
		}
		if e.cache != nil {
			e.cache.Set(ctx, addr, *geo)
		}
	}

	if err := e.updater.UpdateGeo(ctx, eventID, *geo); err != nil {
		e.logger.Debug("Geo update failed", zap.String("event_id", eventID), zap.Error(err))
		return OutcomeFailed
	}
	return OutcomeSuccess
}
