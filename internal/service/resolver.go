// Package service содержит бизнес-логику перехода по короткой ссылке:
// поиск, проверку срока действия и секрета, запись события доступа.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound возвращается, если ссылки с таким slug или ID нет
	ErrNotFound = errors.New("link not found")
	// ErrExpired возвращается для ссылки с истёкшим сроком действия
	ErrExpired = errors.New("link expired")
	// ErrSecretRequired возвращается, если ссылка защищена, а секрет не передан
	ErrSecretRequired = errors.New("secret required")
	// ErrSecretInvalid возвращается при несовпадении секрета
	ErrSecretInvalid = errors.New("invalid secret")
)

// Enricher запускает фоновое обогащение события. Вызов не блокирует.
type Enricher interface {
	Enrich(eventID, sourceAddr string)
}

// Request описывает входящий переход по ссылке
type Request struct {
	Slug string
	// Secret равен nil, если секрет не передан
	Secret     *string
	SourceAddr string
	UserAgent  string
	Referrer   string
}

// Resolution - результат успешного перехода
type Resolution struct {
	Link   *models.Link
	Event  *models.AccessEvent
	Target string
}

// Resolver проводит переход через цепочку проверок
type Resolver struct {
	repo     repository.Repository
	recorder *Recorder
	enricher Enricher
	logger   *zap.Logger
	now      func() time.Time
}

// NewResolver создаёт новый экземпляр Resolver. enricher может быть nil.
func NewResolver(repo repository.Repository, recorder *Recorder, enricher Enricher, logger *zap.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		recorder: recorder,
		enricher: enricher,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve находит ссылку и, если все проверки пройдены, записывает ровно одно событие доступа.
// При любой ошибке событие не создаётся.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	link, err := r.repo.FindLinkBySlug(ctx, req.Slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}

	// Срок действия проверяется раньше секрета
	if link.IsExpired(r.now()) {
		return nil, ErrExpired
	}

	if link.HasSecret() {
		if req.Secret == nil {
			return nil, ErrSecretRequired
		}
		if err := checkSecret(*link.SecretHash, *req.Secret); err != nil {
			if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				r.logger.Warn("Malformed secret hash", zap.String("link_id", link.ID), zap.Error(err))
			}
			return nil, ErrSecretInvalid
		}
	}

	event, err := r.recorder.Record(ctx, link.ID, RequestMeta{
		SourceAddr: req.SourceAddr,
		UserAgent:  req.UserAgent,
		Referrer:   req.Referrer,
	})
	if err != nil {
		return nil, err
	}

	if r.enricher != nil && event.SourceAddr != "" {
		r.enricher.Enrich(event.ID, event.SourceAddr)
	}

	return &Resolution{Link: link, Event: event, Target: link.TargetURL}, nil
}

// checkSecret сравнивает секрет с bcrypt-хешем за постоянное время
func checkSecret(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}
