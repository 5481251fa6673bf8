package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
)

// RequestMeta содержит данные запроса, сохраняемые в событии доступа
type RequestMeta struct {
	SourceAddr string
	UserAgent  string
	Referrer   string
}

// Recorder создаёт события доступа и дописывает к ним гео-данные
type Recorder struct {
	repo  repository.Repository
	now   func() time.Time
	newID func() string
}

// NewRecorder создаёт новый экземпляр Recorder
func NewRecorder(repo repository.Repository) *Recorder {
	return &Recorder{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record создаёт одно событие доступа для ссылки linkID
func (r *Recorder) Record(ctx context.Context, linkID string, meta RequestMeta) (*models.AccessEvent, error) {
	event := &models.AccessEvent{
		ID:         r.newID(),
		LinkID:     linkID,
		OccurredAt: r.now().UTC(),
		SourceAddr: meta.SourceAddr,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}
	if err := r.repo.InsertAccessEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record access: %w", err)
	}
	return event, nil
}

// UpdateGeo записывает страну и город события. Остальные поля не меняются.
func (r *Recorder) UpdateGeo(ctx context.Context, eventID string, geo models.GeoInfo) error {
	return r.repo.UpdateAccessEventGeo(ctx, eventID, geo)
}
