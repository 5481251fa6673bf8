package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tempizhere/linkpulse/internal/models"
)

// MemoryRepository реализует интерфейс Repository с использованием map
type MemoryRepository struct {
	mutex   sync.RWMutex
	links   map[string]models.Link // id -> link
	slugs   map[string]string      // slug -> id
	events  map[string]*models.AccessEvent
	apiKeys map[string]models.APIKey
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		links:   make(map[string]models.Link),
		slugs:   make(map[string]string),
		events:  make(map[string]*models.AccessEvent),
		apiKeys: make(map[string]models.APIKey),
	}
}

// AddLink добавляет или заменяет ссылку
func (r *MemoryRepository) AddLink(link models.Link) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if old, ok := r.links[link.ID]; ok {
		delete(r.slugs, old.Slug)
	}
	r.links[link.ID] = link
	r.slugs[link.Slug] = link.ID
}

// AddAPIKey регистрирует ключ API
func (r *MemoryRepository) AddAPIKey(key models.APIKey) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.apiKeys[key.Key] = key
}

// FindLinkBySlug возвращает ссылку по slug
func (r *MemoryRepository) FindLinkBySlug(_ context.Context, slug string) (*models.Link, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	id, ok := r.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	link := r.links[id]
	return &link, nil
}

// FindLinkByID возвращает ссылку по ID
func (r *MemoryRepository) FindLinkByID(_ context.Context, id string) (*models.Link, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	link, ok := r.links[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &link, nil
}

// InsertAccessEvent сохраняет копию события
func (r *MemoryRepository) InsertAccessEvent(_ context.Context, event *models.AccessEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	stored := *event
	if event.Geo != nil {
		geo := *event.Geo
		stored.Geo = &geo
	}
	r.events[event.ID] = &stored
	return nil
}

// UpdateAccessEventGeo записывает гео-данные, если они ещё не записаны
func (r *MemoryRepository) UpdateAccessEventGeo(_ context.Context, eventID string, geo models.GeoInfo) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	event, ok := r.events[eventID]
	if !ok || event.Geo != nil {
		return ErrNotFound
	}
	event.Geo = &geo
	return nil
}

// ListAccessEventsForLink возвращает копии событий ссылки, новые первыми
func (r *MemoryRepository) ListAccessEventsForLink(_ context.Context, linkID string) ([]models.AccessEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	events := make([]models.AccessEvent, 0)
	for _, e := range r.events {
		if e.LinkID != linkID {
			continue
		}
		copied := *e
		if e.Geo != nil {
			geo := *e.Geo
			copied.Geo = &geo
		}
		events = append(events, copied)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	return events, nil
}

// FindAPIKey возвращает ключ API
func (r *MemoryRepository) FindAPIKey(_ context.Context, key string) (*models.APIKey, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	k, ok := r.apiKeys[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &k, nil
}

// Ping всегда успешен для хранилища в памяти
func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Clear очищает хранилище
func (r *MemoryRepository) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.links = make(map[string]models.Link)
	r.slugs = make(map[string]string)
	r.events = make(map[string]*models.AccessEvent)
	r.apiKeys = make(map[string]models.APIKey)
}
