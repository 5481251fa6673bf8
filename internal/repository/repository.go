package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tempizhere/linkpulse/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository . Repository

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("record not found")

// Repository определяет интерфейс хранилища, которым пользуется ядро сервиса.
// Все методы блокирующие.
type Repository interface {
	// FindLinkBySlug возвращает ссылку по короткому идентификатору или ErrNotFound
	FindLinkBySlug(ctx context.Context, slug string) (*models.Link, error)
	// FindLinkByID возвращает ссылку по ID или ErrNotFound
	FindLinkByID(ctx context.Context, id string) (*models.Link, error)
	// InsertAccessEvent сохраняет новое событие доступа
	InsertAccessEvent(ctx context.Context, event *models.AccessEvent) error
	// UpdateAccessEventGeo дописывает страну и город к событию.
	// Возвращает ErrNotFound, если события нет или гео-данные уже записаны.
	UpdateAccessEventGeo(ctx context.Context, eventID string, geo models.GeoInfo) error
	// ListAccessEventsForLink возвращает события ссылки, новые первыми
	ListAccessEventsForLink(ctx context.Context, linkID string) ([]models.AccessEvent, error)
	// FindAPIKey возвращает ключ API по его значению или ErrNotFound
	FindAPIKey(ctx context.Context, key string) (*models.APIKey, error)
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}

// Database определяет интерфейс для работы с базой данных
type Database interface {
	// PingContext проверяет соединение с базой данных
	PingContext(ctx context.Context) error
	// Close закрывает соединение с базой данных
	Close() error
	// ExecContext выполняет SQL-команду без возврата результатов
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// QueryContext выполняет SQL-запрос и возвращает результаты
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	// QueryRowContext выполняет SQL-запрос и возвращает одну строку результата
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
