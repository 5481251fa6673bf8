package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tempizhere/linkpulse/internal/models"
	"go.uber.org/zap"
)

const (
	selectLinkColumns = "SELECT id, slug, target_url, password_hash, expires_at, created_at, updated_at FROM links"

	queryLinkBySlug  = selectLinkColumns + " WHERE slug = $1"
	queryLinkByID    = selectLinkColumns + " WHERE id = $1"
	queryInsertClick = "INSERT INTO clicks (id, link_id, timestamp, ip, user_agent, referrer) VALUES ($1, $2, $3, $4, $5, $6)"
	queryUpdateGeo   = "UPDATE clicks SET country = $1, city = $2 WHERE id = $3 AND country IS NULL AND city IS NULL"
	queryListClicks  = "SELECT id, link_id, timestamp, ip, user_agent, referrer, country, city FROM clicks WHERE link_id = $1 ORDER BY timestamp DESC, id DESC"
	queryAPIKey      = "SELECT id, key, name, created_at FROM api_keys WHERE key = $1"
)

// SQLRepository реализует интерфейс Repository поверх database/sql (PostgreSQL или SQLite)
type SQLRepository struct {
	db      Database
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLRepository создаёт новый экземпляр SQLRepository
func NewSQLRepository(db Database, dialect Dialect, logger *zap.Logger) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// FindLinkBySlug возвращает ссылку по slug
func (r *SQLRepository) FindLinkBySlug(ctx context.Context, slug string) (*models.Link, error) {
	link, err := r.scanLink(r.db.QueryRowContext(ctx, r.dialect.rebind(queryLinkBySlug), slug))
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to find link by slug", zap.String("slug", slug), zap.Error(err))
	}
	return link, err
}

// FindLinkByID возвращает ссылку по ID
func (r *SQLRepository) FindLinkByID(ctx context.Context, id string) (*models.Link, error) {
	link, err := r.scanLink(r.db.QueryRowContext(ctx, r.dialect.rebind(queryLinkByID), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to find link by id", zap.String("link_id", id), zap.Error(err))
	}
	return link, err
}

func (r *SQLRepository) scanLink(row *sql.Row) (*models.Link, error) {
	var (
		link                 models.Link
		secretHash           sql.NullString
		expiresAt            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&link.ID, &link.Slug, &link.TargetURL, &secretHash, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan link: %w", err)
	}
	if secretHash.Valid {
		link.SecretHash = &secretHash.String
	}
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64).UTC()
		link.ExpiresAt = &t
	}
	link.CreatedAt = time.UnixMilli(createdAt).UTC()
	link.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &link, nil
}

// InsertAccessEvent сохраняет событие доступа
func (r *SQLRepository) InsertAccessEvent(ctx context.Context, event *models.AccessEvent) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(queryInsertClick),
		event.ID,
		event.LinkID,
		event.OccurredAt.UnixMilli(),
		nullString(event.SourceAddr),
		nullString(event.UserAgent),
		nullString(event.Referrer),
	)
	if err != nil {
		r.logger.Error("Failed to insert access event", zap.String("link_id", event.LinkID), zap.Error(err))
		return fmt.Errorf("failed to insert access event: %w", err)
	}
	return nil
}

// UpdateAccessEventGeo записывает гео-данные, если они ещё не записаны
func (r *SQLRepository) UpdateAccessEventGeo(ctx context.Context, eventID string, geo models.GeoInfo) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(queryUpdateGeo), nullString(geo.Country), nullString(geo.City), eventID)
	if err != nil {
		return fmt.Errorf("failed to update access event geo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update access event geo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAccessEventsForLink возвращает события ссылки, новые первыми
func (r *SQLRepository) ListAccessEventsForLink(ctx context.Context, linkID string) ([]models.AccessEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(queryListClicks), linkID)
	if err != nil {
		r.logger.Error("Failed to list access events", zap.String("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to list access events: %w", err)
	}
	defer rows.Close()

	events := make([]models.AccessEvent, 0)
	for rows.Next() {
		var (
			e                       models.AccessEvent
			ts                      int64
			ip, userAgent, referrer sql.NullString
			country, city           sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.LinkID, &ts, &ip, &userAgent, &referrer, &country, &city); err != nil {
			return nil, fmt.Errorf("failed to scan access event: %w", err)
		}
		e.OccurredAt = time.UnixMilli(ts).UTC()
		e.SourceAddr = ip.String
		e.UserAgent = userAgent.String
		e.Referrer = referrer.String
		if country.Valid || city.Valid {
			e.Geo = &models.GeoInfo{Country: country.String, City: city.String}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access events: %w", err)
	}
	return events, nil
}

// FindAPIKey возвращает ключ API по значению
func (r *SQLRepository) FindAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	var (
		k         models.APIKey
		name      sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(queryAPIKey), key).Scan(&k.ID, &k.Key, &name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to find api key", zap.Error(err))
		return nil, fmt.Errorf("failed to find api key: %w", err)
	}
	k.Name = name.String
	k.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &k, nil
}

// Ping проверяет соединение с базой данных
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с базой данных
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
