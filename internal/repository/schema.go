package repository

import (
	"context"
	"fmt"
	"regexp"
)

// Dialect определяет диалект SQL базы данных
type Dialect int

const (
	// DialectPostgres - PostgreSQL через драйвер pgx
	DialectPostgres Dialect = iota
	// DialectSQLite - SQLite через драйвер modernc.org/sqlite
	DialectSQLite
)

// String возвращает имя диалекта
func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind переводит плейсхолдеры $N в ? для SQLite.
// Запросы пакета используют каждый $N ровно один раз и по порядку.
func (d Dialect) rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// schemaStatements создают таблицы, общие для обоих диалектов. Время хранится в миллисекундах.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key TEXT UNIQUE NOT NULL,
		name TEXT,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		slug TEXT UNIQUE NOT NULL,
		target_url TEXT NOT NULL,
		api_key_id TEXT REFERENCES api_keys(id),
		password_hash TEXT,
		expires_at BIGINT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS link_tags (
		link_id TEXT REFERENCES links(id) ON DELETE CASCADE,
		tag_id TEXT REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (link_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id TEXT PRIMARY KEY,
		link_id TEXT REFERENCES links(id) ON DELETE CASCADE,
		timestamp BIGINT NOT NULL,
		ip TEXT,
		user_agent TEXT,
		referrer TEXT,
		country TEXT,
		city TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS clicks_link_id_timestamp_idx ON clicks (link_id, timestamp)`,
}

// Migrate создаёт схему, если её ещё нет. Повторный вызов безопасен.
func Migrate(ctx context.Context, db Database) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
