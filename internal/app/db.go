package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/tempizhere/linkpulse/internal/repository"
	_ "modernc.org/sqlite"
)

// DefaultSQLitePath - файл базы по умолчанию, если DSN PostgreSQL не задан
const DefaultSQLitePath = "data/linkpulse.db"

// NewDB открывает базу данных и применяет схему.
// Если dsn задан, используется PostgreSQL (pgx), иначе SQLite-файл sqlitePath.
func NewDB(ctx context.Context, dsn, sqlitePath string) (*sql.DB, repository.Dialect, error) {
	var (
		conn    *sql.DB
		dialect repository.Dialect
		err     error
	)
	if dsn != "" {
		dialect = repository.DialectPostgres
		conn, err = sql.Open("pgx", dsn)
	} else {
		dialect = repository.DialectSQLite
		conn, err = openSQLite(sqlitePath)
	}
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, dialect, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	if err := repository.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, dialect, err
	}

	return conn, dialect, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		// Создаём директорию для файла, если она не существует
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	conn, err := sql.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	// SQLite допускает только одного писателя
	conn.SetMaxOpenConns(1)
	return conn, nil
}
