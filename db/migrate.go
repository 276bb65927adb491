package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect selects the migration set and the goose dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) goose() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("db: unknown dialect %q", d)
	}
}

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseStatusContext is a seam for testing goose.StatusContext.
var gooseStatusContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.StatusContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations for dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	return withGoose(dialect, func() error {
		if err := gooseUpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("db: migrate %s: %w", dialect, err)
		}
		return nil
	})
}

// MigrationStatus prints the applied state of every migration through the
// goose logger.
func MigrationStatus(ctx context.Context, db *sql.DB, dialect Dialect) error {
	return withGoose(dialect, func() error {
		if err := gooseStatusContext(ctx, db, "."); err != nil {
			return fmt.Errorf("db: migration status %s: %w", dialect, err)
		}
		return nil
	})
}

// SetLogger routes goose output through l.
func SetLogger(l goose.Logger) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetLogger(l)
}

func withGoose(dialect Dialect, fn func() error) error {
	name, err := dialect.goose()
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("db: migrations for %s: %w", dialect, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("db: goose dialect: %w", err)
	}
	return fn()
}
