package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrator applies the embedded goose migrations through a pgx pool.
type Migrator struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewMigrator(pool *pgxpool.Pool, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{pool: pool, log: log}
}

// Up applies pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return m.withDB(func(db *sql.DB) error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		m.log.Info("applying migrations")
		if err := goose.UpContext(runCtx, db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		m.log.Info("migrations applied")
		return nil
	})
}

// Status logs applied and pending migrations.
func (m *Migrator) Status(ctx context.Context) error {
	return m.withDB(func(db *sql.DB) error {
		if err := goose.StatusContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Down rolls back the latest migration, or down to target when target > 0.
func (m *Migrator) Down(ctx context.Context, target int64) error {
	return m.withDB(func(db *sql.DB) error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		if target > 0 {
			m.log.Info("rolling back migrations", "target", target)
			if err := goose.DownToContext(runCtx, db, migrationsDir, target); err != nil {
				return fmt.Errorf("rollback to version %d: %w", target, err)
			}
			return nil
		}

		m.log.Info("rolling back latest migration")
		if err := goose.DownContext(runCtx, db, migrationsDir); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) withDB(fn func(*sql.DB) error) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: m.log})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	// the pool owns the connections, so the wrapper is not closed here
	return fn(stdlib.OpenDBFromPool(m.pool))
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), "component", "goose")
}
