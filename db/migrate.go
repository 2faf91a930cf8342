package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	lockRetryInterval = 500 * time.Millisecond
	lockWaitTimeout   = 2 * time.Minute
)

// Migrations returns the embedded schema files registered with bun.
// Files are named NNNN_comment.tx.up.sql / .tx.down.sql and run in a
// transaction each.
func Migrations() (*migrate.Migrations, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return nil, fmt.Errorf("failed to discover migrations: %w", err)
	}
	return migrations, nil
}

// newMigrator wraps the shared lib/pq pool. The bun.DB must not be closed:
// closing it closes sqlDB.
func newMigrator(sqlDB *sql.DB) (*migrate.Migrator, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	bunDB := bun.NewDB(sqlDB, pgdialect.New())
	return migrate.NewMigrator(bunDB, migrations, migrate.WithMarkAppliedOnSuccess(true)), nil
}

// Migrate applies pending migrations while holding the bun migration lock,
// so concurrent deploys run them once.
func Migrate(ctx context.Context, sqlDB *sql.DB, logger *slog.Logger) error {
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to create migration tables: %w", err)
	}

	return withLock(ctx, migrator, logger, func() error {
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		if group.IsZero() {
			logger.Info("no new migrations to run")
			return nil
		}
		logger.Info("migrations applied", slog.String("group", group.String()))
		return nil
	})
}

// Rollback reverts the last applied migration group.
func Rollback(ctx context.Context, sqlDB *sql.DB, logger *slog.Logger) error {
	migrator, err := newMigrator(sqlDB)
	if err != nil {
		return err
	}
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to create migration tables: %w", err)
	}

	return withLock(ctx, migrator, logger, func() error {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		if group.IsZero() {
			logger.Info("no migration groups to roll back")
			return nil
		}
		logger.Info("migrations rolled back", slog.String("group", group.String()))
		return nil
	})
}

type locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// withLock waits for the migration lock held by another process, runs fn
// and releases the lock even when ctx has been cancelled.
func withLock(ctx context.Context, l locker, logger *slog.Logger, fn func() error) error {
	if err := acquireLock(ctx, l, logger, lockRetryInterval, lockWaitTimeout); err != nil {
		return err
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := l.Unlock(unlockCtx); err != nil {
			logger.Error("failed to release migration lock", slog.Any("error", err))
		}
	}()
	return fn()
}

func acquireLock(ctx context.Context, l locker, logger *slog.Logger, interval, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		err := l.Lock(ctx)
		if err == nil {
			return nil
		}
		if attempt == 1 {
			logger.Info("waiting for migration lock", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire migration lock after %d attempts: %w", attempt, err)
		case <-ticker.C:
		}
	}
}
