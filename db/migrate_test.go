package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	sorted := migrations.Sorted()
	require.NotEmpty(t, sorted)
	assert.Equal(t, "0001", sorted[0].Name)
	assert.Equal(t, "init", sorted[0].Comment)
	for _, m := range sorted {
		assert.NotNil(t, m.Up, "migration %s has no up step", m.Name)
		assert.NotNil(t, m.Down, "migration %s has no down step", m.Name)
	}

	body, err := migrationsFS.ReadFile("migrations/0001_init.tx.up.sql")
	require.NoError(t, err)
	schema := string(body)
	for _, table := range []string{"tournaments", "participants", "tournament_matches", "disputes", "player_ratings", "ranking_changes", "challenges"} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE "+table+" ("), "missing table %s", table)
	}
	assert.Contains(t, schema, "disputes_one_open_per_match")
	assert.NotContains(t, schema, "?", "bun treats ? as a query placeholder")
}

type fakeLocker struct {
	mu        sync.Mutex
	failures  int
	locks     int
	unlocks   int
	unlockErr error
}

func (f *fakeLocker) Lock(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	if f.locks <= f.failures {
		return errors.New("migrate: migrations table is already locked")
	}
	return nil
}

func (f *fakeLocker) Unlock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.unlockErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAcquireLockWaitsForOtherProcess(t *testing.T) {
	l := &fakeLocker{failures: 2}
	err := acquireLock(context.Background(), l, quietLogger(), time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, l.locks)
}

func TestAcquireLockGivesUp(t *testing.T) {
	l := &fakeLocker{failures: 1 << 30}
	err := acquireLock(context.Background(), l, quietLogger(), time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already locked")
}

func TestWithLockReleasesLock(t *testing.T) {
	l := &fakeLocker{}
	boom := errors.New("migration failed")
	err := withLock(context.Background(), l, quietLogger(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, l.unlocks)

	// The lock is released even when the caller's context is already gone.
	ctx, cancel := context.WithCancel(context.Background())
	l = &fakeLocker{}
	err = withLock(ctx, l, quietLogger(), func() error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.unlocks)
}

func TestWithLockSkipsWorkWithoutLock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &fakeLocker{failures: 1 << 30}
	ran := false
	err := withLock(ctx, l, quietLogger(), func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.Zero(t, l.unlocks)
}
