package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/database/testutil"
	"github.com/chirp-social/chirp/internal/models"
)

func seedCleanupUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email:    "alice@example.com",
		Password: "hash",
		Name:     "Alice",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRunOnceSweepsExpiredState(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	sessions, err := iauth.NewSessionStore(db, clock)
	require.NoError(t, err)
	user := seedCleanupUser(t, db)
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, user.ID, "expired", now.Add(-2*time.Hour), now.Add(-time.Hour)))
	require.NoError(t, sessions.Save(ctx, user.ID, "active", now, now.Add(time.Hour)))

	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("1"),
		ExpiresAt: now.Add(-time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{
		Key:       "fresh",
		Value:     []byte("1"),
		ExpiresAt: now.Add(time.Minute),
	}).Error)

	cleaner := NewCleaner(db, sessions, WithNow(clock))
	require.NoError(t, cleaner.RunOnce(ctx))

	count, err := sessions.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.ErrorIs(t, sessions.Consume(ctx, "expired"), iauth.ErrSessionNotFound)

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Pluck("key", &keys).Error)
	require.Equal(t, []string{"fresh"}, keys)
}

func TestCleanupCacheEntriesKeepsZeroExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.CacheEntry{Key: "pinned", Value: []byte("v")}).Error)

	removed, err := CleanupCacheEntries(context.Background(), db, now)
	require.NoError(t, err)
	require.Zero(t, removed)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCleanerSchedulesJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	sessions, err := iauth.NewSessionStore(db, nil)
	require.NoError(t, err)

	cleaner := NewCleaner(db, sessions,
		WithSessionSchedule("@every 1h"),
		WithCacheSchedule("@every 1h"),
	)
	require.NoError(t, cleaner.Start())

	stopped := cleaner.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
