package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/database/testutil"
	"github.com/chirp-social/chirp/internal/models"
)

func newTestSessionStore(t *testing.T, clock *testClock) (*SessionStore, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store, err := NewSessionStore(db, clock.Now)
	require.NoError(t, err)
	return store, db
}

func seedTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:    email,
		Password: "$2a$10$not.a.real.hash.but.good.enough.for.fk",
		Name:     "Test User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSessionStoreSaveAndConsume(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, db := newTestSessionStore(t, clock)
	user := seedTestUser(t, db, "alice@example.com")
	ctx := context.Background()

	err := store.Save(ctx, user.ID, "refresh-1", clock.Now(), clock.Now().Add(time.Hour))
	require.NoError(t, err)

	count, err := store.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.NoError(t, store.Consume(ctx, "refresh-1"))

	count, err = store.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSessionStoreConsumeIsSingleUse(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, db := newTestSessionStore(t, clock)
	user := seedTestUser(t, db, "bob@example.com")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, user.ID, "refresh-1", clock.Now(), clock.Now().Add(time.Hour)))

	// The first consume wins; every later attempt with the same token sees
	// an absent record.
	require.NoError(t, store.Consume(ctx, "refresh-1"))
	require.ErrorIs(t, store.Consume(ctx, "refresh-1"), ErrSessionNotFound)
	require.ErrorIs(t, store.Consume(ctx, "refresh-1"), ErrSessionNotFound)
}

func TestSessionStoreConsumeUnknownToken(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, _ := newTestSessionStore(t, clock)

	require.ErrorIs(t, store.Consume(context.Background(), "never-issued"), ErrSessionNotFound)
}

func TestSessionStoreRemoveIsIdempotent(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, db := newTestSessionStore(t, clock)
	user := seedTestUser(t, db, "carol@example.com")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, user.ID, "refresh-1", clock.Now(), clock.Now().Add(time.Hour)))

	require.NoError(t, store.Remove(ctx, "refresh-1"))
	require.NoError(t, store.Remove(ctx, "refresh-1"))
	require.NoError(t, store.Remove(ctx, "never-issued"))
}

func TestSessionStoreDeleteExpired(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, db := newTestSessionStore(t, clock)
	user := seedTestUser(t, db, "dave@example.com")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, user.ID, "short", clock.Now(), clock.Now().Add(10*time.Minute)))
	require.NoError(t, store.Save(ctx, user.ID, "long", clock.Now(), clock.Now().Add(48*time.Hour)))

	clock.Advance(time.Hour)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	require.ErrorIs(t, store.Consume(ctx, "short"), ErrSessionNotFound)
	require.NoError(t, store.Consume(ctx, "long"))
}

func TestSessionStoreCountForUserIsolatesUsers(t *testing.T) {
	clock := &testClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store, db := newTestSessionStore(t, clock)
	alice := seedTestUser(t, db, "alice@example.com")
	bob := seedTestUser(t, db, "bob@example.com")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, alice.ID, "a-1", clock.Now(), clock.Now().Add(time.Hour)))
	require.NoError(t, store.Save(ctx, alice.ID, "a-2", clock.Now(), clock.Now().Add(time.Hour)))
	require.NoError(t, store.Save(ctx, bob.ID, "b-1", clock.Now(), clock.Now().Add(time.Hour)))

	count, err := store.CountForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = store.CountForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
