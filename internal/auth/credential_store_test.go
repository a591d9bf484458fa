package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/database/testutil"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/crypto"
)

func newTestCredentialStore(t *testing.T) (*CredentialStore, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store, err := NewCredentialStore(db)
	require.NoError(t, err)
	return store, db
}

func seedUserWithPassword(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Password: hash,
		Name:     "Test User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCredentialStoreVerify(t *testing.T) {
	store, db := newTestCredentialStore(t)
	seeded := seedUserWithPassword(t, db, "alice@example.com", "correct horse")
	ctx := context.Background()

	user, err := store.Verify(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)

	// Email lookup is case-insensitive.
	user, err = store.Verify(ctx, "  Alice@Example.COM ", "correct horse")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)
}

func TestCredentialStoreVerifyRejections(t *testing.T) {
	store, db := newTestCredentialStore(t)
	seedUserWithPassword(t, db, "alice@example.com", "correct horse")
	ctx := context.Background()

	// Wrong password and unknown email collapse into the same error.
	_, err := store.Verify(ctx, "alice@example.com", "battery staple")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Verify(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Verify(ctx, "", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Verify(ctx, "alice@example.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCredentialStoreEmailExists(t *testing.T) {
	store, db := newTestCredentialStore(t)
	seedUserWithPassword(t, db, "alice@example.com", "correct horse")
	ctx := context.Background()

	exists, err := store.EmailExists(ctx, "Alice@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCredentialStoreUsernameAvailable(t *testing.T) {
	store, db := newTestCredentialStore(t)
	user := seedUserWithPassword(t, db, "alice@example.com", "correct horse")
	username := "alice_2024"
	require.NoError(t, db.Model(user).Update("username", &username).Error)
	ctx := context.Background()

	available, err := store.UsernameAvailable(ctx, "alice_2024")
	require.NoError(t, err)
	require.False(t, available)

	available, err = store.UsernameAvailable(ctx, "someone_else")
	require.NoError(t, err)
	require.True(t, available)
}

func TestCredentialStoreFindByID(t *testing.T) {
	store, db := newTestCredentialStore(t)
	seeded := seedUserWithPassword(t, db, "alice@example.com", "correct horse")
	ctx := context.Background()

	user, err := store.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)

	_, err = store.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCredentialStoreUpdatePassword(t *testing.T) {
	store, db := newTestCredentialStore(t)
	seeded := seedUserWithPassword(t, db, "alice@example.com", "old password")
	require.NoError(t, db.Model(seeded).Update("forgot_password_token", "pending-reset").Error)
	ctx := context.Background()

	require.NoError(t, store.UpdatePassword(ctx, seeded.ID, "new password"))

	// Old credentials stop working and the pending reset token is cleared.
	_, err := store.Verify(ctx, "alice@example.com", "old password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := store.Verify(ctx, "alice@example.com", "new password")
	require.NoError(t, err)
	require.Empty(t, user.ForgotPasswordToken)

	require.ErrorIs(t, store.UpdatePassword(ctx, "00000000-0000-0000-0000-000000000000", "x"), ErrUserNotFound)
}
