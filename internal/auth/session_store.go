package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/metrics"
)

// ErrSessionNotFound signals that no refresh-token record matches: the token
// was already consumed, revoked, swept after expiry, or never existed. Callers
// surface all of these as the same user-facing error.
var ErrSessionNotFound = errors.New("session: not found")

// SessionStore persists refresh-token records and enforces their single-use
// property.
type SessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionStore wraps the database handle.
func NewSessionStore(db *gorm.DB, clock func() time.Time) (*SessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: db is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{db: db, now: clock}, nil
}

// Save inserts a refresh-token record. Tokens are cryptographically unique so
// insert conflicts are not expected.
func (s *SessionStore) Save(ctx context.Context, userID, token string, issuedAt, expiresAt time.Time) error {
	record := &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("session store: save refresh token: %w", err)
	}

	metrics.ActiveSessions.Inc()
	return nil
}

// Consume atomically deletes the record for the given token. The single
// DELETE statement is the serialisation point for concurrent rotation
// attempts: the first caller to delete wins, any racing caller observes an
// absent record and receives ErrSessionNotFound.
func (s *SessionStore) Consume(ctx context.Context, token string) error {
	result := s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("session store: consume refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Dec()
	return nil
}

// Remove deletes the record if present. Unlike Consume, absence is not an
// error; logout must tolerate double-submits from flaky clients.
func (s *SessionStore) Remove(ctx context.Context, token string) error {
	result := s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("session store: remove refresh token: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// CountForUser returns the number of live records owned by a user.
func (s *SessionStore) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("session store: count for user: %w", err)
	}
	return count, nil
}

// DeleteExpired sweeps records whose expiry has passed, so a Consume on an
// expired token naturally reports ErrSessionNotFound.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("session store: delete expired: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}
