package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/crypto"
)

// ErrInvalidCredentials is returned when no user matches the email/password
// pair. Lookup misses and password mismatches are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrUserNotFound indicates the referenced user record does not exist.
var ErrUserNotFound = errors.New("auth: user not found")

// CredentialStore verifies presented credentials and owns user-record lookups
// for the auth core.
type CredentialStore struct {
	db *gorm.DB
}

// NewCredentialStore wraps the database handle.
func NewCredentialStore(db *gorm.DB) (*CredentialStore, error) {
	if db == nil {
		return nil, errors.New("credential store: db is required")
	}
	return &CredentialStore{db: db}, nil
}

// Verify looks up the user by email and compares the bcrypt hash.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (*models.User, error) {
	email = normaliseEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// EmailExists reports whether a user record with the email already exists.
func (s *CredentialStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", normaliseEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("credential store: count email: %w", err)
	}
	return count > 0, nil
}

// UsernameAvailable reports whether the username is free to claim.
func (s *CredentialStore) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", strings.TrimSpace(username)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("credential store: count username: %w", err)
	}
	return count == 0, nil
}

// FindByID fetches a user by primary key.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential store: find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmail fetches a user by email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential store: find user by email: %w", err)
	}
	return &user, nil
}

// FindByUsername fetches a user by their public username.
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "username = ?", strings.TrimSpace(username)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential store: find user by username: %w", err)
	}
	return &user, nil
}

// UpdatePassword replaces the stored hash and clears any pending reset token.
func (s *CredentialStore) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("credential store: hash password: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password":              hash,
			"forgot_password_token": "",
		})
	if result.Error != nil {
		return fmt.Errorf("credential store: update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
