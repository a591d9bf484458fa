package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/crypto"
	apperrors "github.com/chirp-social/chirp/pkg/errors"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/metrics"
)

// Notifier delivers account lifecycle messages. Satisfied by *mail.Notifier.
type Notifier interface {
	SendVerifyEmail(ctx context.Context, email, token string) error
	SendResetPassword(ctx context.Context, email, token string) error
}

// TokenPair is the access/refresh credential set returned by every
// session-establishing operation.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RegisterInput carries the fields accepted at account creation.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	DateOfBirth time.Time
}

// OAuthResult is what the federated login flow hands back to the redirect
// handler. NewUser distinguishes just-in-time provisioning from a returning
// account, and Verify is the status snapshot baked into the issued tokens.
type OAuthResult struct {
	Pair    *TokenPair
	NewUser bool
	Verify  models.VerifyStatus
}

// Service orchestrates registration, login, federation, token rotation and
// the email-bound token lifecycles.
type Service struct {
	db       *gorm.DB
	tokens   *TokenService
	creds    *CredentialStore
	sessions *SessionStore
	google   GoogleFetcher
	notify   Notifier
	log      *zap.Logger
}

// NewService wires the auth core together. google and notify may be nil when
// the corresponding flows are disabled.
func NewService(db *gorm.DB, tokens *TokenService, creds *CredentialStore, sessions *SessionStore, google GoogleFetcher, notify Notifier) (*Service, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	if creds == nil {
		return nil, errors.New("auth service: credential store is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session store is required")
	}

	return &Service{
		db:       db,
		tokens:   tokens,
		creds:    creds,
		sessions: sessions,
		google:   google,
		notify:   notify,
		log:      logger.WithModule("auth"),
	}, nil
}

// Register creates an unverified account, issues its first session and sends
// the verification email.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, *TokenPair, error) {
	exists, err := s.creds.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if exists {
		return nil, nil, apperrors.ErrEmailAlreadyExists
	}

	// The id is minted before the insert so the verification token can be
	// bound to it within the same write.
	userID := uuid.NewString()

	verifyToken, _, err := s.tokens.Sign(TokenKindEmailVerify, userID, models.VerifyUnverified)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user := &models.User{
		BaseModel:        models.BaseModel{ID: userID},
		Email:            normaliseEmail(input.Email),
		Password:         hash,
		Name:             input.Name,
		DateOfBirth:      input.DateOfBirth,
		Verify:           models.VerifyUnverified,
		EmailVerifyToken: verifyToken,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("create user: %w", err))
	}

	pair, err := s.issueSession(ctx, userID, models.VerifyUnverified)
	if err != nil {
		return nil, nil, err
	}

	s.sendVerifyEmail(ctx, user.Email, verifyToken)

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return user, pair, nil
}

// Login verifies the credentials and establishes a session.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.creds.Verify(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, nil, apperrors.ErrEmailOrPasswordIncorrect
	}
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	pair, err := s.issueSession(ctx, user.ID, user.Verify)
	if err != nil {
		return nil, nil, err
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return user, pair, nil
}

// OAuthGoogle exchanges the authorization code, then logs the user in or
// provisions an account on the fly. Accounts provisioned here get a random
// password; the user can claim one later through the reset flow.
func (s *Service) OAuthGoogle(ctx context.Context, code string) (*OAuthResult, error) {
	if s.google == nil {
		return nil, apperrors.ErrOAuthExchangeFailed
	}

	profile, err := s.google.Fetch(ctx, code)
	if errors.Is(err, ErrOAuthExchange) {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		return nil, apperrors.ErrOAuthExchangeFailed.WithInternal(err)
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if !profile.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("oauth", "failure").Inc()
		return nil, apperrors.ErrGoogleEmailNotVerified
	}

	user, err := s.creds.FindByEmail(ctx, profile.Email)
	if err == nil {
		pair, issueErr := s.issueSession(ctx, user.ID, user.Verify)
		if issueErr != nil {
			return nil, issueErr
		}
		metrics.AuthAttempts.WithLabelValues("oauth", "success").Inc()
		return &OAuthResult{Pair: pair, NewUser: false, Verify: user.Verify}, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user, err = s.provisionOAuthUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueSession(ctx, user.ID, user.Verify)
	if err != nil {
		return nil, err
	}

	s.sendVerifyEmail(ctx, user.Email, user.EmailVerifyToken)

	metrics.AuthAttempts.WithLabelValues("oauth", "success").Inc()
	return &OAuthResult{Pair: pair, NewUser: true, Verify: user.Verify}, nil
}

// Refresh rotates a refresh token: the presented token is verified, consumed
// and replaced by a fresh pair in one pass. The verify status carried by the
// old claims is reused rather than re-read from the user record, so a status
// change only propagates once a token signed after it is presented.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenKindRefresh)
	if errors.Is(err, ErrTokenExpired) {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, apperrors.ErrTokenExpired
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, apperrors.ErrRefreshTokenInvalid
	}

	// Single-use enforcement. The consume is the serialisation point for
	// concurrent rotation attempts on the same token.
	if err := s.sessions.Consume(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
			return nil, apperrors.ErrUsedRefreshTokenOrNotExist
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if _, err := s.creds.FindByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	// The rotated refresh token keeps the old token's expiry, so a session
	// cannot be extended indefinitely by rotating before each deadline.
	pair, err := s.issueSessionWithExpiry(ctx, claims.UserID, claims.Verify, claims.ExpiresAt.Time)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("refresh", "success").Inc()
	return pair, nil
}

// Logout revokes the presented refresh token. Revoking a token that is
// already gone succeeds; logout is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokens.Verify(refreshToken, TokenKindRefresh); err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.ErrTokenExpired
		}
		return apperrors.ErrRefreshTokenInvalid
	}

	if err := s.sessions.Remove(ctx, refreshToken); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

// VerifyEmailToken validates a signed verification token and completes the
// verification flow for the user it is bound to.
func (s *Service) VerifyEmailToken(ctx context.Context, token string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(token, TokenKindEmailVerify)
	if errors.Is(err, ErrTokenExpired) {
		return nil, apperrors.ErrTokenExpired
	}
	if err != nil {
		return nil, apperrors.ErrEmailVerifyTokenInvalid
	}
	return s.VerifyEmail(ctx, claims.UserID)
}

// VerifyEmail consumes the stored verification token for the user and flips
// their status. A user whose stored token is already empty has verified
// before; the signed token they presented is stale.
func (s *Service) VerifyEmail(ctx context.Context, userID string) (*TokenPair, error) {
	user, err := s.creds.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if user.EmailVerifyToken == "" {
		return nil, apperrors.ErrEmailAlreadyVerified
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"email_verify_token": "",
			"verify":             models.VerifyVerified,
		}).Error
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("verify email: %w", err))
	}

	return s.issueSession(ctx, userID, models.VerifyVerified)
}

// ResendVerifyEmail issues a fresh verification token, replacing any pending
// one, and mails it.
func (s *Service) ResendVerifyEmail(ctx context.Context, userID string) error {
	user, err := s.creds.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if user.IsVerified() {
		return apperrors.ErrEmailAlreadyVerified
	}

	token, _, err := s.tokens.Sign(TokenKindEmailVerify, userID, user.Verify)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("email_verify_token", token).Error
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(fmt.Errorf("store verify token: %w", err))
	}

	s.sendVerifyEmail(ctx, user.Email, token)
	return nil
}

// ForgotPassword signs a reset token for the account with the given email,
// stores it and mails the reset link. Requesting again overwrites the pending
// token, so only the latest link works.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	token, _, err := s.tokens.Sign(TokenKindForgotPassword, user.ID, user.Verify)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("forgot_password_token", token).Error
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(fmt.Errorf("store reset token: %w", err))
	}

	if s.notify != nil {
		if err := s.notify.SendResetPassword(ctx, user.Email, token); err != nil {
			s.log.Warn("failed to send reset password email",
				zap.String("email", user.Email),
				zap.Error(err),
			)
		}
	}
	return nil
}

// VerifyForgotPasswordToken checks both the signature and the stored copy of
// a reset token. A signed token that no longer matches the stored one has
// been superseded or consumed.
func (s *Service) VerifyForgotPasswordToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Verify(token, TokenKindForgotPassword)
	if errors.Is(err, ErrTokenExpired) {
		return nil, apperrors.ErrTokenExpired
	}
	if err != nil {
		return nil, apperrors.ErrForgotPasswordTokenInvalid
	}

	user, err := s.creds.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if user.ForgotPasswordToken == "" || user.ForgotPasswordToken != token {
		return nil, apperrors.ErrForgotPasswordTokenInvalid
	}

	return claims, nil
}

// ResetPassword completes the forgot-password flow: the token is re-checked,
// the hash replaced and the pending token cleared. No session is issued; the
// user logs in with the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.VerifyForgotPasswordToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.creds.UpdatePassword(ctx, claims.UserID, newPassword); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

// ChangePassword replaces the hash for an authenticated user after checking
// the old password. Existing sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.creds.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if !crypto.VerifyPassword(user.Password, oldPassword) {
		return apperrors.ErrEmailOrPasswordIncorrect
	}

	if err := s.creds.UpdatePassword(ctx, userID, newPassword); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

// VerifyAccess validates a bearer token and returns its claims. Used by the
// HTTP middleware and by the realtime transport for per-message checks.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	claims, err := s.tokens.Verify(token, TokenKindAccess)
	if errors.Is(err, ErrTokenExpired) {
		return nil, apperrors.ErrTokenExpired
	}
	if err != nil {
		return nil, apperrors.ErrAccessTokenInvalid
	}
	return claims, nil
}

func (s *Service) issueSession(ctx context.Context, userID string, verify models.VerifyStatus) (*TokenPair, error) {
	refreshToken, refreshExpiry, err := s.tokens.Sign(TokenKindRefresh, userID, verify)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return s.finishSession(ctx, userID, verify, refreshToken, refreshExpiry)
}

func (s *Service) issueSessionWithExpiry(ctx context.Context, userID string, verify models.VerifyStatus, refreshExpiry time.Time) (*TokenPair, error) {
	refreshToken, err := s.tokens.SignWithExpiry(TokenKindRefresh, userID, verify, refreshExpiry)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return s.finishSession(ctx, userID, verify, refreshToken, refreshExpiry)
}

func (s *Service) finishSession(ctx context.Context, userID string, verify models.VerifyStatus, refreshToken string, refreshExpiry time.Time) (*TokenPair, error) {
	accessToken, accessExpiry, err := s.tokens.Sign(TokenKindAccess, userID, verify)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.sessions.Save(ctx, userID, refreshToken, s.tokens.now(), refreshExpiry); err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (s *Service) provisionOAuthUser(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	userID := uuid.NewString()

	verifyToken, _, err := s.tokens.Sign(TokenKindEmailVerify, userID, models.VerifyUnverified)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	password, err := crypto.GenerateRandomPassword()
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	rawProfile, err := json.Marshal(profile)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user := &models.User{
		BaseModel:        models.BaseModel{ID: userID},
		Email:            normaliseEmail(profile.Email),
		Password:         hash,
		Name:             profile.Name,
		Avatar:           profile.Picture,
		Verify:           models.VerifyUnverified,
		EmailVerifyToken: verifyToken,
		OAuthProfile:     datatypes.JSON(rawProfile),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("provision oauth user: %w", err))
	}
	return user, nil
}

func (s *Service) sendVerifyEmail(ctx context.Context, email, token string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.SendVerifyEmail(ctx, email, token); err != nil {
		s.log.Warn("failed to send verification email",
			zap.String("email", email),
			zap.Error(err),
		)
	}
}
