package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/pkg/metrics"
)

// TokenKind discriminates the four token families. Each kind is signed with
// its own secret so a leaked key for one kind cannot be replayed as another.
type TokenKind string

const (
	TokenKindAccess         TokenKind = "access_token"
	TokenKindRefresh        TokenKind = "refresh_token"
	TokenKindEmailVerify    TokenKind = "email_verify_token"
	TokenKindForgotPassword TokenKind = "forgot_password_token"
)

// Default token lifetimes, overridable through configuration.
const (
	DefaultAccessTokenTTL         = 15 * time.Minute
	DefaultRefreshTokenTTL        = 30 * 24 * time.Hour
	DefaultEmailVerifyTokenTTL    = 7 * 24 * time.Hour
	DefaultForgotPasswordTokenTTL = 15 * time.Minute
)

var (
	// ErrTokenExpired marks a structurally valid token whose expiry passed.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenInvalid covers bad signatures, malformed tokens and kind mismatches.
	ErrTokenInvalid = errors.New("token: invalid")
)

// Claims is the signed payload embedded in every issued token.
type Claims struct {
	UserID string              `json:"user_id"`
	Kind   TokenKind           `json:"type"`
	Verify models.VerifyStatus `json:"verify"`
	jwt.RegisteredClaims
}

// TokenConfig bundles the secrets and lifetimes for all four token kinds.
// Every secret is required; a missing one is a startup error, never a
// per-call failure.
type TokenConfig struct {
	Issuer string

	AccessSecret         string
	RefreshSecret        string
	EmailVerifySecret    string
	ForgotPasswordSecret string

	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	EmailVerifyTTL    time.Duration
	ForgotPasswordTTL time.Duration

	Clock func() time.Time
}

// TokenService signs and verifies the platform's JWTs.
type TokenService struct {
	issuer  string
	secrets map[TokenKind][]byte
	ttls    map[TokenKind]time.Duration
	now     func() time.Time
}

// NewTokenService constructs a TokenService, validating that all four signing
// secrets are present.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	secrets := map[TokenKind]string{
		TokenKindAccess:         cfg.AccessSecret,
		TokenKindRefresh:        cfg.RefreshSecret,
		TokenKindEmailVerify:    cfg.EmailVerifySecret,
		TokenKindForgotPassword: cfg.ForgotPasswordSecret,
	}

	keys := make(map[TokenKind][]byte, len(secrets))
	for kind, secret := range secrets {
		if secret == "" {
			return nil, fmt.Errorf("token service: %s secret must be provided", kind)
		}
		keys[kind] = []byte(secret)
	}

	ttls := map[TokenKind]time.Duration{
		TokenKindAccess:         orDefault(cfg.AccessTTL, DefaultAccessTokenTTL),
		TokenKindRefresh:        orDefault(cfg.RefreshTTL, DefaultRefreshTokenTTL),
		TokenKindEmailVerify:    orDefault(cfg.EmailVerifyTTL, DefaultEmailVerifyTokenTTL),
		TokenKindForgotPassword: orDefault(cfg.ForgotPasswordTTL, DefaultForgotPasswordTokenTTL),
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		issuer:  cfg.Issuer,
		secrets: keys,
		ttls:    ttls,
		now:     now,
	}, nil
}

// Sign issues a token of the given kind expiring after the kind's configured TTL.
func (s *TokenService) Sign(kind TokenKind, userID string, verify models.VerifyStatus) (string, time.Time, error) {
	expiresAt := s.now().Add(s.ttls[kind])
	token, err := s.SignWithExpiry(kind, userID, verify, expiresAt)
	return token, expiresAt, err
}

// SignWithExpiry issues a token with an explicit expiry. Rotation uses this to
// carry the old refresh token's remaining window onto its replacement.
func (s *TokenService) SignWithExpiry(kind TokenKind, userID string, verify models.VerifyStatus, expiresAt time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("token service: user id is required")
	}
	if _, ok := s.secrets[kind]; !ok {
		return "", fmt.Errorf("token service: unknown token kind %q", kind)
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		Kind:   kind,
		Verify: verify,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secrets[kind])
	if err != nil {
		return "", fmt.Errorf("token service: sign %s: %w", kind, err)
	}

	metrics.TokensIssued.WithLabelValues(string(kind)).Inc()

	return signed, nil
}

// Verify parses and validates a token against the secret for the expected
// kind. Expiry and signature failures are reported distinctly so callers can
// surface "token expired" separately from "token invalid".
func (s *TokenService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	secret, ok := s.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("token service: unknown token kind %q", kind)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	// A token signed for another kind with a coincidentally shared secret
	// must still be rejected.
	if claims.Kind != kind {
		return nil, ErrTokenInvalid
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}

	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
