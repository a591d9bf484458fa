package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultGoogleIssuer is Google's OpenID Connect issuer.
const DefaultGoogleIssuer = "https://accounts.google.com"

const defaultOAuthTimeout = 10 * time.Second

// ErrOAuthExchange marks transport-level failures talking to the identity
// provider. Unlike a verification rejection, these are retryable.
var ErrOAuthExchange = errors.New("oauth: provider exchange failed")

// GoogleConfig configures the Google OAuth provider.
type GoogleConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// GoogleProfile is the subset of the provider's user info the auth core needs.
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleFetcher exchanges an authorization code for the user's profile.
// Satisfied by *GoogleProvider; substitutable in tests.
type GoogleFetcher interface {
	Fetch(ctx context.Context, code string) (*GoogleProfile, error)
}

// GoogleProvider performs the authorization-code exchange and user-info fetch
// against Google's OIDC endpoints.
type GoogleProvider struct {
	provider *oidc.Provider
	oauth    *oauth2.Config
	timeout  time.Duration
	client   *http.Client
}

// NewGoogleProvider runs OIDC discovery for the configured issuer and builds
// the exchange config. Discovery failures surface at startup.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("google provider: redirect url is required")
	}

	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultGoogleIssuer
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOAuthTimeout
	}

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoveryCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google provider: discovery failed: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &GoogleProvider{
		provider: provider,
		oauth:    oauthConfig,
		timeout:  timeout,
		client:   cfg.HTTPClient,
	}, nil
}

// AuthCodeURL builds the provider consent URL for the given state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Fetch exchanges the authorization code and retrieves the user's profile
// from the user-info endpoint. All network calls share one bounded timeout.
func (p *GoogleProvider) Fetch(ctx context.Context, code string) (*GoogleProfile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty authorization code", ErrOAuthExchange)
	}

	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("%w: user info: %v", ErrOAuthExchange, err)
	}

	var profile GoogleProfile
	if err := userInfo.Claims(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrOAuthExchange, err)
	}
	if profile.Subject == "" {
		profile.Subject = userInfo.Subject
	}
	if profile.Email == "" {
		profile.Email = userInfo.Email
	}

	return &profile, nil
}
