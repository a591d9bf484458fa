package app

import (
	"github.com/chirp-social/chirp/internal/auth"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the
// token service. Zero TTLs fall back to the service defaults.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Issuer: c.Issuer,

		AccessSecret:         c.AccessSecret,
		RefreshSecret:        c.RefreshSecret,
		EmailVerifySecret:    c.EmailVerifySecret,
		ForgotPasswordSecret: c.ForgotPasswordSecret,

		AccessTTL:         c.AccessTTL,
		RefreshTTL:        c.RefreshTTL,
		EmailVerifyTTL:    c.EmailVerifyTTL,
		ForgotPasswordTTL: c.ForgotPasswordTTL,
	}
}

// GoogleProviderConfig converts OAuthConfig into the Google provider
// parameters.
func (c OAuthConfig) GoogleProviderConfig() auth.GoogleConfig {
	return auth.GoogleConfig{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
		Timeout:      c.Google.Timeout,
	}
}
