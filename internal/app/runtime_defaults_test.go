package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsGeneratesMissingSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.RefreshSecret = "configured"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	require.True(t, generated["auth.access_token_secret"])
	require.True(t, generated["auth.email_verify_token_secret"])
	require.True(t, generated["auth.forgot_password_token_secret"])
	require.False(t, generated["auth.refresh_token_secret"])

	require.NotEmpty(t, cfg.Auth.AccessSecret)
	require.Equal(t, "configured", cfg.Auth.RefreshSecret)

	// Secrets must be distinct; a shared secret would let one token kind
	// be replayed as another.
	require.NotEqual(t, cfg.Auth.AccessSecret, cfg.Auth.EmailVerifySecret)
	require.NotEqual(t, cfg.Auth.AccessSecret, cfg.Auth.ForgotPasswordSecret)
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.Error(t, err)
}
