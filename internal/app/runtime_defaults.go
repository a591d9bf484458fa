package app

import (
	"fmt"
	"strings"

	"github.com/chirp-social/chirp/pkg/crypto"
)

const tokenSecretBytes = 48

// ApplyRuntimeDefaults ensures the four token signing secrets are populated
// even when no configuration file is supplied. Generated secrets do not
// survive a restart, so issued tokens die with the process; production
// deployments configure them explicitly. The returned map describes which
// keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	secrets := []struct {
		key   string
		value *string
	}{
		{"auth.access_token_secret", &cfg.Auth.AccessSecret},
		{"auth.refresh_token_secret", &cfg.Auth.RefreshSecret},
		{"auth.email_verify_token_secret", &cfg.Auth.EmailVerifySecret},
		{"auth.forgot_password_token_secret", &cfg.Auth.ForgotPasswordSecret},
	}

	for _, secret := range secrets {
		if strings.TrimSpace(*secret.value) != "" {
			continue
		}
		value, err := crypto.GenerateToken(tokenSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", secret.key, err)
		}
		*secret.value = value
		generated[secret.key] = true
	}

	return generated, nil
}
