package app

import (
	"fmt"
	"strings"

	"github.com/mkarlsen/signupd/pkg/crypto"
)

const generatedSecretBytes = 48

// ApplyRuntimeDefaults fills in secrets that may legitimately be absent in
// development setups. It returns the set of keys that were generated so the
// caller can log them; generated secrets are process-local and rotate on
// every restart, which invalidates outstanding tokens.
func ApplyRuntimeDefaults(cfg *Config) (map[string]struct{}, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]struct{})

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(generatedSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = struct{}{}
	}

	return generated, nil
}
