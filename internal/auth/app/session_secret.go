package app

import (
	"log/slog"
	"time"

	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/jwtx"
)

// clockSkew is the leeway allowed on token exp/nbf checks. The session row's
// expires_at remains the authoritative cutoff.
const clockSkew = 30 * time.Second

// InitSessionCodec builds the token codec from the configured secret.
//
// Secret modes:
//   - configured: tokens survive restarts and may be validated by any replica
//     sharing the secret.
//   - ephemeral: a random secret is generated on startup. Every outstanding
//     session stops validating when the process restarts.
func InitSessionCodec(cfg Config, logger *slog.Logger) (*jwtx.HS256Codec, error) {
	secret := []byte(cfg.SessionSecret)

	if len(secret) == 0 {
		secret = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		logger.Warn("AUTH_SESSION_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
	} else {
		logger.Info("session secret loaded from environment", "issuer", cfg.Issuer)
	}

	return jwtx.NewHS256Codec(secret, cfg.Issuer, clockSkew)
}
