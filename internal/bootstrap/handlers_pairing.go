package bootstrap

import (
	"time"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

func (b *Bridge) handlePair(c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	code, _ := env.Data["code"].(string)
	clientKey, _ := env.Data["clientPublicKey"].(string)

	redemption, err := b.Pairing.Redeem(code, []byte(clientKey))
	if err != nil {
		if err == pairing.ErrInvalidOrExpired {
			return []codec.Envelope{errReply(env, bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "invalid or expired pairing code"))}
		}
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeInternal, "pairing redeem failed", err))}
	}

	sess, err := b.Sessions.Create(redemption)
	if err != nil {
		return []codec.Envelope{errReply(env, bridgeerr.Wrap(bridgeerr.CodeInternal, "session creation failed", err))}
	}
	c.BindSession(sess)

	return []codec.Envelope{reply(env, "pairing-success", map[string]any{
		"sessionId":       sess.ID,
		"token":           sess.TokenString(),
		"bridgePublicKey": string(b.Identity.PublicKeyPEM()),
		"expiresAt":       sess.ExpiresAt().UTC().Format(time.RFC3339),
	})}
}

func (b *Bridge) handleAuthenticate(c *wsconn.Connection, env *codec.Envelope) []codec.Envelope {
	token, _ := env.Data["token"].(string)

	sess, err := b.Sessions.ResolveByToken(token)
	if err != nil {
		return []codec.Envelope{reply(env, "auth-failed", map[string]any{"reason": "invalid or expired token"})}
	}
	c.BindSession(sess)

	return []codec.Envelope{reply(env, "auth-success", map[string]any{
		"sessionId": sess.ID,
		"token":     sess.TokenString(),
	})}
}
