package wsconn

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
)

var unauthenticatedTypes = map[string]bool{
	"pair":         true,
	"authenticate": true,
	"health-check": true,
}

// dispatch implements the per-message contract from spec.md §4.8: validate
// the envelope, enforce authentication and admission for types that need
// it, then hand off to the connection's Handler.
func (c *Connection) dispatch(ctx context.Context, env *codec.Envelope) []codec.Envelope {
	if bridgeErr := codec.Validate(env, c.codecOpts, time.Now); bridgeErr != nil {
		return []codec.Envelope{codec.ErrorEnvelope(bridgeErr)}
	}

	if env.Type != "health-check" {
		key, bridgeErr := codec.SelectSigningKey(env, c)
		if bridgeErr != nil {
			return []codec.Envelope{codec.ErrorEnvelope(bridgeErr)}
		}
		if !codec.VerifySignature(env, key) {
			return []codec.Envelope{codec.ErrorEnvelope(
				bridgeerr.New(bridgeerr.CodeInvalidSignature, "signature verification failed").WithID(env.ID),
			)}
		}
	}

	requiresSession := !unauthenticatedTypes[env.Type]
	sess := c.ActiveSession()

	if requiresSession && sess == nil {
		return []codec.Envelope{codec.ErrorEnvelope(
			bridgeerr.New(bridgeerr.CodeNotAuthenticated, "no authenticated session bound to this connection").WithID(env.ID),
		)}
	}

	// A bound session still passes every signed command, including
	// health-check, through the per-session rate limiter and replay guard —
	// unauthenticatedTypes only means a session isn't required, not that an
	// existing one is bypassed.
	// A refresh that rotated the token is relayed to the client as an
	// auth-success carrying the new token, after this message's response.
	var tokenRefresh []codec.Envelope
	if sess != nil {
		previousToken := sess.TokenString()
		refreshed, err := c.sessions.ResolveByToken(previousToken)
		if err != nil {
			return []codec.Envelope{codec.ErrorEnvelope(
				bridgeerr.New(bridgeerr.CodeSessionExpired, "session has expired").WithID(env.ID),
			)}
		}
		c.BindSession(refreshed)
		sess = refreshed
		if latest := sess.TokenString(); latest != previousToken {
			tokenRefresh = []codec.Envelope{{
				ID:        uuid.New().String(),
				Type:      "auth-success",
				Data:      map[string]any{"sessionId": sess.ID, "token": latest},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}}
		}

		decision := c.sessions.AdmitCommand(sess, env.ID, env.Data)
		if !decision.Admitted {
			code := bridgeerr.CodeReplayDetected
			if decision.Reason == "RATE_LIMIT_EXCEEDED" {
				code = bridgeerr.CodeRateLimitExceeded
			}
			return append([]codec.Envelope{codec.ErrorEnvelope(bridgeerr.New(code, "command rejected").WithID(env.ID))}, tokenRefresh...)
		}
	}

	if c.handler == nil {
		return tokenRefresh
	}
	return append(c.handler(ctx, c, env), tokenRefresh...)
}
