package codec

import "github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"

// KeySource resolves the public key bound to an existing session, looked up
// either by session id (for the connection's active session) or by the
// bearer token referenced in an `authenticate` message's data.
type KeySource interface {
	PublicKeyForToken(token string) ([]byte, bool)
	PublicKeyForConnection() ([]byte, bool)
}

// SelectSigningKey implements spec.md §4.4's per-type key selection:
// `pair` uses the key offered in the payload itself, `authenticate` uses
// the key recorded against the referenced session, everything else uses
// the key bound to the connection's already-authenticated session.
func SelectSigningKey(env *Envelope, src KeySource) ([]byte, *bridgeerr.Error) {
	switch env.Type {
	case "pair":
		keyVal, _ := env.Data["clientPublicKey"].(string)
		if keyVal == "" {
			return nil, bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "pair requires data.clientPublicKey").WithID(env.ID)
		}
		return []byte(keyVal), nil

	case "authenticate":
		token, _ := env.Data["token"].(string)
		if token == "" {
			return nil, bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "authenticate requires data.token").WithID(env.ID)
		}
		key, ok := src.PublicKeyForToken(token)
		if !ok {
			return nil, bridgeerr.New(bridgeerr.CodeNotAuthenticated, "unknown session for authenticate").WithID(env.ID)
		}
		return key, nil

	default:
		key, ok := src.PublicKeyForConnection()
		if !ok {
			return nil, bridgeerr.New(bridgeerr.CodeNotAuthenticated, "no authenticated session bound to this connection").WithID(env.ID)
		}
		return key, nil
	}
}
