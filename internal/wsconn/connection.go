// Package wsconn implements ClientConnection: the gorilla/websocket
// transport, origin enforcement, liveness pings, and per-message dispatch
// into the codec/session/plan/execution layers.
package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bridgeerr"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 35 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20

	protocolVersion = "1"
)

// Upgrader is shared across connections; its CheckOrigin always passes
// because the origin check runs in Accept before Upgrade is called. A
// rejected origin gets a plain HTTP 403 response; no websocket close code
// is sent for it.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler dispatches one validated, authenticated (where required) inbound
// envelope and returns zero or more outbound envelopes.
type Handler func(ctx context.Context, c *Connection, env *codec.Envelope) []codec.Envelope

// Connection is one live client channel.
type Connection struct {
	ID     string
	conn   *websocket.Conn
	logger *logrus.Entry

	sessions *session.Store
	handler  Handler
	codecOpts codec.Options

	mu            sync.Mutex
	activeSession *session.Session

	send chan codec.Envelope

	cancel context.CancelFunc
}

// New wraps an already-upgraded websocket connection.
func New(conn *websocket.Conn, sessions *session.Store, handler Handler, logger *logrus.Entry) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		conn:      conn,
		logger:    logger,
		sessions:  sessions,
		handler:   handler,
		codecOpts: codec.DefaultOptions(),
		send:      make(chan codec.Envelope, 64),
	}
}

// ActiveSession returns the session currently bound to this connection, if
// any.
func (c *Connection) ActiveSession() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSession
}

// BindSession attaches an authenticated session to this connection.
func (c *Connection) BindSession(sess *session.Session) {
	c.mu.Lock()
	c.activeSession = sess
	c.mu.Unlock()
}

// PublicKeyForConnection implements codec.KeySource.
func (c *Connection) PublicKeyForConnection() ([]byte, bool) {
	sess := c.ActiveSession()
	if sess == nil {
		return nil, false
	}
	return sess.ClientPublicKey, true
}

// PublicKeyForToken implements codec.KeySource by resolving a session
// through the store without mutating its token (the authenticate handler
// performs the real ResolveByToken that rotates/slides the session).
func (c *Connection) PublicKeyForToken(token string) ([]byte, bool) {
	for _, sess := range c.sessions.List() {
		if sess.TokenString() == token {
			return sess.ClientPublicKey, true
		}
	}
	return nil, false
}

// Send enqueues an outbound envelope. All outbound writes funnel through
// WritePump, the connection's single serialisation point, so ordering is
// preserved regardless of which goroutine calls Send.
func (c *Connection) Send(env codec.Envelope) {
	select {
	case c.send <- env:
	default:
		c.logger.Warn("wsconn: dropping outbound envelope, send buffer full")
	}
}

// Run serves one connection to completion: greets the peer, then runs the
// read and write pumps until either side closes.
func (c *Connection) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	c.Send(codec.Envelope{
		ID:   uuid.New().String(),
		Type: "connected",
		Data: map[string]any{"version": protocolVersion, "connectionId": c.ID},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.writePump(ctx) }()
	go func() { defer wg.Done(); c.readPump(ctx) }()
	wg.Wait()
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env codec.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Send(codec.ErrorEnvelope(bridgeerr.New(bridgeerr.CodeInvalidMessageFormat, "malformed JSON envelope")))
			continue
		}

		outbound := c.dispatch(ctx, &env)
		for _, out := range outbound {
			c.Send(out)
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
			if env.Type == "error" {
				if code, _ := env.Data["code"].(string); code == "ORIGIN_NOT_ALLOWED" {
					c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""),
						time.Now().Add(writeWait))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
