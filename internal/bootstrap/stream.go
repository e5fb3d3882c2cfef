package bootstrap

import (
	"time"

	"github.com/google/uuid"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/codec"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/execcoord"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

// streamExecution relays one execution's typed event channel onto the
// connection's outbound channel, translating each Event into the
// corresponding bridge->client message type.
func (b *Bridge) streamExecution(c *wsconn.Connection, executionID string, events <-chan execcoord.Event) {
	for ev := range events {
		switch ev.Kind {
		case execcoord.EventOutput:
			c.Send(outboundEnvelope("agent-output", map[string]any{
				"executionId": executionID,
				"stream":      ev.Stream,
				"data":        string(ev.Data),
				"ts":          ev.Timestamp.UTC().Format(time.RFC3339Nano),
			}))

		case execcoord.EventStateChange:
			c.Send(outboundEnvelope("agent-state-change", map[string]any{
				"executionId": executionID,
				"state":       string(ev.State),
			}))

		case execcoord.EventProgress:
			c.Send(outboundEnvelope("execution-progress", map[string]any{
				"executionId": executionID,
				"progress":    ev.Progress,
			}))

		case execcoord.EventFileChanged:
			c.Send(outboundEnvelope("file-changed", map[string]any{
				"executionId": executionID,
				"file":        ev.File,
			}))

		case execcoord.EventCompleted:
			c.Send(outboundEnvelope("execution-complete", map[string]any{
				"executionId":   executionID,
				"modifiedFiles": ev.ModifiedFiles,
				"result":        ev.Result,
			}))

		case execcoord.EventFailed:
			c.Send(outboundEnvelope("error", map[string]any{
				"error": "execution failed",
				"code":  ev.Reason,
			}))
		}
	}
}

func outboundEnvelope(msgType string, data map[string]any) codec.Envelope {
	return codec.Envelope{
		ID:        uuid.New().String(),
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
