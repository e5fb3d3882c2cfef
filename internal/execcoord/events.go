package execcoord

import "time"

// EventKind discriminates the typed broadcast-channel event model the
// coordinator emits for every execution.
type EventKind string

const (
	EventOutput       EventKind = "output"
	EventStateChange  EventKind = "state-change"
	EventProgress     EventKind = "progress"
	EventFileChanged  EventKind = "file-changed"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
)

// Event is the single typed shape carried on every execution's event
// channel, tagged with the owning executionId per spec.md §4.7.
type Event struct {
	Kind        EventKind
	ExecutionID string
	Timestamp   time.Time

	Stream string // EventOutput only: "stdout" | "stderr"
	Data   []byte // EventOutput only

	State State // EventStateChange only

	Progress int // EventProgress only: 0-100

	File string // EventFileChanged only

	Result       string   // EventCompleted only
	ModifiedFiles []string // EventCompleted only

	Reason string // EventFailed only
}
