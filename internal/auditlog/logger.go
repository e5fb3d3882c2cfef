// Package auditlog provides the append-only, JSON-lines audit trail shared
// by SessionStore, PairingRegistry, and AgentSupervisor.
package auditlog

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger pinned to a JSON formatter and a single file
// handle, with an explicit mutex around the write path in addition to
// logrus's own — matching the "append-only, single file handle" rule.
type Logger struct {
	mu     sync.Mutex
	logger *logrus.Logger
}

// New builds an audit logger writing JSON lines to w (typically an
// os.OpenFile'd handle opened with O_APPEND).
func New(w io.Writer) *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	return &Logger{logger: logger}
}

// Event appends one audit record with the given event name and fields.
func (l *Logger) Event(event string, fields logrus.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.logger.WithFields(fields)
	entry.Info(event)
}
