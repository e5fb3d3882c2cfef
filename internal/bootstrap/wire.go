package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/agentio"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/auditlog"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/config"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/cryptoutil"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/execcoord"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/pairing"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/planstore"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/session"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/workspace"
)

const sweepInterval = 60 * time.Second

// New constructs every long-lived component from cfg and wires them into a
// Bridge. dataDir holds the persisted identity keypair and the audit log;
// callers typically pass the OS-appropriate application data directory.
func New(cfg *config.Config, dataDir string, logger *logrus.Entry) (*Bridge, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("bootstrap: create data directory: %w", err)
	}

	identity, err := cryptoutil.InitIdentity(
		filepath.Join(dataDir, "identity.pem"),
		filepath.Join(dataDir, "identity.pub"),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init identity: %w", err)
	}

	auditFile, err := os.OpenFile(filepath.Join(dataDir, "audit.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open audit log: %w", err)
	}
	audit := auditlog.New(auditFile)

	sessionTimeout := time.Duration(cfg.Security.SessionTimeout) * time.Millisecond
	sessions, err := session.New(cfg.Security.MaxCommandsPerMinute, sessionTimeout, audit, logger.WithField("component", "session"))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init session store: %w", err)
	}

	plans := planstore.New()

	supervisor := agentio.New(agentio.Options{
		ConfiguredPaths: cfg.Agents.Paths,
		MaxBufferBytes:  cfg.Agents.MaxBufferBytes,
		PlanWaitTimeout: time.Duration(cfg.Agents.Timeout) * time.Millisecond,
	})

	adapter := workspace.NewGitAdapter(cfg.Git.AuthorName, cfg.Git.AuthorEmail)

	coordinator := execcoord.New(supervisor, plans, adapter)

	return &Bridge{
		Identity:    identity,
		Pairing:     pairing.NewRegistry(),
		Sessions:    sessions,
		Plans:       plans,
		Supervisor:  supervisor,
		Adapter:     adapter,
		Coordinator: coordinator,
		Audit:       audit,
		Logger:      logger,
	}, nil
}

// RunSweeper periodically evicts expired sessions and stale proposed plans
// until ctx is cancelled. The daemon starts exactly one of these per Bridge.
func (b *Bridge) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expiredSessions := b.Sessions.Sweep()
			expiredPlans := b.Plans.Sweep()
			if expiredSessions > 0 || expiredPlans > 0 {
				b.Logger.WithFields(logrus.Fields{
					"expiredSessions": expiredSessions,
					"expiredPlans":    expiredPlans,
				}).Info("sweep completed")
			}
		}
	}
}
