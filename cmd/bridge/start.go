package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/bootstrap"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/config"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/control"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/daemon/pidfile"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/paths"
	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/wsconn"
)

func newStartCmd() *cobra.Command {
	var (
		port       int
		agentKind  string
		configPath string
		verbose    bool
		noOpen     bool
		hub        string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bridge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, startFlags{
				port:       port,
				agentKind:  agentKind,
				configPath: configPath,
				verbose:    verbose,
				noOpen:     noOpen,
				hub:        hub,
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP control listen port (0 = use config)")
	cmd.Flags().StringVar(&agentKind, "agent", "", "preferred agent kind (claude, codex, gemini)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json (default: XDG config dir)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "do not open the pairing UI in a browser")
	cmd.Flags().StringVar(&hub, "hub", "", "hub URL to register with")

	return cmd
}

type startFlags struct {
	port       int
	agentKind  string
	configPath string
	verbose    bool
	noOpen     bool
	hub        string
}

func runStart(cmd *cobra.Command, flags startFlags) error {
	logger := newLogger(flags.verbose)

	if flags.configPath == "" {
		flags.configPath = paths.ConfigFilePath()
	}

	flagOverrides := map[string]any{}
	if flags.port != 0 {
		flagOverrides["port"] = flags.port
	}
	if flags.agentKind != "" {
		flagOverrides["agents"] = map[string]any{"preferred": flags.agentKind}
	}

	envOverrides := map[string]string{}
	if v := os.Getenv("PROMPT_DOCK_PORT"); v != "" {
		envOverrides["PROMPT_DOCK_PORT"] = v
	}
	if v := os.Getenv("PROMPT_DOCK_WS_PORT"); v != "" {
		envOverrides["PROMPT_DOCK_WS_PORT"] = v
	}
	if hub := firstNonEmpty(flags.hub, os.Getenv("PROMPT_DOCK_HUB")); hub != "" {
		logger.WithField("hub", hub).Info("registering with hub is not implemented in this build")
	}

	cfg, err := config.Load(flags.configPath, envOverrides, flagOverrides)
	if err != nil {
		return fmt.Errorf("start: load config: %w", err)
	}

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("start: ensure directories: %w", err)
	}

	pidPath := paths.PidFilePath()
	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.WithError(err).Error("failed to release pid file")
		}
	}()

	bridge, err := bootstrap.New(cfg, paths.DataDir(), logrus.NewEntry(logger).WithField("component", "bridge"))
	if err != nil {
		return fmt.Errorf("start: wire bridge: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.RunSweeper(ctx)

	allowList := wsconn.NewAllowList(cfg.AllowedOrigins)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsconn.Accept(w, r, allowList, bridge.Sessions, bridge.Handler(), logrus.NewEntry(logger))
		if err != nil {
			logger.WithError(err).Warn("connection rejected")
			return
		}
		go conn.Run(r.Context())
	})
	wsServer := &http.Server{Addr: net.JoinHostPort("", strconv.Itoa(cfg.WSPort)), Handler: wsMux}

	controlServer := control.New(bridge, allowList, version, logrus.NewEntry(logger).WithField("component", "control"))
	httpServer := &http.Server{Addr: net.JoinHostPort("", strconv.Itoa(cfg.Port)), Handler: controlServer.Mux()}

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.ListenAndServe() }()
	go func() { errCh <- wsServer.ListenAndServe() }()

	if !flags.noOpen {
		logger.WithField("url", fmt.Sprintf("http://localhost:%d", cfg.Port)).Info("pairing UI would open here")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("start: server error: %w", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = wsServer.Shutdown(shutdownCtx)

	return nil
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
