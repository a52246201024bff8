package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/klondike/api"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/game/session"
	"github.com/wricardo/klondike/transport/mcp"
	"github.com/wricardo/klondike/transport/websocket"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

// services bundles everything a running server needs.
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	clock       quartz.Clock
	logger      *log.Logger
}

// initializeServices wires the config manager, session persistence, session
// manager and game service, and reloads sessions saved by a previous run.
func initializeServices(configDir, sessionsDir string, logger *log.Logger, clock quartz.Clock) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(sessionsDir, configManager, engine.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, logger, session.WithClock(clock))
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", "err", err)
	}

	return &services{
		game:        service.NewGameService(sessionManager, configManager, service.WithLogger(logger)),
		sessions:    sessionManager,
		persistence: persistence,
		clock:       clock,
		logger:      logger,
	}, nil
}

func servicesFromFlags(cmd *cli.Command) (*services, *log.Logger, error) {
	logger := newLogger(cmd.Root().Bool("debug"))
	svc, err := initializeServices(cmd.String("config-dir"), cmd.String("sessions-dir"), logger, quartz.NewReal())
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

// newHandler mounts the REST API and websocket feed at / and the MCP
// JSON-RPC endpoint at /mcp.
func newHandler(svc *services, hub *websocket.Hub, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.game, hub, svc.logger))

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			svc.logger.Error("failed to write MCP response", "err", err)
		}
	})

	return mainRouter
}

// runServe starts the HTTP server, the websocket hub, the background
// maintenance routines and optionally an ngrok tunnel. Any of them failing
// stops the rest.
func runServe(ctx context.Context, cmd *cli.Command) error {
	svc, logger, err := servicesFromFlags(cmd)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	logger.Info("starting", "app", AppName, "version", Version, "addr", addr)

	hub := websocket.NewHub(logger)
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newHandler(svc, hub, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return sessionCleanupRoutine(ctx, svc) })
	g.Go(func() error { return filesystemSyncRoutine(ctx, svc) })

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		if err := svc.sessions.SaveAllSessions(); err != nil {
			logger.Error("failed to save sessions on shutdown", "err", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return runNgrok(ctx, cmd, handler, logger)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel. A missing token or a
// failed tunnel is logged and leaves the local server running.
func runNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, logger *log.Logger) error {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	tunnel := ngrokConfig.HTTPEndpoint()
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return nil
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established", "url", ngrokURL, "api", ngrokURL+"/api", "mcp", ngrokURL+"/mcp")

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within sessionMaxAge. Saved copies stay on disk.
func sessionCleanupRoutine(ctx context.Context, svc *services) error {
	ticker := svc.clock.NewTicker(cleanupInterval, "cleanup")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cleanupSessions(svc)
		}
	}
}

func cleanupSessions(svc *services) int {
	removed := svc.sessions.CleanupExpiredSessions(sessionMaxAge)
	if removed > 0 {
		svc.logger.Info("cleaned up expired sessions", "count", removed)
	}
	return removed
}

// filesystemSyncRoutine drops sessions from memory when their files have
// been deleted on disk.
func filesystemSyncRoutine(ctx context.Context, svc *services) error {
	if svc.persistence == nil {
		return nil
	}

	ticker := svc.clock.NewTicker(syncInterval, "sync")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			syncWithFilesystem(svc)
		}
	}
}

func syncWithFilesystem(svc *services) int {
	pruned := 0
	for _, sess := range svc.sessions.List() {
		if svc.persistence.Exists(sess.ID) {
			continue
		}
		if err := svc.sessions.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			svc.logger.Debug("pruned session from memory (file deleted)", "session", sess.ID)
		}
	}

	if pruned > 0 {
		svc.logger.Info("filesystem sync pruned orphaned sessions", "count", pruned)
	}
	return pruned
}
