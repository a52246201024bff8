package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/klondike/api"
	"github.com/wricardo/klondike/transport/mcp"
)

// apiAvailable checks whether an external API server answers.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalAPI serves the REST API on a random loopback port and returns
// its base URL. The server stops when ctx is done.
func startInternalAPI(ctx context.Context, svc *services, logger *log.Logger) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	httpServer := &http.Server{Handler: api.NewServer(svc.game, nil, logger)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	baseURL := "http://" + listener.Addr().String()
	logger.Info("internal HTTP server started for MCP stdio", "url", baseURL)
	return baseURL, nil
}

// runStdioMCP runs an MCP stdio server. It reuses the external API when it
// answers, otherwise it starts an internal one on a loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd.Root().Bool("debug"))

	baseURL := cmd.String("api-url")
	logger.Info("checking for external API server", "url", baseURL)

	if apiAvailable(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		svc, _, err := servicesFromFlags(cmd)
		if err != nil {
			return err
		}
		baseURL, err = startInternalAPI(ctx, svc, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.sessions.SaveAllSessions(); err != nil {
				logger.Error("failed to save sessions", "err", err)
			}
		}()
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
