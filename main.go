// Command klondike starts the Klondike Solitaire server.
//
// It supports three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the websocket feed and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "deal" prints the deal for a seed as JSON, handy for fixtures
//
// Flags control host/port, config and sessions directories, debug logging,
// and optional ngrok tunneling for external access during development. Every
// flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/klondike/game/engine"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Klondike Solitaire Server"
)

// newLogger builds the process logger. Everything goes to stderr so the
// stdio MCP transport keeps stdout to itself.
func newLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    debug,
		Level:           level,
		Prefix:          "klondike",
	})
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("KLONDIKE_PORT", "PORT"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("KLONDIKE_HOST"),
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Value:   "configs",
			Usage:   "Directory containing rule configurations",
			Sources: cli.EnvVars("KLONDIKE_CONFIG_DIR", "CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:    "sessions-dir",
			Value:   "sessions",
			Usage:   "Directory where sessions are persisted",
			Sources: cli.EnvVars("KLONDIKE_SESSIONS_DIR"),
		},
	}
}

func newApp() *cli.Command {
	serve := &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server with REST API, websocket feed and MCP endpoint",
		Flags: append(serverFlags(),
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		),
		Action: runServe,
	}

	return &cli.Command{
		Name:    "klondike",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("KLONDIKE_DEBUG"),
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serve,
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server backed by an external or internal HTTP API",
				Flags: append(serverFlags(),
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "External API to reuse when it is reachable",
						Sources: cli.EnvVars("KLONDIKE_API_URL"),
					},
				),
				Action: runStdioMCP,
			},
			{
				Name:  "deal",
				Usage: "Print the deal for a seed as JSON",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "seed",
						Usage:    "Shuffle seed",
						Required: true,
					},
				},
				Action: runDeal,
			},
		},
	}
}

// main loads .env, wires signals, and runs the selected command.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func runDeal(ctx context.Context, cmd *cli.Command) error {
	seed := cmd.Int64("seed")
	game := engine.NewEngineWithDefaults(&seed)

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(game.GetState())
}
