package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkbridge/inkbridge/internal/config"
	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/mcpserver"
)

// serveCmd runs the Request Front Door: an MCP server whose tools forward to
// the host over the bus.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP front door",
	Long: `Starts an MCP server exposing the bridge operations as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		if err := cfg.ValidateForSend(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(logger)

		nc, err := busutil.Connect(cfg.BusURL, cfg.ServiceName+"-mcp")
		if err != nil {
			log.Fatalf("Error connecting to bus: %v", err)
		}
		defer nc.Close()

		subject := cfg.RequestSubject
		if subject == "" {
			subject = busutil.RequestSubject(cfg.SessionID)
		}
		sender := mcpserver.NewBusSender(nc, subject, cfg.BridgeTimeout)
		srv := mcpserver.NewServer(sender)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("Starting inkbridge MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting inkbridge MCP server (SSE)", "port", port)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				slog.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
			slog.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	serveCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
