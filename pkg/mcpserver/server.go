// Package mcpserver exposes the bridge operations as MCP tools: the front
// door that agents call. Each tool invocation becomes one transport-bridge
// send; sends are serialized so the host dispatcher sees one request at a
// time.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nats-io/nats.go"

	"github.com/inkbridge/inkbridge/pkg/bridge"
	"github.com/inkbridge/inkbridge/pkg/dispatcher"
)

const logPrefix = "mcpserver:server"

const serverName = "inkbridge"
const serverVersion = "0.1.0"

// Sender delivers one operation request and returns its response. Every
// outcome is a response value, never a transport panic.
type Sender interface {
	Send(req *dispatcher.OperationRequest) *dispatcher.OperationResponse
}

// BusSender sends requests over the message bus, one at a time. The mutex
// serializes delivery so concurrent tool calls queue here instead of
// interleaving at the host.
type BusSender struct {
	mu      sync.Mutex
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// NewBusSender creates a BusSender for the given host subject.
func NewBusSender(nc *nats.Conn, subject string, timeout time.Duration) *BusSender {
	return &BusSender{nc: nc, subject: subject, timeout: timeout}
}

// Send implements Sender.
func (b *BusSender) Send(req *dispatcher.OperationRequest) *dispatcher.OperationResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bridge.Send(b.nc, b.subject, req, b.timeout)
}

// Server wraps the bridge operations as an MCP Server.
type Server struct {
	sender    Sender
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sender Sender) *Server {
	s := &Server{
		sender:    sender,
		mcpServer: server.NewMCPServer(serverName, serverVersion),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("%s - MCP server listening (SSE) on %s", logPrefix, addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s - could not stop server gracefully: %w", logPrefix, err)
		}
		return nil
	}
}

// call sends one operation through the bridge and renders the response as a
// tool result. Failures become tool errors carrying the structured kind.
func (s *Server) call(op string, params map[string]interface{}) (*mcp.CallToolResult, error) {
	req, err := bridge.NewRequest(op, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid request: %v", err)), nil
	}
	resp := s.sender.Send(req)
	if !resp.Ok {
		// A failure envelope should always carry error detail, but a
		// misbehaving host must not crash the front door.
		if resp.Error == nil {
			return mcp.NewToolResultError(fmt.Sprintf("operation %s failed without error detail", op)), nil
		}
		detail := ""
		if resp.Error.Details != nil {
			if data, err := json.Marshal(resp.Error.Details); err == nil {
				detail = " " + string(data)
			}
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s%s", resp.Error.Kind, resp.Error.Message, detail)), nil
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unencodable result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
