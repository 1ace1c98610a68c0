// Package server orchestrates the host daemon: message bus (embedded or
// external), document session, operation registry, dispatcher subscription,
// and the HTTP health endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/inkbridge/inkbridge/internal/config"
	"github.com/inkbridge/inkbridge/pkg/busutil"
	"github.com/inkbridge/inkbridge/pkg/dispatcher"
	"github.com/inkbridge/inkbridge/pkg/document"
	"github.com/inkbridge/inkbridge/pkg/events"
	"github.com/inkbridge/inkbridge/pkg/handlers"
	"github.com/inkbridge/inkbridge/pkg/ops"
)

const logPrefix = "server:server"

// Server is the host daemon orchestrator.
type Server struct {
	cfg        *config.Config
	bus        *natsserver.Server
	nc         *nats.Conn
	httpServer *http.Server
	session    *document.Session
	started    time.Time
}

// Run starts the host daemon, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting inkbridge host (session %s)", logPrefix, cfg.SessionID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg, started: time.Now()}

	// Step 1: Bring up the local message bus.
	busURL := cfg.BusURL
	if cfg.BusEmbedded {
		bus, err := startEmbeddedBus(cfg.BusEmbeddedPort)
		if err != nil {
			return err
		}
		s.bus = bus
		busURL = bus.ClientURL()
	}

	// Step 2: Connect to the bus.
	nc, err := busutil.Connect(busURL, cfg.ServiceName)
	if err != nil {
		s.shutdownBus()
		return err
	}
	s.nc = nc

	// Step 3: Open the document session.
	session, err := openSession(cfg)
	if err != nil {
		nc.Close()
		s.shutdownBus()
		return err
	}
	s.session = session

	// Step 4: Build the operation registry and dispatcher.
	publisherOpts := &events.BusPublisherOpts{}
	if cfg.ChangeEventSubject != "" {
		publisherOpts.GlobalChangeSubject = cfg.ChangeEventSubject
	}
	publisher := events.NewBusPublisher(nc, publisherOpts)

	registry := ops.NewRegistry()
	if err := handlers.RegisterAll(registry, handlers.Deps{
		Publisher:   publisher,
		Session:     cfg.SessionID,
		ExecTimeout: cfg.ExecTimeout,
	}); err != nil {
		nc.Close()
		s.shutdownBus()
		return err
	}
	disp := dispatcher.NewDispatcher(registry, session)

	// Step 5: Subscribe to the request subject. A single subscription
	// delivers messages in order, one callback at a time, so requests run
	// serially to completion against the shared document.
	requestSubject := cfg.RequestSubject
	if requestSubject == "" {
		requestSubject = busutil.RequestSubject(cfg.SessionID)
	}
	requestTimeout := cfg.RequestTimeout
	sub, err := nc.Subscribe(requestSubject, func(msg *nats.Msg) {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		reply := disp.HandleRaw(reqCtx, msg.Data)
		if err := msg.Respond(reply); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to send reply: %v", logPrefix, err))
		}
	})
	if err != nil {
		nc.Close()
		s.shutdownBus()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, requestSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, requestSubject))

	// Step 6: Start the HTTP health server.
	s.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: s.healthMux(registry)}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Host is ready (%d elements in document)", logPrefix, session.CountElements()))

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	sub.Unsubscribe()
	s.httpServer.Shutdown(ctx)
	nc.Drain()
	s.shutdownBus()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// startEmbeddedBus runs the session-scoped message bus inside the host
// process, so callers on the same machine need no external infrastructure.
func startEmbeddedBus(port int) (*natsserver.Server, error) {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}
	bus, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create embedded bus: %w", logPrefix, err)
	}
	go bus.Start()
	if !bus.ReadyForConnections(10 * time.Second) {
		bus.Shutdown()
		return nil, fmt.Errorf("%s - embedded bus failed to start on port %d", logPrefix, port)
	}
	slog.Info(fmt.Sprintf("%s - Embedded bus listening at %s", logPrefix, bus.ClientURL()))
	return bus, nil
}

func (s *Server) shutdownBus() {
	if s.bus != nil {
		s.bus.Shutdown()
		s.bus.WaitForShutdown()
	}
}

func openSession(cfg *config.Config) (*document.Session, error) {
	if cfg.DocumentFile != "" {
		return document.LoadSession(cfg.DocumentFile)
	}
	slog.Info(fmt.Sprintf("%s - No document file configured, starting with a blank %sx%s document",
		logPrefix, cfg.DocumentWidth, cfg.DocumentHeight))
	return document.NewSession(cfg.DocumentWidth, cfg.DocumentHeight), nil
}
