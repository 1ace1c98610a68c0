// Package busutil provides message-bus connection helpers, the payload
// codec, and the session-scoped subject layout.
package busutil

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const logPrefix = "busutil:connect"

// Connect creates a bus connection to the given URL.
func Connect(url, name string) (*nats.Conn, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to bus at %s as %s", logPrefix, url, name))

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - bus disconnected: %v", logPrefix, err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info(fmt.Sprintf("%s - bus reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info(fmt.Sprintf("%s - bus connection closed", logPrefix))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to bus: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to bus at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}
