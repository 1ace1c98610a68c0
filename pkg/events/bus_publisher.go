package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/inkbridge/inkbridge/pkg/busutil"
)

const busPublisherLogPrefix = "events:bus_publisher"

// BusPublisherOpts configures BusPublisher. Nil or zero values use defaults.
type BusPublisherOpts struct {
	// GlobalChangeSubject overrides the global change event subject.
	GlobalChangeSubject string
}

// BusPublisher publishes document change events to bus subjects.
type BusPublisher struct {
	nc                  *nats.Conn
	globalChangeSubject string
}

// NewBusPublisher creates a new BusPublisher. Pass nil for opts to use defaults.
func NewBusPublisher(nc *nats.Conn, opts *BusPublisherOpts) *BusPublisher {
	globalSubject := busutil.SubjectChangeEvent
	if opts != nil && opts.GlobalChangeSubject != "" {
		globalSubject = opts.GlobalChangeSubject
	}
	return &BusPublisher{nc: nc, globalChangeSubject: globalSubject}
}

// PublishChanged publishes a DocumentChangedEvent to both the granular
// per-operation and the global change event subjects.
func (p *BusPublisher) PublishChanged(_ context.Context, event *DocumentChangedEvent) error {
	data, err := busutil.EncodeMessage(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", busPublisherLogPrefix, err)
	}

	granularSubject := busutil.ChangeSubject(event.Op)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", busPublisherLogPrefix, granularSubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalChangeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", busPublisherLogPrefix, p.globalChangeSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published change event for %s", busPublisherLogPrefix, event.Op))
	return nil
}
