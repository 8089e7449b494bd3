// Package journal publishes committed revisions to NATS JetStream.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-history/internal/adapter"
	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/logger"
)

// Publisher publishes revisions
//
//go:generate mockgen -source=publisher.go -destination=../mocks/journal.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishRevision publishes a journaled revision. rev.ID is used for deduplication.
	PublishRevision(ctx context.Context, rev *domain.Revision) error
	// Close closes the underlying connection
	Close()
}

// PublisherConfig holds the configuration for NATS JetStream connection
type PublisherConfig struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewPublisher connects to NATS and makes sure the revision stream exists
func NewPublisher(ctx context.Context, cfg PublisherConfig, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	streamName := cfg.StreamName
	if streamName == "" {
		streamName = domain.REVISION_STREAM_NAME
	}
	subjects := []string{domain.REVISION_SUBJECT_PREFIX + ".>"}
	if err := js.EnsureStream(ctx, streamName, subjects); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}

	logger.InfoCtx(ctx, "Connected to NATS JetStream",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("stream", streamName))

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: streamName,
		json:       jsonAdapter,
	}, nil
}

// PublishRevision publishes a revision to NATS JetStream
func (p *publisher) PublishRevision(ctx context.Context, rev *domain.Revision) error {
	logger.DebugCtx(ctx, "Publishing revision",
		zap.String("id", rev.ID),
		zap.String("subject", rev.Subject()))

	data, err := p.json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("failed to marshal revision: %w", err)
	}

	_, err = p.js.Publish(ctx, rev.Subject(), data, jetstream.WithMsgID(rev.ID), jetstream.WithExpectStream(p.streamName))
	if err != nil {
		return fmt.Errorf("failed to publish revision: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
