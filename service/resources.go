package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/waltti/apcprofiler/profiler"
)

// HealthServer is the liveness endpoint owned by an invocation
type HealthServer interface {
	SetHealthy(healthy bool)
	Close(ctx context.Context) error
}

// Connection is an open transport connection
type Connection interface {
	Close(ctx context.Context) error
}

// Producer publishes the snapshot
type Producer interface {
	Send(ctx context.Context, data []byte, eventTimestamp int64) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Reader is a latest-message reader that must be closed
type Reader interface {
	profiler.Reader
	Close(ctx context.Context) error
}

// FeedReader is the reader of one feed
type FeedReader struct {
	FeedPublisherID profiler.FeedPublisherID
	Reader          Reader
}

// Resources holds every resource an invocation may own. A nil slot is
// absent. Release frees the present ones in a fixed order.
type Resources struct {
	Health      HealthServer
	Connection  Connection
	Producer    Producer
	CacheReader Reader
	FeedReaders []FeedReader
}

// releaseAction frees one slot
type releaseAction struct {
	name string
	run  func(ctx context.Context) error
}

// Release marks the invocation unhealthy and frees every present resource:
// feed readers, cache reader, producer, connection, then the health server.
// Every action runs even when an earlier one fails.
func (r *Resources) Release(ctx context.Context, logger *slog.Logger) error {
	var actions []releaseAction
	if r.Health != nil {
		actions = append(actions, releaseAction{name: "health status", run: func(context.Context) error {
			r.Health.SetHealthy(false)
			return nil
		}})
	}
	actions = append(actions, r.transportActions()...)
	if r.Health != nil {
		health := r.Health
		actions = append(actions, releaseAction{name: "health server", run: func(ctx context.Context) error {
			r.Health = nil
			return health.Close(ctx)
		}})
	}
	return runActions(ctx, logger, actions)
}

// ReleaseReaders closes the feed and cache readers
func (r *Resources) ReleaseReaders(ctx context.Context, logger *slog.Logger) error {
	return runActions(ctx, logger, r.readerActions())
}

// ReleaseTransport closes readers, producer and connection, keeping the
// health server
func (r *Resources) ReleaseTransport(ctx context.Context, logger *slog.Logger) error {
	return runActions(ctx, logger, r.transportActions())
}

// readerActions empties the reader slots. The returned actions close what
// they held.
func (r *Resources) readerActions() []releaseAction {
	var actions []releaseAction
	for i := range r.FeedReaders {
		fr := r.FeedReaders[i]
		if fr.Reader == nil {
			continue
		}
		actions = append(actions, releaseAction{
			name: "feed reader " + string(fr.FeedPublisherID),
			run:  fr.Reader.Close,
		})
	}
	r.FeedReaders = nil
	if r.CacheReader != nil {
		reader := r.CacheReader
		actions = append(actions, releaseAction{name: "cache reader", run: func(ctx context.Context) error {
			r.CacheReader = nil
			return reader.Close(ctx)
		}})
	}
	return actions
}

func (r *Resources) transportActions() []releaseAction {
	actions := r.readerActions()
	if r.Producer != nil {
		producer := r.Producer
		actions = append(actions, releaseAction{name: "producer", run: func(ctx context.Context) error {
			r.Producer = nil
			flushErr := producer.Flush(ctx)
			return stderrors.Join(flushErr, producer.Close(ctx))
		}})
	}
	if r.Connection != nil {
		conn := r.Connection
		actions = append(actions, releaseAction{name: "connection", run: func(ctx context.Context) error {
			r.Connection = nil
			return conn.Close(ctx)
		}})
	}
	return actions
}

func runActions(ctx context.Context, logger *slog.Logger, actions []releaseAction) error {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, action := range actions {
		if err := action.run(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to release resource", "resource", action.name, "error", err)
			errs = append(errs, err)
			continue
		}
		logger.DebugContext(ctx, "Released resource", "resource", action.name)
	}
	return stderrors.Join(errs...)
}
