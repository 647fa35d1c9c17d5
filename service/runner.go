package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/waltti/apcprofiler/config"
	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/pkg/timestamp"
	"github.com/waltti/apcprofiler/profiler"
)

const defaultReleaseTimeout = 45 * time.Second

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics
func WithMetrics(metrics *metric.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// WithReleaseTimeout bounds the final release of resources
func WithReleaseTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.releaseTimeout = d
		}
	}
}

// Runner owns the resources and the transport phase of one invocation and
// drives the processor through it.
type Runner struct {
	cfg            *config.Config
	connector      Connector
	processor      *profiler.Processor
	logger         *slog.Logger
	metrics        *metric.Metrics
	releaseTimeout time.Duration

	phase     phaseMachine
	resources Resources
}

// NewRunner creates a Runner. The health server is released with the other
// resources when Run returns.
func NewRunner(cfg *config.Config, connector Connector, processor *profiler.Processor, health HealthServer, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:            cfg,
		connector:      connector,
		processor:      processor,
		logger:         slog.Default(),
		releaseTimeout: defaultReleaseTimeout,
		resources:      Resources{Health: health},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase returns the current transport phase
func (r *Runner) Phase() Phase {
	return r.phase.Current()
}

// Run executes one invocation. Resources are released on every path,
// including cancellation of ctx.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.releaseTimeout)
		defer cancel()
		if relErr := r.resources.Release(releaseCtx, r.logger); relErr != nil {
			r.logger.Warn("Some resources could not be released cleanly", "error", relErr)
		}
		if phaseErr := r.phase.Transition(PhaseReleased); phaseErr != nil {
			r.logger.Warn("Unexpected phase on release", "error", phaseErr)
		}
	}()

	if err := r.connect(ctx); err != nil {
		r.metrics.RecordCycle(metric.OutcomeFailed)
		return err
	}
	if err := r.phase.Transition(PhaseConnected); err != nil {
		return err
	}
	if r.resources.Health != nil {
		r.resources.Health.SetHealthy(true)
	}

	in, err := r.processor.ReadInputs(ctx, r.sources())
	if err != nil {
		r.metrics.RecordCycle(metric.OutcomeFailed)
		return err
	}
	if err := r.resources.ReleaseReaders(ctx, r.logger); err != nil {
		r.logger.WarnContext(ctx, "Could not release the readers", "error", err)
	}

	snapshot, err := r.processor.Run(ctx, in, r)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := r.publish(ctx, snapshot); err != nil {
		r.metrics.RecordCycle(metric.OutcomeFailed)
		return err
	}
	return nil
}

// connect opens the connection, the producer and every reader
func (r *Runner) connect(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Connecting to the message broker")
	if err := r.connectProducer(ctx); err != nil {
		return err
	}

	if r.cfg.Processing.IsFreshStart {
		r.logger.DebugContext(ctx, "Fresh start, not opening the cache reader")
	} else {
		reader, err := r.connector.OpenReader(ctx, r.resources.Connection, r.cfg.CacheReader)
		if err != nil {
			return errors.Wrap(err, "Runner", "connect", "open cache reader")
		}
		r.resources.CacheReader = reader
	}

	for _, rc := range r.cfg.CatalogReaders {
		reader, err := r.connector.OpenReader(ctx, r.resources.Connection, config.ReaderConfig{
			Subject: rc.Subject,
			Name:    rc.Name,
		})
		if err != nil {
			return errors.Wrap(err, "Runner", "connect", fmt.Sprintf("open catalogue reader of %s", rc.FeedPublisherID))
		}
		r.resources.FeedReaders = append(r.resources.FeedReaders, FeedReader{
			FeedPublisherID: profiler.FeedPublisherID(rc.FeedPublisherID),
			Reader:          reader,
		})
	}
	return nil
}

func (r *Runner) connectProducer(ctx context.Context) error {
	conn, err := r.connector.Connect(ctx)
	if err != nil {
		return errors.Wrap(err, "Runner", "connect", "connect to broker")
	}
	r.resources.Connection = conn

	producer, err := r.connector.OpenProducer(ctx, conn, r.cfg.Producer.Subject)
	if err != nil {
		return errors.Wrap(err, "Runner", "connect", "open producer")
	}
	r.resources.Producer = producer
	return nil
}

func (r *Runner) sources() profiler.Sources {
	var src profiler.Sources
	if r.resources.CacheReader != nil {
		src.Cache = r.resources.CacheReader
	}
	for _, fr := range r.resources.FeedReaders {
		src.Feeds = append(src.Feeds, profiler.FeedSource{
			FeedPublisherID: fr.FeedPublisherID,
			Reader:          fr.Reader,
		})
	}
	return src
}

// BeginCompute releases the transport before the long computation
func (r *Runner) BeginCompute(ctx context.Context) error {
	if err := r.phase.Transition(PhaseDisconnectedForCompute); err != nil {
		return err
	}
	if err := r.resources.ReleaseTransport(ctx, r.logger); err != nil {
		r.logger.WarnContext(ctx, "Could not release the transport cleanly before computing", "error", err)
	}
	r.logger.DebugContext(ctx, "Released the transport for the computation")
	return nil
}

// EndCompute reconnects the producer after the computation
func (r *Runner) EndCompute(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Reconnecting to the message broker")
	if err := r.connectProducer(ctx); err != nil {
		return err
	}
	return r.phase.Transition(PhaseReconnected)
}

func (r *Runner) publish(ctx context.Context, snapshot *profiler.Snapshot) error {
	if phase := r.phase.Current(); !phase.CanPublish() || r.resources.Producer == nil {
		return errors.WrapFatal(fmt.Errorf("cannot publish in phase %s", phase), "Runner", "publish", "check phase")
	}

	r.logger.InfoContext(ctx, "Send the profiles",
		"subject", r.cfg.Producer.Subject,
		"models", len(snapshot.Collection.ModelProfiles),
		"vehicles", len(snapshot.Collection.VehicleModels),
		"eventTimestamp", snapshot.EventTimestamp,
		"eventTime", timestamp.Format(snapshot.EventTimestamp))

	if err := r.resources.Producer.Send(ctx, snapshot.Data, snapshot.EventTimestamp); err != nil {
		return errors.Wrap(err, "Runner", "publish", "send profiles")
	}
	if err := r.resources.Producer.Flush(ctx); err != nil {
		return errors.Wrap(err, "Runner", "publish", "flush producer")
	}

	r.metrics.RecordSnapshotPublished(r.cfg.Producer.Subject)
	r.metrics.RecordCycle(metric.OutcomePublished)
	return nil
}
