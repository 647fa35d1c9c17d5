package profiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/oracle"
	"github.com/waltti/apcprofiler/schema"
)

// Reader reads the retained messages of one subject
type Reader interface {
	Subject() string
	HasMessageAvailable(ctx context.Context) (bool, error)
	ReadNext(ctx context.Context) (*message.Envelope, error)
}

// FeedSource is the reader of one feed's catalog subject
type FeedSource struct {
	FeedPublisherID FeedPublisherID
	Reader          Reader
}

// Sources are the readers of one invocation. Cache is nil on a fresh start.
type Sources struct {
	Cache Reader
	Feeds []FeedSource
}

// Inputs is everything read from the transport
type Inputs struct {
	Cache *message.ProfileCollection
	Feeds []FeedCatalog
}

// HasAnyMessage reports whether at least one feed had a message
func (in Inputs) HasAnyMessage() bool {
	for _, f := range in.Feeds {
		if f.Envelope != nil {
			return true
		}
	}
	return false
}

// ComputeHooks frame the oracle call. BeginCompute runs right before it,
// EndCompute right after it succeeded.
type ComputeHooks interface {
	BeginCompute(ctx context.Context) error
	EndCompute(ctx context.Context) error
}

// NoopHooks does nothing around the computation
type NoopHooks struct{}

// BeginCompute implements ComputeHooks
func (NoopHooks) BeginCompute(context.Context) error { return nil }

// EndCompute implements ComputeHooks
func (NoopHooks) EndCompute(context.Context) error { return nil }

// Config configures a Processor
type Config struct {
	Validator *schema.Validator
	Oracle    oracle.Oracle
	Policy    Policy
	WorkDir   string
	Logger    *slog.Logger
	Metrics   *metric.Metrics
}

// Processor drives one profiling cycle:
// ReadInputs, Reconcile, then either skip or Compute and Compose.
type Processor struct {
	boundary     *schema.Boundary
	aggregator   *Aggregator
	orchestrator *Orchestrator
	composer     *Composer
	logger       *slog.Logger
	metrics      *metric.Metrics
}

// NewProcessor creates a Processor
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Validator == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: validator", errors.ErrMissingConfig),
			"Processor", "New", "check dependencies")
	}
	if cfg.Oracle == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: oracle", errors.ErrMissingConfig),
			"Processor", "New", "check dependencies")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyDropVehicles
	}

	return &Processor{
		boundary:     schema.NewBoundary(cfg.Validator, logger),
		aggregator:   NewAggregator(logger, cfg.Metrics),
		orchestrator: NewOrchestrator(cfg.Oracle, cfg.WorkDir, logger, cfg.Metrics),
		composer:     NewComposer(cfg.Validator, policy, logger, cfg.Metrics),
		logger:       logger,
		metrics:      cfg.Metrics,
	}, nil
}

// ReadLatest drains r and returns its last message, or nil if it had none
func ReadLatest(ctx context.Context, r Reader) (*message.Envelope, error) {
	var latest *message.Envelope
	for {
		available, err := r.HasMessageAvailable(ctx)
		if err != nil {
			return nil, err
		}
		if !available {
			return latest, nil
		}

		env, err := r.ReadNext(ctx)
		if err != nil {
			if stderrors.Is(err, errors.ErrNoMessages) {
				return latest, nil
			}
			return nil, err
		}
		latest = env
	}
}

// ReadInputs reads the cache and the latest catalog of every feed. Feeds are
// drained in parallel; their diagnostics are logged afterwards in feed id
// order.
func (p *Processor) ReadInputs(ctx context.Context, src Sources) (Inputs, error) {
	in := Inputs{Cache: message.NewProfileCollection()}

	if src.Cache == nil {
		p.logger.InfoContext(ctx, "Skip warming up cache and create all anonymization profiles from scratch")
	} else {
		p.logger.InfoContext(ctx, "Warm up cache")
		env, err := ReadLatest(ctx, src.Cache)
		if err != nil {
			return Inputs{}, errors.Wrap(err, "Processor", "ReadInputs", "read cache")
		}
		if env == nil {
			p.logger.InfoContext(ctx,
				"While warming up the cache, we found no old profiles. Hopefully this is the first time this service runs. Otherwise check the retention of the stream or the state of the vehicle catalogue upstream.",
				"subject", src.Cache.Subject())
		} else if cache, ok := p.boundary.Collection(ctx, env); ok {
			in.Cache = cache
		}
	}

	feeds := slices.Clone(src.Feeds)
	slices.SortFunc(feeds, func(x, y FeedSource) int {
		return strings.Compare(string(x.FeedPublisherID), string(y.FeedPublisherID))
	})

	p.logger.InfoContext(ctx, "Read latest message from each catalogue subject", "feeds", len(feeds))
	latest := make([]*message.Envelope, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		g.Go(func() error {
			env, err := ReadLatest(gctx, feed.Reader)
			if err != nil {
				return errors.Wrap(err, "Processor", "ReadInputs",
					fmt.Sprintf("read catalogue of %s", feed.FeedPublisherID))
			}
			latest[i] = env
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}

	in.Feeds = make([]FeedCatalog, len(feeds))
	for i, feed := range feeds {
		catalog := FeedCatalog{
			FeedPublisherID: feed.FeedPublisherID,
			Subject:         feed.Reader.Subject(),
			Envelope:        latest[i],
		}
		status := metric.FeedStatusMissing
		if latest[i] != nil {
			status = metric.FeedStatusInvalid
			if vehicles, ok := p.boundary.Catalog(ctx, latest[i], "feedPublisherId", feed.FeedPublisherID); ok {
				catalog.Vehicles = vehicles
				catalog.Valid = true
				status = metric.FeedStatusValid
			}
		}
		p.metrics.RecordFeedMessage(string(feed.FeedPublisherID), status)
		in.Feeds[i] = catalog
	}
	return in, nil
}

// Run reconciles the inputs and, if any model lacks a profile, computes the
// missing ones and composes a snapshot. A nil snapshot means there is
// nothing to publish.
func (p *Processor) Run(ctx context.Context, in Inputs, hooks ComputeHooks) (*Snapshot, error) {
	if hooks == nil {
		hooks = NoopHooks{}
	}

	if !in.HasAnyMessage() {
		p.logger.InfoContext(ctx, "No messages were found from any catalogue subject so there is nothing to do")
		p.metrics.RecordCycle(metric.OutcomeSkippedNoFeeds)
		return nil, nil
	}
	p.logger.InfoContext(ctx,
		"At least one message was found when reading all the catalogue subjects. Try to form a message if there is anything new to send.")

	agg := p.aggregator.Aggregate(ctx, in.Feeds)

	cache := map[string]string{}
	if in.Cache != nil && in.Cache.ModelProfiles != nil {
		cache = in.Cache.ModelProfiles
	}
	rec := Reconcile(agg, cache)
	if len(rec.InvalidCacheKeys) > 0 {
		p.logger.ErrorContext(ctx, "Ignoring cached profiles whose key is not a vehicle model",
			"invalidKeys", rec.InvalidCacheKeys)
	}
	p.metrics.RecordReconciliation(len(agg.Vehicles), len(rec.Needed), len(rec.Missing))
	p.logger.DebugContext(ctx, "See if there are any new vehicle models",
		"neededModels", modelStrings(rec.Needed),
		"cachedModels", len(rec.Have))

	if rec.UpToDate() {
		p.logger.InfoContext(ctx, "No new vehicle models were found")
		p.metrics.RecordCycle(metric.OutcomeSkippedUpToDate)
		return nil, nil
	}
	p.logger.InfoContext(ctx, "New vehicle models were found", "newVehicleModels", modelStrings(rec.Missing))

	snapshot, err := p.compute(ctx, agg, rec, in, hooks)
	if err != nil {
		p.metrics.RecordCycle(metric.OutcomeFailed)
		return nil, err
	}
	if snapshot == nil {
		p.metrics.RecordCycle(metric.OutcomeNothingToSend)
	}
	return snapshot, nil
}

func (p *Processor) compute(ctx context.Context, agg Aggregation, rec Reconciliation, in Inputs, hooks ComputeHooks) (*Snapshot, error) {
	if err := hooks.BeginCompute(ctx); err != nil {
		return nil, errors.Wrap(err, "Processor", "Run", "begin computation")
	}

	computed, err := p.orchestrator.Compute(ctx, rec.Missing)
	if err != nil {
		return nil, err
	}

	if err := hooks.EndCompute(ctx); err != nil {
		return nil, errors.Wrap(err, "Processor", "Run", "end computation")
	}

	return p.composer.Compose(ctx, ComposeInput{
		Aggregation:    agg,
		Reconciliation: rec,
		Computed:       computed,
		Feeds:          in.Feeds,
	})
}
