package profiler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/pkg/timestamp"
	"github.com/waltti/apcprofiler/schema"
)

// Policy decides what happens to vehicles whose model has no profile
type Policy string

// Policies
const (
	// PolicyDropVehicles removes those vehicles from the snapshot
	PolicyDropVehicles Policy = "drop-vehicles"
	// PolicyFailCycle aborts the cycle without publishing
	PolicyFailCycle Policy = "fail-cycle"
)

// ParsePolicy parses a policy name. The empty string is PolicyDropVehicles.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDropVehicles:
		return PolicyDropVehicles, nil
	case PolicyFailCycle:
		return PolicyFailCycle, nil
	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: unknown missing profile policy %q", errors.ErrInvalidConfig, s),
			"Policy", "Parse", "parse policy")
	}
}

// Snapshot is a composed profile collection ready to publish
type Snapshot struct {
	Collection     *message.ProfileCollection
	Data           []byte
	EventTimestamp int64
}

// ComposeInput carries everything the composer needs from earlier steps
type ComposeInput struct {
	Aggregation    Aggregation
	Reconciliation Reconciliation
	Computed       map[string]string
	Feeds          []FeedCatalog
}

// Composer assembles the outgoing profile collection
type Composer struct {
	validator *schema.Validator
	policy    Policy
	logger    *slog.Logger
	metrics   *metric.Metrics
	now       func() int64
}

// NewComposer creates a Composer
func NewComposer(validator *schema.Validator, policy Policy, logger *slog.Logger, metrics *metric.Metrics) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = PolicyDropVehicles
	}
	return &Composer{
		validator: validator,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
		now:       timestamp.Now,
	}
}

// Compose builds and validates the snapshot. It returns nil without error
// when nothing is left to publish.
func (c *Composer) Compose(ctx context.Context, in ComposeInput) (*Snapshot, error) {
	// newly computed entries are exactly the previously missing models
	available := make(map[string]string, len(in.Reconciliation.Have)+len(in.Computed))
	for model, profile := range in.Reconciliation.Have {
		available[model.String()] = profile
	}
	for model, profile := range in.Computed {
		available[model] = profile
	}

	profiles := make(map[string]string, len(in.Reconciliation.Needed))
	for _, model := range in.Reconciliation.Needed {
		if profile, ok := available[model.String()]; ok {
			profiles[model.String()] = profile
		}
	}

	vehicleModels := make(map[string]string, len(in.Aggregation.Vehicles))
	var unresolved []VehicleKey
	for key, v := range in.Aggregation.Vehicles {
		model := v.Model.String()
		if _, ok := profiles[model]; !ok {
			unresolved = append(unresolved, key)
			continue
		}
		vehicleModels[string(key)] = model
	}

	if len(unresolved) > 0 {
		if err := c.handleUnresolved(ctx, in.Aggregation, unresolved); err != nil {
			return nil, err
		}
	}

	if len(vehicleModels) == 0 {
		c.logger.ErrorContext(ctx, "No vehicle has an anonymization profile so there is nothing to send")
		return nil, nil
	}

	collection := &message.ProfileCollection{
		SchemaVersion: message.ProfileCollectionSchemaVersion,
		VehicleModels: vehicleModels,
		ModelProfiles: profiles,
	}

	// encoding/json writes map keys in sorted order
	data, err := json.Marshal(collection)
	if err != nil {
		return nil, errors.WrapFatal(err, "Composer", "Compose", "encode profile collection")
	}

	result := c.validator.Validate(schema.KindProfileCollection, data)
	if !result.OK() {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrOutputInvalid, result.Err()),
			"Composer", "Compose", "validate profile collection")
	}

	return &Snapshot{
		Collection:     collection,
		Data:           data,
		EventTimestamp: c.eventTimestamp(ctx, in),
	}, nil
}

func (c *Composer) handleUnresolved(ctx context.Context, agg Aggregation, unresolved []VehicleKey) error {
	slices.Sort(unresolved)

	modelSet := make(map[CapacityModel]struct{})
	perFeed := make(map[FeedPublisherID]int)
	for _, key := range unresolved {
		v := agg.Vehicles[key]
		modelSet[v.Model] = struct{}{}
		perFeed[v.Feed]++
	}
	models := modelStrings(sortedModels(modelSet))

	if c.policy == PolicyFailCycle {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrIncompleteProfiles, strings.Join(models, ", ")),
			"Composer", "Compose", "resolve vehicle profiles")
	}

	c.logger.ErrorContext(ctx, "Leaving out vehicles whose vehicle model has no anonymization profile",
		"vehicles", unresolved,
		"models", models)
	for feed, n := range perFeed {
		c.metrics.RecordVehiclesExcluded(string(feed), metric.ReasonMissingProfile, n)
	}
	return nil
}

// eventTimestamp is the earliest event time of the latest feed messages,
// or the wall clock when no message carries one.
func (c *Composer) eventTimestamp(ctx context.Context, in ComposeInput) int64 {
	feeds := slices.Clone(in.Feeds)
	slices.SortFunc(feeds, func(x, y FeedCatalog) int {
		return strings.Compare(string(x.FeedPublisherID), string(y.FeedPublisherID))
	})

	var stamps []int64
	for _, feed := range feeds {
		if feed.Envelope == nil {
			continue
		}
		if feed.Envelope.HasEventTimestamp() {
			stamps = append(stamps, feed.Envelope.EventTimestamp)
			continue
		}
		if in.Aggregation.Contributed(feed.FeedPublisherID) {
			logging.Critical(ctx, c.logger,
				"Event timestamp must exist as we have computed new models and that requires that a message has been received. Either we have a logic error or the message is missing its event timestamp in the source subject.",
				"feedPublisherId", feed.FeedPublisherID,
				"subject", feed.Subject,
				"headers", feed.Envelope.Headers)
		}
	}

	if earliest, ok := timestamp.Earliest(stamps...); ok {
		return earliest
	}
	return c.now()
}
