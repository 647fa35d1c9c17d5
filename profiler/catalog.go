package profiler

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/metric"
)

// FeedPublisherID identifies one upstream feed, e.g. "fi:kuopio"
type FeedPublisherID string

// VehicleKey identifies a vehicle across feeds: "feed:operator_vehicle"
type VehicleKey string

// NewVehicleKey builds the feed-qualified key of v
func NewVehicleKey(feed FeedPublisherID, v message.Vehicle) VehicleKey {
	return VehicleKey(string(feed) + ":" + v.VehicleString())
}

// FeedCatalog is the latest catalog read from one feed
type FeedCatalog struct {
	FeedPublisherID FeedPublisherID
	Subject         string

	// Envelope is the latest message, nil when the subject had none
	Envelope *message.Envelope

	// Vehicles is set only when Valid
	Vehicles message.VehicleAPCMapping
	Valid    bool
}

// MappedVehicle is one vehicle that needs a profile
type MappedVehicle struct {
	Feed  FeedPublisherID
	Model CapacityModel
}

// Aggregation is the merged vehicle to model mapping of all feeds
type Aggregation struct {
	Vehicles map[VehicleKey]MappedVehicle
}

// Models returns the model of every vehicle keyed by vehicle key
func (a Aggregation) Models() map[VehicleKey]CapacityModel {
	out := make(map[VehicleKey]CapacityModel, len(a.Vehicles))
	for k, v := range a.Vehicles {
		out[k] = v.Model
	}
	return out
}

// Contributed reports whether feed has at least one mapped vehicle
func (a Aggregation) Contributed(feed FeedPublisherID) bool {
	for _, v := range a.Vehicles {
		if v.Feed == feed {
			return true
		}
	}
	return false
}

// Aggregator merges per-feed catalogs into one mapping
type Aggregator struct {
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewAggregator creates an Aggregator
func NewAggregator(logger *slog.Logger, metrics *metric.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger, metrics: metrics}
}

// Aggregate keeps the vehicles that carry a passenger counter and have both
// capacities. Feeds are processed in feed id order.
func (a *Aggregator) Aggregate(ctx context.Context, feeds []FeedCatalog) Aggregation {
	feeds = slices.Clone(feeds)
	slices.SortFunc(feeds, func(x, y FeedCatalog) int {
		return strings.Compare(string(x.FeedPublisherID), string(y.FeedPublisherID))
	})

	result := Aggregation{Vehicles: make(map[VehicleKey]MappedVehicle)}
	for _, feed := range feeds {
		if !feed.Valid {
			logging.Critical(ctx, a.logger,
				"No valid catalogue message was found for the feed. Hopefully the subject will soon get written to.",
				"feedPublisherId", feed.FeedPublisherID,
				"subject", feed.Subject,
				"messageFound", feed.Envelope != nil)
			continue
		}

		withAPC := a.keepVehiclesWithAPC(ctx, feed)
		mapped := 0
		missingCapacity := 0
		for _, v := range withAPC {
			seating, standing, ok := v.Capacities()
			if !ok {
				missingCapacity++
				a.logger.ErrorContext(ctx,
					"The vehicle does not have seatingCapacity or standingCapacity defined so no anonymization profile can be created for it. If either value should be zero, mark it explicitly so in the vehicle registry.",
					"feedPublisherId", feed.FeedPublisherID,
					"vehicle", v)
				continue
			}
			result.Vehicles[NewVehicleKey(feed.FeedPublisherID, v)] = MappedVehicle{
				Feed:  feed.FeedPublisherID,
				Model: CapacityModel{Seating: seating, Standing: standing},
			}
			mapped++
		}

		a.metrics.RecordVehiclesExcluded(string(feed.FeedPublisherID), metric.ReasonNoPassengerCounter,
			len(feed.Vehicles)-len(withAPC))
		a.metrics.RecordVehiclesExcluded(string(feed.FeedPublisherID), metric.ReasonMissingCapacity,
			missingCapacity)

		a.logger.DebugContext(ctx, "Mapped vehicles of the feed to vehicle models",
			"feedPublisherId", feed.FeedPublisherID,
			"vehicles", len(feed.Vehicles),
			"vehiclesWithApc", len(withAPC),
			"mappedVehicles", mapped)
	}
	return result
}

func (a *Aggregator) keepVehiclesWithAPC(ctx context.Context, feed FeedCatalog) []message.Vehicle {
	kept := make([]message.Vehicle, 0, len(feed.Vehicles))
	var multiple []message.Vehicle
	for _, v := range feed.Vehicles {
		n := v.PassengerCounterCount()
		if n == 0 {
			continue
		}
		kept = append(kept, v)
		if n > 1 {
			multiple = append(multiple, v)
		}
	}

	if len(multiple) > 0 {
		slices.SortFunc(multiple, func(x, y message.Vehicle) int {
			return strings.Compare(x.VehicleString(), y.VehicleString())
		})
		counts := make([]multipleAPC, len(multiple))
		for i, v := range multiple {
			counts[i] = multipleAPC{Vehicle: v.VehicleString(), PassengerCounters: v.PassengerCounterCount()}
		}
		a.logger.InfoContext(ctx, `Found vehicles with more than one system of type "PASSENGER_COUNTER"`,
			"feedPublisherId", feed.FeedPublisherID,
			"subject", feed.Subject,
			"numberOfVehiclesWithMultipleApcSystems", len(multiple),
			"vehiclesWithMultipleApcSystems", counts)
	}
	return kept
}

type multipleAPC struct {
	Vehicle           string `json:"vehicle"`
	PassengerCounters int    `json:"passengerCounters"`
}
