// Package apcprofiler computes passenger count profiles for the vehicle
// capacity models in use across public transport feeds.
//
// # Overview
//
// Automatic passenger counting (APC) devices report raw counts. Turning a
// count into an occupancy status needs a profile per vehicle capacity model,
// the pair of seating and standing capacity. Each invocation of the profiler:
//
//  1. reads the latest vehicle catalogue of every feed publisher and the
//     latest profile collection it published itself;
//  2. maps every vehicle with a passenger counter and known capacities to its
//     capacity model;
//  3. if some model has no profile yet, releases the broker connection, runs
//     the external oracle once for all missing models, reconnects, and
//     publishes a new profile collection.
//
// An invocation that finds nothing new publishes nothing. Scheduling is
// external; the process exits when the cycle ends.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│  cmd/apcprofiler                     │  flags, config, signals, exit code
//	└──────────────────────────────────────┘
//	           ↓
//	┌──────────────────────────────────────┐
//	│  service.Runner                      │  resources, transport phases
//	└──────────────────────────────────────┘
//	           ↓ profiler.ComputeHooks
//	┌──────────────────────────────────────┐
//	│  profiler.Processor                  │  aggregate, reconcile,
//	│                                      │  compute, compose
//	└──────────────────────────────────────┘
//	     ↓                ↓
//	  schema           oracle
//	  (validation)     (external executable)
//
// Transport is NATS JetStream through natsclient. Supporting packages:
// config (environment), logging (slog with trace, critical and fatal levels),
// errors (classified errors), metric and health (Prometheus metrics and the
// liveness endpoint on one listener).
//
// # Package Organization
//
//   - cmd/apcprofiler: entry point
//   - service: runner, resources, broker connector
//   - profiler: the profiling cycle
//   - oracle: request format and executable runner
//   - schema: JSON Schema validation of message bodies
//   - message: catalogue, envelope and profile collection types
//   - natsclient: JetStream client, latest-message reader, producer
//   - config, logging, errors, metric, health: ambient infrastructure
//   - pkg/retry, pkg/timestamp, pkg/tlsutil: small utilities
//   - testutil: fixtures and in-memory fakes for tests
package apcprofiler
