// Package profiler reconciles vehicle catalogs against cached anonymization
// profiles and composes the profile collection to publish.
//
// One cycle runs ReadInputs, then Run:
//
//	in, err := p.ReadInputs(ctx, sources)
//	snapshot, err := p.Run(ctx, in, hooks)
//	if snapshot != nil {
//	    producer.Send(ctx, snapshot.Data, snapshot.EventTimestamp)
//	}
//
// Run aggregates the catalogs of all feeds into a vehicle to capacity model
// mapping (Aggregator), compares the needed models with the cached profiles
// (Reconcile), and returns nil when nothing is missing. Otherwise the missing
// models go to the oracle in one batch (Orchestrator) and the result is
// merged with the cache into a validated snapshot (Composer).
//
// Vehicles whose model still has no profile after the computation are
// handled by Policy: PolicyDropVehicles leaves them out of the snapshot,
// PolicyFailCycle aborts the cycle.
//
// ComputeHooks let the caller release and re-acquire transport resources
// around the oracle call, which can take hours.
package profiler
