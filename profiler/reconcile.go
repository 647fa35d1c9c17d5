package profiler

import (
	"slices"
)

// Reconciliation compares the models the catalogs need with the cached ones
type Reconciliation struct {
	// Needed lists every model referenced by a mapped vehicle, sorted
	Needed []CapacityModel
	// Have holds the cached profiles keyed by parsed model
	Have map[CapacityModel]string
	// Missing lists the needed models without a cached profile, sorted
	Missing []CapacityModel
	// InvalidCacheKeys lists cache keys that are not model strings
	InvalidCacheKeys []string
}

// UpToDate reports whether every needed model already has a profile
func (r Reconciliation) UpToDate() bool {
	return len(r.Missing) == 0
}

// Reconcile computes missing = needed - have. Cache keys that do not parse
// are reported in InvalidCacheKeys and otherwise ignored. When two cache keys
// denote the same model, the canonical key wins.
func Reconcile(agg Aggregation, cache map[string]string) Reconciliation {
	keys := make([]string, 0, len(cache))
	for k := range cache {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rec := Reconciliation{Have: make(map[CapacityModel]string, len(cache))}
	for _, k := range keys {
		model, err := ParseCapacityModel(k)
		if err != nil {
			rec.InvalidCacheKeys = append(rec.InvalidCacheKeys, k)
			continue
		}
		if _, seen := rec.Have[model]; seen && model.String() != k {
			continue
		}
		rec.Have[model] = cache[k]
	}

	needed := make(map[CapacityModel]struct{})
	missing := make(map[CapacityModel]struct{})
	for _, v := range agg.Vehicles {
		needed[v.Model] = struct{}{}
		if _, ok := rec.Have[v.Model]; !ok {
			missing[v.Model] = struct{}{}
		}
	}
	rec.Needed = sortedModels(needed)
	rec.Missing = sortedModels(missing)
	return rec
}
