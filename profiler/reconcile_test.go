package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func aggregationOf(models map[VehicleKey]CapacityModel) Aggregation {
	agg := Aggregation{Vehicles: make(map[VehicleKey]MappedVehicle, len(models))}
	for k, m := range models {
		agg.Vehicles[k] = MappedVehicle{Feed: "fi:test", Model: m}
	}
	return agg
}

func TestReconcile(t *testing.T) {
	agg := aggregationOf(map[VehicleKey]CapacityModel{
		"fi:test:1_1": {49, 77},
		"fi:test:1_2": {49, 77},
		"fi:test:1_3": {39, 38},
		"fi:test:1_4": {10, 0},
	})

	tests := []struct {
		name        string
		cache       map[string]string
		wantMissing []CapacityModel
		wantInvalid []string
	}{
		{
			name:        "cold cache",
			cache:       nil,
			wantMissing: []CapacityModel{{10, 0}, {39, 38}, {49, 77}},
		},
		{
			name:        "partial cache",
			cache:       map[string]string{"49-77": "a", "1-1": "stale"},
			wantMissing: []CapacityModel{{10, 0}, {39, 38}},
		},
		{
			name:  "complete cache",
			cache: map[string]string{"49-77": "a", "39-38": "b", "10-0": "c"},
		},
		{
			name:        "invalid keys are ignored",
			cache:       map[string]string{"49-77": "a", "39-38": "b", "ten-zero": "c"},
			wantMissing: []CapacityModel{{10, 0}},
			wantInvalid: []string{"ten-zero"},
		},
		{
			name:  "leading zeros denote the same model",
			cache: map[string]string{"49-77": "a", "039-38": "b", "10-00": "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Reconcile(agg, tt.cache)

			assert.Equal(t, []CapacityModel{{10, 0}, {39, 38}, {49, 77}}, rec.Needed)
			if tt.wantMissing == nil {
				assert.Empty(t, rec.Missing)
				assert.True(t, rec.UpToDate())
			} else {
				assert.Equal(t, tt.wantMissing, rec.Missing)
				assert.False(t, rec.UpToDate())
			}
			assert.Equal(t, tt.wantInvalid, rec.InvalidCacheKeys)
		})
	}
}

func TestReconcile_CanonicalKeyWins(t *testing.T) {
	agg := aggregationOf(map[VehicleKey]CapacityModel{"fi:test:1_1": {49, 77}})

	rec := Reconcile(agg, map[string]string{"049-77": "padded", "49-77": "canonical", "49-077": "padded too"})

	assert.Equal(t, "canonical", rec.Have[CapacityModel{49, 77}])
}

func TestReconcile_EmptyCatalog(t *testing.T) {
	rec := Reconcile(Aggregation{}, map[string]string{"49-77": "a"})

	assert.Empty(t, rec.Needed)
	assert.True(t, rec.UpToDate())
}
