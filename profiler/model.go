package profiler

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/oracle"
)

var modelPattern = regexp.MustCompile(`^\d+-\d+$`)

// MaxCapacity bounds both capacities of a model. Catalogue messages are held
// to the same bound by their schema.
const MaxCapacity = 100000

// CapacityModel is the (seating, standing) capacity pair. Profiles are
// computed and cached per model.
type CapacityModel struct {
	Seating  int
	Standing int
}

// String returns the canonical "seating-standing" form
func (m CapacityModel) String() string {
	return strconv.Itoa(m.Seating) + "-" + strconv.Itoa(m.Standing)
}

// FileName is the name of the profile file the oracle writes for m
func (m CapacityModel) FileName() string {
	return m.String() + ".csv"
}

// MaximumCount is the total capacity
func (m CapacityModel) MaximumCount() int {
	return m.Seating + m.Standing
}

// ParseCapacityModel parses a model string. Only non-negative decimal
// integers are accepted; leading zeros parse ("123-00" is 123-0).
func ParseCapacityModel(s string) (CapacityModel, error) {
	if !modelPattern.MatchString(s) {
		return CapacityModel{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrInvalidModel, s),
			"CapacityModel", "Parse", "match model pattern")
	}
	seating, standing, _ := strings.Cut(s, "-")
	sn, err := strconv.Atoi(seating)
	if err != nil {
		return CapacityModel{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q: %w", errors.ErrInvalidModel, s, err),
			"CapacityModel", "Parse", "parse seating capacity")
	}
	bn, err := strconv.Atoi(standing)
	if err != nil {
		return CapacityModel{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q: %w", errors.ErrInvalidModel, s, err),
			"CapacityModel", "Parse", "parse standing capacity")
	}
	if sn > MaxCapacity || bn > MaxCapacity {
		return CapacityModel{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q exceeds capacity %d", errors.ErrInvalidModel, s, MaxCapacity),
			"CapacityModel", "Parse", "check capacity bounds")
	}
	return CapacityModel{Seating: sn, Standing: bn}, nil
}

// compareModels orders models by seating, then standing
func compareModels(a, b CapacityModel) int {
	if a.Seating != b.Seating {
		return a.Seating - b.Seating
	}
	return a.Standing - b.Standing
}

func sortedModels(set map[CapacityModel]struct{}) []CapacityModel {
	models := make([]CapacityModel, 0, len(set))
	for m := range set {
		models = append(models, m)
	}
	slices.SortFunc(models, compareModels)
	return models
}

func modelStrings(models []CapacityModel) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.String()
	}
	return out
}

// Occupancy category coefficients, agreed with the public transport
// authorities. Not tunable.
const (
	manySeatsSeatingFactor = 0.12
	fewSeatsSeatingFactor  = 0.73
	standingOnlyFactor     = 0.93
	crushedSeatingFactor   = 0.95
	crushedStandingFactor  = 0.48
	fullSeatingFactor      = 0.95
	fullStandingFactor     = 0.83
)

// MinimumCounts derives the minimum passenger count per occupancy category.
// Rounding is half away from zero.
func MinimumCounts(m CapacityModel) oracle.MinimumCounts {
	s := float64(m.Seating)
	b := float64(m.Standing)
	return oracle.MinimumCounts{
		Empty:                   0,
		ManySeatsAvailable:      int(math.Round(manySeatsSeatingFactor * s)),
		FewSeatsAvailable:       int(math.Round(fewSeatsSeatingFactor * s)),
		StandingRoomOnly:        int(math.Round(standingOnlyFactor * s)),
		CrushedStandingRoomOnly: int(math.Round(crushedSeatingFactor*s + crushedStandingFactor*b)),
		Full:                    int(math.Round(fullSeatingFactor*s + fullStandingFactor*b)),
	}
}

// VehicleModelRequest is the oracle request entry for m
func VehicleModelRequest(m CapacityModel) oracle.VehicleModel {
	return oracle.VehicleModel{
		OutputFilename: m.FileName(),
		MinimumCounts:  MinimumCounts(m),
		MaximumCount:   m.MaximumCount(),
	}
}
