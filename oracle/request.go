package oracle

// ConfigurationVersion is the request format version the oracle accepts
const ConfigurationVersion = "1-0-0"

// MechanismSimple selects the oracle's default inference mechanism
const MechanismSimple = "simple"

// MinimumCounts holds the minimum passenger count of each occupancy category
type MinimumCounts struct {
	Empty                   int `json:"EMPTY"`
	ManySeatsAvailable      int `json:"MANY_SEATS_AVAILABLE"`
	FewSeatsAvailable       int `json:"FEW_SEATS_AVAILABLE"`
	StandingRoomOnly        int `json:"STANDING_ROOM_ONLY"`
	CrushedStandingRoomOnly int `json:"CRUSHED_STANDING_ROOM_ONLY"`
	Full                    int `json:"FULL"`
}

// Ordered returns the counts from EMPTY to FULL
func (m MinimumCounts) Ordered() []int {
	return []int{
		m.Empty,
		m.ManySeatsAvailable,
		m.FewSeatsAvailable,
		m.StandingRoomOnly,
		m.CrushedStandingRoomOnly,
		m.Full,
	}
}

// VehicleModel asks for one profile, written to OutputFilename
type VehicleModel struct {
	OutputFilename string        `json:"outputFilename"`
	MinimumCounts  MinimumCounts `json:"minimumCounts"`
	MaximumCount   int           `json:"maximumCount"`
}

// Inference selects how profiles are inferred
type Inference struct {
	Mechanism string `json:"mechanism"`
}

// Request is one batched computation. The oracle writes every profile into
// OutputDirectory.
type Request struct {
	ConfigurationVersion string         `json:"configurationVersion"`
	OutputDirectory      string         `json:"outputDirectory"`
	VehicleModels        []VehicleModel `json:"vehicleModels"`
	Inference            Inference      `json:"inference"`
}

// NewRequest returns a request for models with the default inference mechanism
func NewRequest(outputDirectory string, models []VehicleModel) Request {
	return Request{
		ConfigurationVersion: ConfigurationVersion,
		OutputDirectory:      outputDirectory,
		VehicleModels:        models,
		Inference:            Inference{Mechanism: MechanismSimple},
	}
}
