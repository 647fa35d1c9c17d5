package message

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PassengerCounterType is the equipment type tag of an automatic passenger
// counting device.
const PassengerCounterType = "PASSENGER_COUNTER"

// VehicleAPCMapping is the payload of a vehicle-APC mapping message: the
// vehicle catalog of one feed.
type VehicleAPCMapping []Vehicle

// Equipment is one device installed in a vehicle. Only Type drives
// processing; the other fields are kept for diagnostics. Raw holds the
// device as received, unknown fields included.
type Equipment struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	APCSystem string          `json:"apcSystem,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of data in Raw.
func (e *Equipment) UnmarshalJSON(data []byte) error {
	type Alias Equipment
	var decoded Alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*e = Equipment(decoded)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the device as received when it was decoded from JSON.
func (e Equipment) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type Alias Equipment
	return json.Marshal(Alias(e))
}

// Vehicle is one catalog entry, unique by (OperatorID, VehicleShortName)
// within a feed.
type Vehicle struct {
	OperatorID                string      `json:"operatorId"`
	VehicleShortName          string      `json:"vehicleShortName"`
	VehicleRegistrationNumber string      `json:"vehicleRegistrationNumber,omitempty"`
	SeatingCapacity           *int        `json:"seatingCapacity,omitempty"`
	StandingCapacity          *int        `json:"standingCapacity,omitempty"`
	Equipment                 []Equipment `json:"equipment"`
}

// maxExactInteger bounds the integers a float64 represents exactly
const maxExactInteger = 1 << 53

// UnmarshalJSON decodes a vehicle. Capacities may be written in any integral
// JSON number form, such as 49, 49.0 or 1e2.
func (v *Vehicle) UnmarshalJSON(data []byte) error {
	type Alias Vehicle
	aux := struct {
		*Alias
		SeatingCapacity  *json.Number `json:"seatingCapacity,omitempty"`
		StandingCapacity *json.Number `json:"standingCapacity,omitempty"`
	}{Alias: (*Alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	seating, err := integralCapacity("seatingCapacity", aux.SeatingCapacity)
	if err != nil {
		return err
	}
	standing, err := integralCapacity("standingCapacity", aux.StandingCapacity)
	if err != nil {
		return err
	}
	v.SeatingCapacity = seating
	v.StandingCapacity = standing
	return nil
}

func integralCapacity(field string, n *json.Number) (*int, error) {
	if n == nil {
		return nil, nil
	}
	if i, err := strconv.ParseInt(n.String(), 10, 0); err == nil {
		c := int(i)
		return &c, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number: %w", field, n.String(), err)
	}
	if f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
		return nil, fmt.Errorf("%s: %s is not an integer", field, n.String())
	}
	c := int(f)
	return &c, nil
}

// VehicleString identifies the vehicle within its feed.
func (v Vehicle) VehicleString() string {
	return v.OperatorID + "_" + v.VehicleShortName
}

// PassengerCounterCount returns the number of PASSENGER_COUNTER devices.
func (v Vehicle) PassengerCounterCount() int {
	n := 0
	for _, device := range v.Equipment {
		if device.Type == PassengerCounterType {
			n++
		}
	}
	return n
}

// HasPassengerCounter reports whether any device is a passenger counter.
func (v Vehicle) HasPassengerCounter() bool {
	return v.PassengerCounterCount() > 0
}

// Capacities returns both capacities, or ok=false when either is missing.
func (v Vehicle) Capacities() (seating, standing int, ok bool) {
	if v.SeatingCapacity == nil || v.StandingCapacity == nil {
		return 0, 0, false
	}
	return *v.SeatingCapacity, *v.StandingCapacity, true
}
