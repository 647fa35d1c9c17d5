package testutil

import (
	"github.com/waltti/apcprofiler/message"
)

// Feeds and subjects of the catalog fixtures
const (
	FeedKuopio    = "fi:kuopio"
	FeedJyvaskyla = "fi:jyvaskyla"

	SubjectKuopio    = "catalogue.fi.kuopio"
	SubjectJyvaskyla = "catalogue.fi.jyvaskyla"
	SubjectProfiles  = "apc.profiles"

	KuopioEventTimestamp    int64 = 123
	JyvaskylaEventTimestamp int64 = 234
)

// KuopioCatalog has one vehicle without a passenger counter, one with three,
// one with two, one with neither counter nor standing capacity, and one with
// a counter but no standing capacity.
const KuopioCatalog = `[
  {
    "operatorId": "44517",
    "vehicleShortName": "1",
    "vehicleRegistrationNumber": "ILL-607",
    "standingCapacity": 77,
    "seatingCapacity": 49,
    "equipment": [{"type": "LOCATION_PRODUCER", "id": "130716"}]
  },
  {
    "operatorId": "44517",
    "vehicleShortName": "6",
    "vehicleRegistrationNumber": "ILL-602",
    "standingCapacity": 77,
    "seatingCapacity": 49,
    "equipment": [
      {"type": "LOCATION_PRODUCER", "id": "131185"},
      {"type": "PASSENGER_COUNTER", "id": "DL-Mccl1", "apcSystem": "DEAL_COMP"},
      {"type": "PASSENGER_COUNTER", "id": "emblica-sc02-apc-device1", "apcSystem": "EMBLICA"},
      {"type": "PASSENGER_COUNTER", "id": "KL006-APC", "apcSystem": "TELIA"}
    ]
  },
  {
    "operatorId": "44517",
    "vehicleShortName": "160",
    "vehicleRegistrationNumber": "JLJ-160",
    "standingCapacity": 38,
    "seatingCapacity": 39,
    "equipment": [
      {"type": "LOCATION_PRODUCER", "id": "131176"},
      {"type": "PASSENGER_COUNTER", "id": "emblica-sc01-apc-device1", "apcSystem": "EMBLICA"},
      {"type": "PASSENGER_COUNTER", "id": "KL160-APC", "apcSystem": "TELIA"}
    ]
  },
  {
    "operatorId": "44517",
    "vehicleShortName": "44",
    "vehicleRegistrationNumber": "ERV-344",
    "seatingCapacity": 59,
    "equipment": [{"type": "LOCATION_PRODUCER", "id": "130951"}]
  },
  {
    "operatorId": "44517",
    "vehicleShortName": "99",
    "vehicleRegistrationNumber": "KUO-099",
    "seatingCapacity": 35,
    "equipment": [{"type": "PASSENGER_COUNTER", "id": "KL099-APC", "apcSystem": "TELIA"}]
  }
]`

// JyvaskylaCatalog has one vehicle without a passenger counter, two sharing
// a model, and one with a counter but no seating capacity.
const JyvaskylaCatalog = `[
  {
    "operatorId": "6714",
    "vehicleShortName": "123",
    "vehicleRegistrationNumber": "FOO-000",
    "standingCapacity": 1,
    "seatingCapacity": 2,
    "equipment": [{"type": "LOCATION_PRODUCER", "id": "NIX"}]
  },
  {
    "operatorId": "6714",
    "vehicleShortName": "518",
    "vehicleRegistrationNumber": "BAR-100",
    "standingCapacity": 68,
    "seatingCapacity": 49,
    "equipment": [
      {"type": "PASSENGER_COUNTER", "id": "emblica-sc04-apc-device1", "apcSystem": "EMBLICA"},
      {"type": "PASSENGER_COUNTER", "id": "JL518-APC", "apcSystem": "TELIA"}
    ]
  },
  {
    "operatorId": "6714",
    "vehicleShortName": "521",
    "vehicleRegistrationNumber": "BAZ-200",
    "standingCapacity": 68,
    "seatingCapacity": 49,
    "equipment": [
      {"type": "PASSENGER_COUNTER", "id": "emblica-sc03-apc-device1", "apcSystem": "EMBLICA"},
      {"type": "PASSENGER_COUNTER", "id": "JL521-APC", "apcSystem": "TELIA"}
    ]
  },
  {
    "operatorId": "6714",
    "vehicleShortName": "700",
    "vehicleRegistrationNumber": "QUX-700",
    "standingCapacity": 40,
    "equipment": [{"type": "PASSENGER_COUNTER", "id": "JL700-APC", "apcSystem": "TELIA"}]
  }
]`

// ExpectedVehicleModels is the vehicle mapping the fixtures produce
func ExpectedVehicleModels() map[string]string {
	return map[string]string{
		"fi:jyvaskyla:6714_518": "49-68",
		"fi:jyvaskyla:6714_521": "49-68",
		"fi:kuopio:44517_160":   "39-38",
		"fi:kuopio:44517_6":     "49-77",
	}
}

// ExpectedModels lists the models the fixtures need, sorted
func ExpectedModels() []string {
	return []string{"39-38", "49-68", "49-77"}
}

// NewEnvelope wraps data as a message received on subject
func NewEnvelope(subject, data string, eventTimestamp int64) *message.Envelope {
	return &message.Envelope{
		Subject:        subject,
		Data:           []byte(data),
		EventTimestamp: eventTimestamp,
	}
}

// KuopioEnvelope is the Kuopio catalog message
func KuopioEnvelope() *message.Envelope {
	return NewEnvelope(SubjectKuopio, KuopioCatalog, KuopioEventTimestamp)
}

// JyvaskylaEnvelope is the Jyväskylä catalog message
func JyvaskylaEnvelope() *message.Envelope {
	return NewEnvelope(SubjectJyvaskyla, JyvaskylaCatalog, JyvaskylaEventTimestamp)
}

// ProfileCollectionJSON renders a cache message body
func ProfileCollectionJSON(vehicleModels, modelProfiles map[string]string) string {
	collection := message.ProfileCollection{
		SchemaVersion: message.ProfileCollectionSchemaVersion,
		VehicleModels: vehicleModels,
		ModelProfiles: modelProfiles,
	}
	return string(mustJSON(collection))
}
