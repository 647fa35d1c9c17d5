package message

// ProfileCollectionSchemaVersion is the only schema version this service
// writes.
const ProfileCollectionSchemaVersion = "1-0-0"

// ProfileCollection is the produced snapshot and, read back from the same
// subject, the cache of the next invocation.
//
// VehicleModels maps vehicle keys ("feed:operator_vehicle") to model strings
// ("seating-standing"). ModelProfiles maps model strings to the CSV profile
// text. encoding/json writes map keys in sorted order, which keeps the
// serialized snapshot deterministic.
type ProfileCollection struct {
	SchemaVersion string            `json:"schemaVersion"`
	VehicleModels map[string]string `json:"vehicleModels"`
	ModelProfiles map[string]string `json:"modelProfiles"`
}

// NewProfileCollection returns an empty collection with the current schema version.
func NewProfileCollection() *ProfileCollection {
	return &ProfileCollection{
		SchemaVersion: ProfileCollectionSchemaVersion,
		VehicleModels: map[string]string{},
		ModelProfiles: map[string]string{},
	}
}
