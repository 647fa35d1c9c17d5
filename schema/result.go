package schema

import "github.com/waltti/apcprofiler/message"

// FailureKind names why a payload was rejected.
type FailureKind int

// Failure kinds
const (
	FailureNone FailureKind = iota
	// FailureDecode means the payload is not UTF-8 JSON.
	FailureDecode
	// FailureSchema means the JSON does not satisfy the schema.
	FailureSchema
	// FailureUnexpected covers everything else, including panics.
	FailureUnexpected
)

func (f FailureKind) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureDecode:
		return "decode"
	case FailureSchema:
		return "schema"
	case FailureUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Result is the outcome of Validate: a typed value or a failure, never both.
type Result struct {
	kind         Kind
	failure      FailureKind
	err          error
	raw          []byte
	decoded      any
	schemaErrors []string

	catalog    message.VehicleAPCMapping
	collection *message.ProfileCollection
}

func (r Result) fail(kind FailureKind, err error) Result {
	r.failure = kind
	r.err = err
	r.catalog = nil
	r.collection = nil
	return r
}

// Kind returns the schema the payload was validated against.
func (r Result) Kind() Kind { return r.kind }

// OK reports whether validation succeeded.
func (r Result) OK() bool { return r.failure == FailureNone && r.err == nil }

// Failure returns the failure kind, FailureNone on success.
func (r Result) Failure() FailureKind { return r.failure }

// Err returns the failure cause, nil on success.
func (r Result) Err() error { return r.err }

// Raw returns the payload as received.
func (r Result) Raw() []byte { return r.raw }

// Decoded returns the generic JSON value, nil when decoding failed.
func (r Result) Decoded() any { return r.decoded }

// SchemaErrors lists the schema violations of a FailureSchema result.
func (r Result) SchemaErrors() []string { return r.schemaErrors }

// Catalog returns the vehicle catalogue of a successful
// vehicle-apc-mapping result.
func (r Result) Catalog() (message.VehicleAPCMapping, bool) {
	if !r.OK() || r.kind != KindVehicleAPCMapping {
		return nil, false
	}
	return r.catalog, true
}

// Collection returns the profile collection of a successful
// profile-collection result.
func (r Result) Collection() (*message.ProfileCollection, bool) {
	if !r.OK() || r.kind != KindProfileCollection || r.collection == nil {
		return nil, false
	}
	return r.collection, true
}
