package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/message"
)

//go:embed schemas/*.schema.json
var schemaFiles embed.FS

// Kind selects the schema a payload is validated against.
type Kind string

// Supported message kinds
const (
	KindVehicleAPCMapping Kind = "vehicle-apc-mapping"
	KindProfileCollection Kind = "profile-collection"
)

// Kinds lists every kind with an embedded schema.
var Kinds = []Kind{KindVehicleAPCMapping, KindProfileCollection}

func (k Kind) fileName() string {
	return "schemas/" + string(k) + ".schema.json"
}

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[Kind]*gojsonschema.Schema
}

// NewValidator compiles the embedded schemas. An error here means the binary
// was built with a broken schema and is fatal.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[Kind]*gojsonschema.Schema, len(Kinds))}
	for _, kind := range Kinds {
		raw, err := schemaFiles.ReadFile(kind.fileName())
		if err != nil {
			return nil, errors.WrapFatal(err, "Validator", "NewValidator", fmt.Sprintf("read %s schema", kind))
		}

		loader := gojsonschema.NewSchemaLoader()
		loader.Draft = gojsonschema.Draft7
		loader.AutoDetect = false
		compiled, err := loader.Compile(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, errors.WrapFatal(err, "Validator", "NewValidator", fmt.Sprintf("compile %s schema", kind))
		}
		v.schemas[kind] = compiled
	}
	return v, nil
}

// Validate decodes raw as UTF-8 JSON, validates it against the schema of kind
// and decodes it into the typed value for that kind.
func (v *Validator) Validate(kind Kind, raw []byte) (result Result) {
	result = Result{kind: kind, raw: raw}

	defer func() {
		if r := recover(); r != nil {
			result = result.fail(FailureUnexpected, fmt.Errorf("panic during validation: %v", r))
		}
	}()

	compiled, ok := v.schemas[kind]
	if !ok {
		return result.fail(FailureUnexpected, fmt.Errorf("unknown message kind %q", kind))
	}

	if !utf8.Valid(raw) {
		return result.fail(FailureDecode, fmt.Errorf("%w: payload is not valid UTF-8", errors.ErrInvalidJSON))
	}

	var decoded any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return result.fail(FailureDecode, fmt.Errorf("%w: %v", errors.ErrInvalidJSON, err))
	}
	if decoder.More() {
		return result.fail(FailureDecode, fmt.Errorf("%w: trailing data after JSON value", errors.ErrInvalidJSON))
	}
	result.decoded = decoded

	validation, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return result.fail(FailureUnexpected, err)
	}
	if !validation.Valid() {
		for _, desc := range validation.Errors() {
			result.schemaErrors = append(result.schemaErrors,
				fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return result.fail(FailureSchema, fmt.Errorf("%w: %d error(s)", errors.ErrSchemaViolation, len(result.schemaErrors)))
	}

	switch kind {
	case KindVehicleAPCMapping:
		var catalog message.VehicleAPCMapping
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return result.fail(FailureUnexpected, err)
		}
		result.catalog = catalog
	case KindProfileCollection:
		collection := message.NewProfileCollection()
		if err := json.Unmarshal(raw, collection); err != nil {
			return result.fail(FailureUnexpected, err)
		}
		if collection.VehicleModels == nil {
			collection.VehicleModels = map[string]string{}
		}
		if collection.ModelProfiles == nil {
			collection.ModelProfiles = map[string]string{}
		}
		result.collection = collection
	}

	result.failure = FailureNone
	return result
}
