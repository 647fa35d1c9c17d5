package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/message"
)

// Boundary validates incoming envelopes and logs every rejection.
type Boundary struct {
	validator *Validator
	logger    *slog.Logger
}

// NewBoundary creates a Boundary. A nil logger falls back to slog.Default.
func NewBoundary(validator *Validator, logger *slog.Logger) *Boundary {
	if logger == nil {
		logger = slog.Default()
	}
	return &Boundary{validator: validator, logger: logger}
}

// Check validates env against kind and logs the diagnostic of a failure.
// attrs are attached to the diagnostic, typically the feed publisher id.
func (b *Boundary) Check(ctx context.Context, kind Kind, env *message.Envelope, attrs ...any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{kind: kind}.fail(FailureUnexpected, fmt.Errorf("panic at message boundary: %v", r))
			logging.Critical(ctx, b.logger, "Something went wrong while trying to validate the message data",
				append(attrs, "kind", string(kind), "error", result.err)...)
		}
	}()

	if env == nil {
		return Result{kind: kind}.fail(FailureUnexpected, fmt.Errorf("no envelope"))
	}

	result = b.validator.Validate(kind, env.Data)
	if result.OK() {
		return result
	}

	fields := append(attrs,
		"kind", string(kind),
		"subject", env.Subject,
		"sequence", env.Sequence,
		"messageEventTimestamp", env.EventTimestamp,
		"error", result.Err(),
	)

	switch result.Failure() {
	case FailureDecode:
		b.logger.ErrorContext(ctx, "The message data is not valid JSON",
			append(fields, "messageDataString", strings.ToValidUTF8(string(env.Data), "�"))...)
	case FailureSchema:
		b.logger.ErrorContext(ctx, "The message data does not validate with the given schema",
			append(fields, "messageData", result.Decoded(), "schemaErrors", result.SchemaErrors())...)
	default:
		logging.Critical(ctx, b.logger, "Something went wrong while trying to validate the message data",
			append(fields, "headers", env.Headers)...)
	}
	return result
}

// Catalog validates a vehicle-apc-mapping envelope.
func (b *Boundary) Catalog(ctx context.Context, env *message.Envelope, attrs ...any) (message.VehicleAPCMapping, bool) {
	return b.Check(ctx, KindVehicleAPCMapping, env, attrs...).Catalog()
}

// Collection validates a profile-collection envelope.
func (b *Boundary) Collection(ctx context.Context, env *message.Envelope, attrs ...any) (*message.ProfileCollection, bool) {
	return b.Check(ctx, KindProfileCollection, env, attrs...).Collection()
}
