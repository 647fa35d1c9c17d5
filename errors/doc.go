// Package errors provides standardized error handling patterns for the profiler.
//
// # Overview
//
// The package implements a three-class error classification: Transient
// (connection trouble, a later invocation may succeed), Invalid (bad input
// that is diagnosed and skipped), and Fatal (the invocation aborts after
// releasing its resources and the process exits non-zero).
//
// The profiler never retries work in-process. Retry means the external
// scheduler runs the process again, so the classes drive logging severity and
// exit status rather than retry loops.
//
// # Quick Start
//
// Wrap third-party errors with component context:
//
//	if err := oracle.Compute(ctx, req); err != nil {
//	    return errors.WrapFatal(err, "Orchestrator", "Compute", "run oracle")
//	}
//
// Check classification at the top level:
//
//	if errors.IsFatal(err) {
//	    logger.Log(ctx, logging.LevelFatal, "Invocation aborted", "error", err)
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the format:
//
//	"component.method: action failed: original error"
//
// Classified errors keep the chain intact, so errors.Is works against the
// sentinel values declared in this package:
//
//	err := errors.WrapFatal(errors.ErrOracleFailed, "Orchestrator", "Compute", "run oracle")
//	stderrors.Is(err, errors.ErrOracleFailed) // true
//
// # Unknown Errors
//
// Classify treats unclassified, unknown errors as fatal. A short-lived batch
// invocation has nothing to gain from guessing that an unknown failure is
// transient.
package errors
