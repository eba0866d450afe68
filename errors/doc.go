// Package errors provides standardized error handling patterns for IslandKit components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the island coordination layer: Transient (may succeed on a later independent
// scan), Invalid (bad input, never retryable), and Fatal (unrecoverable, stop
// processing).
//
// Classification lets callers decide between graceful degradation and hard
// failure without matching on error strings. Nothing in the coordination layer
// retries automatically; a transient mount failure is retried only by a
// subsequent, independent document scan.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Bridge", "Mount", "component load")
//	errors.WrapInvalid(err, "Document", "ParseMarker", "props payload")
//	errors.WrapFatal(err, "Bus", "Publish", "bus closed")
//
// The generic Wrap() preserves the original error's classification through
// the chain.
//
// # Standard Error Variables
//
// Pre-defined variables cover the coordination layer's failure taxonomy:
//
//   - Mount lifecycle: ErrUnknownIslandType, ErrComponentLoadFail,
//     ErrStaleMount, ErrMountCancelled
//   - Bus: ErrBusClosed, ErrInvalidTopic, ErrInvalidPattern
//   - Markers: ErrInvalidMarker, ErrInvalidProps
//   - Page updates: ErrUpdateFailed, ErrNavigationFailed, ErrTargetNotFound
//   - Relay: ErrRelayDisconnected, ErrConnectionLost
//
// Use these instead of ad hoc error messages so callers can branch with
// errors.Is.
//
// # Integration with errors.Is/As
//
// All types support standard library error inspection. Classification is
// preserved through wrapping chains:
//
//	wrapped := errors.WrapInvalid(errors.ErrInvalidMarker, "Document", "ParseMarker", "validation")
//	errors.IsInvalid(wrapped) // true
//	errors.Is(wrapped, errors.ErrInvalidMarker) // true
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
