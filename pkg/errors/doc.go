// Package errors provides structured error types for better observability
// and programmatic error handling across the alerts coordinator.
//
// Every failure that crosses a package boundary in the coordinator carries
// an ErrorCode so callers can tell a definition conflict from a backend
// rejection or a timed out install without string matching.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeResourceInstall,
//	    "failed to install index template",
//	    cause,
//	    map[string]any{
//	        "template": ".alerts-stack.alerts-default-index-template",
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeTimeout) {
//	    // install state unknown, treat as not ready
//	}
package errors
