// Package recoerr defines the error kinds shared by every reconstruction
// stage (spec.md §7). Only construction-time contract violations are
// fatal; everything else is a locally-recovered condition surfaced
// through a stage's monitor struct rather than as an error value.
package recoerr

import "errors"

var (
	// ErrConfig marks a fatal configuration error: bad selection mask,
	// empty detector set, or an unsatisfiable construction-time
	// invariant. Stages return this wrapped with context; callers treat
	// it as fatal.
	ErrConfig = errors.New("configuration error")

	// ErrArchiveIO marks an I/O failure writing or reading the results
	// archive. Surfaced to the caller; the pipeline may continue with
	// telemetry-only output if configured to do so.
	ErrArchiveIO = errors.New("archive I/O error")

	// ErrTelemetryDecode marks a malformed telemetry message. The
	// receiver logs and drops the message; it is never fatal.
	ErrTelemetryDecode = errors.New("telemetry decode error")
)

// Is reports whether err wraps target, forwarding to errors.Is so
// callers don't need a separate import for the common case.
func Is(err, target error) bool { return errors.Is(err, target) }
