package tool

import (
	"github.com/tianqilab/tianqi/internal/exec"
	"github.com/tianqilab/tianqi/internal/forecast"
	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/schema"
)

// Error kinds, stable across transports. Adapters map these to their
// own status codes; the metrics outcome label uses them directly.
const (
	KindUnknownTool         = "unknown_tool"
	KindMissingArgument     = "missing_argument"
	KindInvalidRange        = "invalid_range"
	KindUnknownField        = "unknown_field"
	KindUnsupportedOperator = "unsupported_operator"
	KindInsufficientHistory = "insufficient_history"
	KindStoreUnavailable    = "store_unavailable"
	KindInternal            = "internal"
)

// ErrorKind classifies an error from Dispatch into one of the stable
// kinds above.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case query.IsUnknownTool(err):
		return KindUnknownTool
	case query.IsMissingArgument(err):
		return KindMissingArgument
	case query.IsInvalidRange(err):
		return KindInvalidRange
	case schema.IsUnknownField(err):
		return KindUnknownField
	case query.IsUnsupportedOperator(err):
		return KindUnsupportedOperator
	case forecast.IsInsufficientHistory(err):
		return KindInsufficientHistory
	case exec.IsStoreUnavailable(err):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// IsValidationKind reports whether kind names a request defect (as
// opposed to a runtime failure). Validation failures happen before any
// read executes.
func IsValidationKind(kind string) bool {
	switch kind {
	case KindUnknownTool, KindMissingArgument, KindInvalidRange,
		KindUnknownField, KindUnsupportedOperator:
		return true
	}
	return false
}
