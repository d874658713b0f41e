package query

import (
	"errors"
	"fmt"
)

// UnknownToolError is returned by Decode for tool names outside the
// closed set.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}

// IsUnknownTool reports whether err is an UnknownToolError.
func IsUnknownTool(err error) bool {
	var ue *UnknownToolError
	return errors.As(err, &ue)
}

// MissingArgumentError is returned when a required argument for the
// requested tool kind is absent or empty.
type MissingArgumentError struct {
	Tool     string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: required argument %q is missing", e.Tool, e.Argument)
}

// IsMissingArgument reports whether err is a MissingArgumentError.
func IsMissingArgument(err error) bool {
	var me *MissingArgumentError
	return errors.As(err, &me)
}

// InvalidRangeError is returned when a date argument does not parse as a
// calendar date or when start is after end.
type InvalidRangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]: %s", e.Start, e.End, e.Reason)
}

// IsInvalidRange reports whether err is an InvalidRangeError.
func IsInvalidRange(err error) bool {
	var ie *InvalidRangeError
	return errors.As(err, &ie)
}

// UnsupportedOperatorError is returned when a filter applies an operator
// outside the field's permitted set, or a comparison token is not one of
// the declared comparisons.
type UnsupportedOperatorError struct {
	Field    string
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unsupported operator %q", e.Operator)
	}
	return fmt.Sprintf("operator %q is not permitted on field %q", e.Operator, e.Field)
}

// IsUnsupportedOperator reports whether err is an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	var oe *UnsupportedOperatorError
	return errors.As(err, &oe)
}
