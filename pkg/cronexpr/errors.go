package cronexpr

import (
	"errors"
	"fmt"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

// ErrNoOccurrence is returned by Next when the expression never matches a
// calendar date within the search horizon, e.g. "0 0 30 2 *".
var ErrNoOccurrence = errors.New("cronexpr: expression has no future occurrence")

// ParseError reports malformed cron text: an unknown shortcut, too many
// fields, an unparsable entry or a step applied to a single value.
type ParseError struct {
	Expr   string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cronexpr: cannot parse %q: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("cronexpr: cannot parse %s %q: %s", e.Field, e.Expr, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidExpression.
func (e *ParseError) Unwrap() error {
	return cferrors.ErrInvalidExpression
}

// OutOfBoundsError reports an entry whose resolved values fall outside the
// field domain, or a range whose end precedes its beginning.
type OutOfBoundsError struct {
	Field string
	Entry string
	Low   int
	High  int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cronexpr: %s entry %q out of bounds [%d, %d]", e.Field, e.Entry, e.Low, e.High)
}

// Unwrap lets errors.Is match ErrInvalidExpression.
func (e *OutOfBoundsError) Unwrap() error {
	return cferrors.ErrInvalidExpression
}
