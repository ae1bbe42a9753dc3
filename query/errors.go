package query

import (
	"errors"
	"fmt"
)

// ErrNoParser indicates Query was called on a service constructed without
// a textual parser.
var ErrNoParser = errors.New("no query parser configured")

// TranslateError reports an AST construct the translator cannot compile.
// A translation error rejects the whole query; it is never silently
// ignored.
type TranslateError struct {
	// Construct names the unsupported construct.
	Construct string

	// Detail describes what was wrong with it.
	Detail string
}

func (e *TranslateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cannot translate query: unsupported %s", e.Construct)
	}
	return fmt.Sprintf("cannot translate query: %s: %s", e.Construct, e.Detail)
}

func translateErrorf(construct, format string, args ...any) *TranslateError {
	return &TranslateError{Construct: construct, Detail: fmt.Sprintf(format, args...)}
}

// ParseError wraps a failure from the injected textual parser. It is
// distinct from TranslateError: the text never became an AST at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse query: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Evaluation-local errors: these drop the offending binding and never
// abort a query.
var (
	errUnboundVariable = errors.New("unbound variable in expression")
	errTypeMismatch    = errors.New("type mismatch in expression")
	errUnknownFunction = errors.New("unknown function")
	errNotBoolean      = errors.New("expression is not boolean")
	errAggregateScope  = errors.New("aggregate outside grouping")
)
