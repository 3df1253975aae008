package interpreter

import (
	"fmt"
	"strings"
)

// NonExhaustiveMatchError reports a match whose clauses leave constructors
// of the scrutinized type uncovered. Missing lists them in declaration
// order.
type NonExhaustiveMatchError struct {
	TypeName string
	Missing  []string
}

func (e *NonExhaustiveMatchError) Error() string {
	return fmt.Sprintf("non-exhaustive match over %s: missing %s", e.TypeName, strings.Join(e.Missing, ", "))
}

// StackExhaustedError reports that a call would exceed the interpreter's
// recursion limit. The interpreter stays usable after returning it.
type StackExhaustedError struct {
	Limit int
}

func (e *StackExhaustedError) Error() string {
	return fmt.Sprintf("recursion exceeded %d frames", e.Limit)
}
