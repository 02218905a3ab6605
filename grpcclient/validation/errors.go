/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package validation

import (
	"fmt"
	"strings"
)

// Violation describes a single failed constraint.
type Violation struct {
	FieldPath string
	Message   string
}

// Error is returned when an argument violates one or more constraints.
type Error struct {
	Violations []Violation
}

// Error returns all violations folded into one message:
// "parameter[<field path>] message[<message>] " for each violation.
func (e *Error) Error() string {
	var sb strings.Builder
	for _, v := range e.Violations {
		_, _ = fmt.Fprintf(&sb, "parameter[%s] message[%s] ", v.FieldPath, v.Message)
	}
	return sb.String()
}

// UnknownGroupError is returned when a constraint group is not registered in the Validator.
type UnknownGroupError struct {
	Group string
}

func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("unknown constraint group %q", e.Group)
}
