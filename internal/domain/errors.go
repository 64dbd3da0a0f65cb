package domain

import (
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errString("not found")
	ErrCandidateNotFound = errString("candidate not found")
)

type errString string

func (e errString) Error() string { return string(e) }

// ValidationError collects field-level problems found at a parse boundary.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
