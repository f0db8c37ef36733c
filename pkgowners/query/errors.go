package query

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no installed package has the requested name.
	ErrNotFound = errors.New("package not found")
	// ErrInconsistentState means the database holds distinct installations under one name.
	ErrInconsistentState = errors.New("inconsistent package database")
)

// InconsistentStateError reports two distinct installed packages sharing a name.
type InconsistentStateError struct {
	Name   string
	First  string
	Second string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("multiple installed %q (%s, %s)", e.Name, e.First, e.Second)
}

func (e *InconsistentStateError) Is(target error) bool {
	return target == ErrInconsistentState
}
