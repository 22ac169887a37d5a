package model

import (
	"errors"
	"strings"
)

var (
	ErrDefinitionNotFound = errors.New("mock definition not found")
	ErrInvalidDefinition  = errors.New("invalid mock definition")
	ErrUnknownGenerator   = errors.New("unknown response generator")
)

// ValidationError collects every problem found in one definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid mock definition: " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalidDefinition) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
