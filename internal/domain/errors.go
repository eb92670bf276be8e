package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	// KindInput: not an image, unsupported format, missing file. No retry.
	KindInput ErrorKind = "input"
	// KindProvider: every configured provider failed.
	KindProvider ErrorKind = "provider"
	// KindValidation: required field missing or score not numeric.
	KindValidation ErrorKind = "validation"
	// KindPersistence: the job ledger could not be written.
	KindPersistence ErrorKind = "persistence"
	// KindSync: remote pricing source unreachable after retries.
	KindSync ErrorKind = "sync"
)

// PipelineError is a classified failure of one pipeline step.
type PipelineError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a kind and step.
func NewPipelineError(kind ErrorKind, step string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Err: err}
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf returns the kind of a PipelineError, or "" for other errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
