package content

import (
	"errors"
)

// Sentinel errors for the recoverable failure classes of the pipeline.
// Wrap them with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	ErrDecode      = errors.New("decode failed")
	ErrParse       = errors.New("parse failed")
	ErrPersistence = errors.New("persistence failed")
)

// FailureKind names the class of a recoverable failure.
type FailureKind string

const (
	FailureDecode      FailureKind = "decode"
	FailureParse       FailureKind = "parse"
	FailurePersistence FailureKind = "persistence"
)

// Failure is the structured error embedded in a response envelope.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Error implements error.
func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// FailureFromError converts err into a Failure, choosing the kind from the
// sentinel it wraps. Unclassified errors are reported as parse failures.
// Returns nil for a nil error.
func FailureFromError(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	kind := FailureParse
	switch {
	case errors.Is(err, ErrDecode):
		kind = FailureDecode
	case errors.Is(err, ErrPersistence):
		kind = FailurePersistence
	}
	return &Failure{Kind: kind, Message: err.Error()}
}
