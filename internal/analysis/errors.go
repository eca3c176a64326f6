// Package analysis holds the error vocabulary shared by the castgraph
// analysis engines and the layers that orchestrate them.
package analysis

import (
	"errors"
	"fmt"
)

// ErrorClass represents how a caller should treat a failed analysis.
type ErrorClass int

const (
	// ClassInvalid is a rejected input or configuration. Not recoverable.
	ClassInvalid ErrorClass = iota
	// ClassDegraded is a per-metric failure (non-convergence, degenerate
	// input). Sibling results are still usable.
	ClassDegraded
	// ClassFatal is anything else.
	ClassFatal
)

// String returns the string representation of ErrorClass.
func (c ErrorClass) String() string {
	switch c {
	case ClassInvalid:
		return "invalid"
	case ClassDegraded:
		return "degraded"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidConfig is returned for out-of-range parameters such as a
	// non-positive ego radius or resolution.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotConverged marks an iterative solver that hit its iteration cap.
	ErrNotConverged = errors.New("did not converge")

	// ErrDegenerate marks input on which a metric is undefined, e.g. an
	// eigenvector of a graph with no edges.
	ErrDegenerate = errors.New("degenerate graph")
)

// Invalidf wraps ErrInvalidConfig with a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Classify maps an error to its ErrorClass. Check for nil first.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ClassInvalid
	case errors.Is(err, ErrNotConverged), errors.Is(err, ErrDegenerate):
		return ClassDegraded
	default:
		return ClassFatal
	}
}

// IsInvalid reports whether err is a rejected-input error.
func IsInvalid(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidConfig)
}

// IsDegraded reports whether err is a recoverable per-metric failure.
func IsDegraded(err error) bool {
	return err != nil && Classify(err) == ClassDegraded
}
