package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gpml/i18nsync/internal/transform"
)

// FailureKind classifies a per-file failure.
type FailureKind string

const (
	// ParseError means the file content could not be parsed.
	ParseError FailureKind = "ParseError"
	// ValidationError means the document parsed but violates the record schema.
	ValidationError FailureKind = "ValidationError"
	// IOError means the file could not be read.
	IOError FailureKind = "IOError"
	// SinkError means the sink rejected a create or delete.
	SinkError FailureKind = "SinkError"
)

// Sentinel errors matching each FailureKind.
//
//	var f *reconcile.Failure
//	if errors.As(err, &f) && errors.Is(err, reconcile.ErrValidation) {
//	    for _, d := range f.Details { ... }
//	}
var (
	ErrParse      = transform.ErrParse
	ErrValidation = errors.New("validation error")
	ErrIO         = errors.New("io error")
	ErrSink       = errors.New("sink error")
)

// Failure describes why a file produced no (or not all) records.
type Failure struct {
	Path    string
	Kind    FailureKind
	Details []string
}

func (f *Failure) Error() string {
	if len(f.Details) == 0 {
		return fmt.Sprintf("%s: %s", f.Kind, f.Path)
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Path, strings.Join(f.Details, "; "))
}

// Unwrap returns the sentinel error for the failure kind.
func (f *Failure) Unwrap() error {
	switch f.Kind {
	case ParseError:
		return ErrParse
	case ValidationError:
		return ErrValidation
	case IOError:
		return ErrIO
	case SinkError:
		return ErrSink
	default:
		return nil
	}
}

func newFailure(path string, kind FailureKind, details ...string) *Failure {
	return &Failure{Path: path, Kind: kind, Details: details}
}
