package session

import "errors"

// Kind classifies pipeline failures for callers that need to map them onto
// a transport (HTTP status codes, UI error styles). Every kind is terminal
// for the current cycle; nothing is retried automatically.
type Kind int

const (
	// KindInput covers rejections made before any external call: no images,
	// no or too many category files, blank refinement instruction.
	KindInput Kind = iota
	// KindTransport covers failures of the external generation call itself.
	KindTransport
	// KindParse covers replies with no parseable JSON payload.
	KindParse
	// KindValidation covers parsed payloads that fail the listing schema.
	KindValidation
)

// PipelineError wraps a failure from one generate or refine cycle with its
// classification.
type PipelineError struct {
	Kind Kind
	Err  error
}

func (e *PipelineError) Error() string { return e.Err.Error() }

func (e *PipelineError) Unwrap() error { return e.Err }

func pipelineErr(kind Kind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or KindTransport if err carries
// no PipelineError.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

var (
	// ErrBusy is returned when a generation or refinement call is already in
	// flight. At most one call runs per session.
	ErrBusy = errors.New("a generation or refinement is already in flight")
	// ErrNoActiveListing is returned when refinement or an edit is requested
	// without a committed listing.
	ErrNoActiveListing = errors.New("no active listing")
	// ErrNotFound is returned when a history id does not exist.
	ErrNotFound = errors.New("listing not found")
)
