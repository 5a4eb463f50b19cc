package core

import "fmt"

// UpstreamError reports a failure of the completion service: an HTTP error
// status, a dropped or malformed stream, or an unreachable endpoint. The
// turn that triggered it is discarded and never reaches session history.
type UpstreamError struct {
	Status int
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream: %s (status %d)", e.Reason, e.Status)
	}
	return "upstream: " + e.Reason
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PersistenceError reports that the session backing store was unreachable.
// Callers recover by operating on an in-memory default session; the error
// is degraded service, not a fatal condition.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SynthesisError reports a failed voice synthesis. It is logged and never
// surfaced to the user; the text answer has already been delivered.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
