package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

const (
	OpOptimize         = "optimize"
	OpApplyFeedback    = "apply feedback"
	OpAddFeedback      = "add feedback"
	OpSelectResume     = "select resume"
	OpSelectModel      = "select model"
	OpPickCredential   = "pick credential"
	OpAddCredential    = "add credential"
	OpDeleteCredential = "delete credential"
	OpDeleteResume     = "delete resume"
	OpUpload           = "upload resume"
	OpRefresh          = "refresh"
)

// Reason is a single unmet precondition of an action.
type Reason string

const (
	ReasonNoResume                 Reason = "no resume selected"
	ReasonUnknownResume            Reason = "unknown resume"
	ReasonNoJobDescription         Reason = "no job description"
	ReasonAmbiguousJobDescription  Reason = "both job description url and text"
	ReasonInvalidJobDescriptionURL Reason = "invalid job description url"
	ReasonNoCredential             Reason = "no matching credential"
	ReasonIncompatibleCredential   Reason = "credential does not fit the model"
	ReasonUnknownModel             Reason = "unknown model"
	ReasonInvalidSecret            Reason = "invalid api key"
	ReasonInFlight                 Reason = "operation in flight"
	ReasonNoSession                Reason = "no active session"
	ReasonSessionActive            Reason = "session already active"
	ReasonNoFeedback               Reason = "no pending feedback"
	ReasonInvalidFeedback          Reason = "invalid feedback"
	ReasonUploadInFlight           Reason = "upload in flight"
)

// ValidationError is a local precondition failure. No request was sent.
type ValidationError struct {
	Op      string
	Reasons []Reason
	// Err carries the underlying cause when there is one.
	Err error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, string(r))
	}

	msg := fmt.Sprintf("%s: %s", e.Op, strings.Join(parts, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Has reports whether r is among the reasons.
func (e *ValidationError) Has(r Reason) bool {
	for _, got := range e.Reasons {
		if got == r {
			return true
		}
	}
	return false
}

// RemoteError wraps a rejection by a backend service or a transport failure.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// StaleResponseError is returned when a request resolves after the session
// it was issued for has been superseded. Its result was discarded.
type StaleResponseError struct {
	Op      string
	Issued  uint64
	Current uint64
}

func (e *StaleResponseError) Error() string {
	return fmt.Sprintf("%s: response for generation %d discarded, current generation is %d", e.Op, e.Issued, e.Current)
}

func IsStale(err error) bool {
	var stale *StaleResponseError
	return errors.As(err, &stale)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsRemote(err error) bool {
	var r *RemoteError
	return errors.As(err, &r)
}
