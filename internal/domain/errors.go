package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks caller-contract violations (bad coordinates or dates)
	ErrInvalidInput = errors.New("invalid input")
	// ErrGateBusy is returned when the remote job slot is occupied
	ErrGateBusy = errors.New("too many concurrent NDVI requests")
	// ErrNoCredential means no usable AppEEARS token could be obtained
	ErrNoCredential = errors.New("no appeears credential available")

	// ErrSubmissionFailed means the task was accepted but no task id came back
	ErrSubmissionFailed = errors.New("task submission returned no task id")
	// ErrTaskFailed means AppEEARS reported the task as errored
	ErrTaskFailed = errors.New("appeears task failed")
	// ErrTaskTimeout means the task did not finish within the poll ceiling
	ErrTaskTimeout = errors.New("timed out waiting for appeears task")
	// ErrBundleMissing means the finished bundle held no CSV file
	ErrBundleMissing = errors.New("no csv file in task bundle")
	// ErrMalformedArtifact means the CSV lacked a date or NDVI column
	ErrMalformedArtifact = errors.New("malformed csv artifact")
)

// UpstreamError is a non-2xx answer from the remote processing service
type UpstreamError struct {
	Step       string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("appeears %s: status %d: %s", e.Step, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("appeears %s: status %d", e.Step, e.StatusCode)
}

// Recoverable reports whether the failure is operational (bad request or
// authorization) and may be absorbed by a synthetic fallback.
func (e *UpstreamError) Recoverable() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// Detail returns the upstream body as JSON when it is valid JSON, otherwise as a string
func (e *UpstreamError) Detail() any {
	if len(e.Body) == 0 {
		return nil
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

// AsUpstream unwraps an *UpstreamError from err
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsRecoverableUpstream reports whether err carries a 400/401/403 from upstream
func IsRecoverableUpstream(err error) bool {
	ue, ok := AsUpstream(err)
	return ok && ue.Recoverable()
}

// NewInvalidInputError wraps ErrInvalidInput with a caller-facing message
func NewInvalidInputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
