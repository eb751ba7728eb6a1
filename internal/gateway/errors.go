package gateway

import (
	"errors"
	"fmt"

	"github.com/phrazzld/card-service/internal/domain"
)

// Cause classifies why an outbound call failed.
type Cause string

const (
	CauseTransport   Cause = "transport"
	CauseTimeout     Cause = "timeout"
	CauseStatus      Cause = "status"
	CauseDecode      Cause = "decode"
	CauseEncode      Cause = "encode"
	CauseBreakerOpen Cause = "breaker_open"
)

// OperationError describes a failed call to a remote target.
type OperationError struct {
	Target     string
	URL        string
	Cause      Cause
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	msg := fmt.Sprintf("request to %s (%s) failed: %s", e.Target, e.URL, e.Cause)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is makes every OperationError match domain.ErrOperationFailed.
func (e *OperationError) Is(target error) bool {
	return target == domain.ErrOperationFailed
}

// CauseOf returns the cause of err if it is, or wraps, an OperationError.
func CauseOf(err error) (Cause, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Cause, true
	}
	return "", false
}
