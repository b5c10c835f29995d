package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Reason classifies a transport failure.
type Reason string

const (
	// ReasonAuthMissing means the transport has no credentials configured.
	// A config-level failure: the attempt fails fast without a network call.
	ReasonAuthMissing Reason = "AUTH_MISSING"

	ReasonConnectFailed  Reason = "CONNECT_FAILED"
	ReasonAuthRejected   Reason = "AUTH_REJECTED"
	ReasonNetworkError   Reason = "NETWORK_ERROR"
	ReasonRemoteRejected Reason = "REMOTE_REJECTED"
)

func (r Reason) String() string { return string(r) }

// TransportError classifies email transport failures by reason.
type TransportError struct {
	Reason     Reason
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("transport error (%s)", e.Reason))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ReasonOf extracts the failure reason from an error. Timeouts and unknown
// errors classify as NETWORK_ERROR.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Reason
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonNetworkError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonNetworkError
		}
		return ReasonConnectFailed
	}

	return ReasonNetworkError
}
