package domain

import "time"

// TransportRole identifies an option's position in the delivery order.
type TransportRole string

const (
	RolePrimary  TransportRole = "PRIMARY"
	RoleFallback TransportRole = "FALLBACK"
)

func (r TransportRole) String() string { return string(r) }

// AttemptOutcome is the result of a single transport attempt.
type AttemptOutcome string

const (
	AttemptDelivered AttemptOutcome = "DELIVERED"
	AttemptFailed    AttemptOutcome = "FAILED"
)

// DeliveryAttempt records one transport attempt. Transient: it lives for the
// duration of a delivery pass and feeds logs and metrics, never the store.
type DeliveryAttempt struct {
	Transport   string
	Role        TransportRole
	Outcome     AttemptOutcome
	ErrorDetail string
	Elapsed     time.Duration
}
