package domain

// Outcome is the caller-visible result of one submission. It drives the HTTP
// response but is never stored.
type Outcome string

const (
	// OutcomeFullSuccess means the message was stored and, in synchronous
	// mode, the notification was delivered. In background mode it means
	// "accepted and durably stored"; the delivery result is not awaited.
	OutcomeFullSuccess Outcome = "FULL_SUCCESS"

	// OutcomePartialSuccess means the submission was accepted but either
	// persistence or notification fell short. Still reads as accepted to the
	// caller: durability over notification.
	OutcomePartialSuccess Outcome = "PARTIAL_SUCCESS"

	// OutcomeHardFailure is reserved for conditions that prevent even
	// attempting persistence, such as malformed input.
	OutcomeHardFailure Outcome = "HARD_FAILURE"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeFullSuccess, OutcomePartialSuccess, OutcomeHardFailure:
		return true
	}
	return false
}
