package enums

import "fmt"

// TransitionCause records what triggered a status transition.
type TransitionCause string

const (
	CauseExternalPaymentEvent TransitionCause = "external_payment_event"
	CauseAdminEdit            TransitionCause = "admin_edit"
	CauseScheduledSweep       TransitionCause = "scheduled_sweep"
	CauseCheckout             TransitionCause = "checkout"
)

var validTransitionCauses = []TransitionCause{
	CauseExternalPaymentEvent,
	CauseAdminEdit,
	CauseScheduledSweep,
	CauseCheckout,
}

// String implements fmt.Stringer.
func (t TransitionCause) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransitionCause.
func (t TransitionCause) IsValid() bool {
	for _, candidate := range validTransitionCauses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransitionCause converts raw input into a TransitionCause.
func ParseTransitionCause(value string) (TransitionCause, error) {
	for _, candidate := range validTransitionCauses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transition cause %q", value)
}
