package scheduler

import "fmt"

// UnsupportedPolicyError reports a policy label the scheduler does not
// implement.
type UnsupportedPolicyError struct {
	Policy string
}

func (e UnsupportedPolicyError) Error() string {
	return fmt.Sprintf("unsupported policy: %s", e.Policy)
}

// EmptyPlanError reports the degenerate configuration in which no plan
// can be produced: an empty cycle order and no emergency to serve.
type EmptyPlanError struct{}

func (e EmptyPlanError) Error() string {
	return "empty cycle order and no emergency: no plan can be produced"
}

// InvalidStateError reports a precondition violation in the supplied
// intersection state.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("invalid intersection state: %s", e.Reason)
}
