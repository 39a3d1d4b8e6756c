package command

import "fmt"

// ViolationError reports a scheduling rule broken by the caller, such as
// stepping a completed command or starting a second script. It is raised with
// panic, never returned.
type ViolationError struct {
	Op     string
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("scheduling violation in %s: %s", e.Op, e.Reason)
}

// Violation panics with a ViolationError.
func Violation(op, reason string) {
	panic(&ViolationError{Op: op, Reason: reason})
}
