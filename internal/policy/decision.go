// Package policy implements the document policy engine for the
// procure-to-pay document types. Every policy is a pure function of the
// acting user's capabilities and a snapshot of the target entity; a denial
// is an expected outcome carried as a value, never an error.
package policy

import "fmt"

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with a user-visible reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Denyf returns a denying decision with a formatted reason.
func Denyf(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}
