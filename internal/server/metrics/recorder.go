// Package metrics records allowlist and HTTP activity. Init(false) yields a
// no-op recorder so callers never need to nil-check.
package metrics

import "time"

// Allowlist decision results.
const (
	DecisionAllowed = "allowed"
	DecisionExpired = "expired"
	DecisionMissing = "missing"
	DecisionError   = "error"
)

// Revocation reasons.
const (
	RevokeSingle  = "single"
	RevokeAll     = "all"
	RevokeSignOut = "sign_out"
	RevokeRefresh = "refresh"
)

// Recorder defines the interface for recording application metrics.
type Recorder interface {
	RecordAllowlistDecision(result string)
	RecordTokenIssued()
	RecordRevocation(reason string)
	RecordTokensPurged(count int)
	RecordBillingCall(operation string, success bool, duration time.Duration)
}
