package models

import (
	"time"

	"trustgate/pkg/domain"
)

// UnreachableDetails marks a CheckResult produced by timeout or provider
// outage rather than a real verdict. The cycle proceeds with the check
// counted as failed.
const UnreachableDetails = "unreachable"

// CheckResult is the immutable output of one provider invocation. A new
// verification cycle appends a fresh set; history is never overwritten.
type CheckResult struct {
	CheckName  string
	SubjectID  domain.SubjectID
	CycleID    domain.CycleID
	Passed     bool
	Confidence float64
	Details    string
	Timestamp  time.Time
}

// Unreachable reports whether this result is the timeout sentinel.
func (r CheckResult) Unreachable() bool {
	return !r.Passed && r.Details == UnreachableDetails
}

// UnreachableResult builds the sentinel recorded when a provider does not
// respond within its per-call timeout.
func UnreachableResult(checkName string, subjectID domain.SubjectID, cycleID domain.CycleID, now time.Time) CheckResult {
	return CheckResult{
		CheckName:  checkName,
		SubjectID:  subjectID,
		CycleID:    cycleID,
		Passed:     false,
		Confidence: 0,
		Details:    UnreachableDetails,
		Timestamp:  now,
	}
}
