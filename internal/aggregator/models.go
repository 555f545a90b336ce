package aggregator

import (
	"time"

	"trustgate/pkg/domain"
)

// ServiceState mirrors a downstream service's own workflow vocabulary. The
// aggregator treats it as opaque except for the verified and unavailable
// markers.
const (
	StateVerified    = "verified"
	StateUnavailable = "unavailable"
	StateError       = "error"
)

// VerificationStatus is one downstream service's answer for a subject.
// Recomputed on every aggregation; cached at most for the report TTL.
type VerificationStatus struct {
	ServiceName   string           `json:"service_name"`
	SubjectID     domain.SubjectID `json:"subject_id"`
	State         string           `json:"state"`
	Score         *float64         `json:"score,omitempty"`
	LastCheckedAt time.Time        `json:"last_checked_at"`
	Reachable     bool             `json:"reachable"`
}

// State tracks one aggregation request. PartialComplete is a success state:
// at least one reachable service is enough to return a result.
type State string

const (
	StatePending         State = "pending"
	StateCollecting      State = "collecting"
	StateComplete        State = "complete"
	StatePartialComplete State = "partial_complete"
	StateTimeout         State = "timeout"
)

// Report is the consolidated cross-service view for one subject.
type Report struct {
	SubjectID       domain.SubjectID              `json:"subject_id"`
	State           State                         `json:"state"`
	Services        map[string]VerificationStatus `json:"services"`
	OverallProgress float64                       `json:"overall_progress"`
	OverallScore    *float64                      `json:"overall_score,omitempty"`
	VerifiedCount   int                           `json:"verified_services"`
	TotalServices   int                           `json:"total_services"`
	// Unavailable names the services that did not contribute, so partial
	// results are never silently presented as complete.
	Unavailable []string  `json:"unavailable_services,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
