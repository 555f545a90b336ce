package models

import (
	"time"

	"trustgate/pkg/domain"
)

// Status is the workflow state of a Subject. It is a closed set; every
// transition goes through CanTransition so invalid edges are rejected at one
// place instead of ad hoc string comparisons at call sites.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusDocumentsUploaded Status = "documents_uploaded"
	StatusPendingChecks     Status = "pending_checks"
	StatusVerified          Status = "verified"
	StatusRejected          Status = "rejected"
	StatusUnderReview       Status = "under_review"
	StatusCancelled         Status = "cancelled"
)

// transitions is the edge set of the state machine. Cancelled and
// UnderReview are reachable from every non-terminal state and are handled in
// CanTransition rather than listed per state.
var transitions = map[Status][]Status{
	StatusDraft:             {StatusDocumentsUploaded},
	StatusDocumentsUploaded: {StatusPendingChecks},
	StatusPendingChecks:     {StatusVerified, StatusRejected},
	StatusUnderReview:       {StatusVerified, StatusRejected},
	StatusVerified:          {},
	StatusRejected:          {},
	StatusCancelled:         {},
}

// IsTerminal reports whether no further automatic or manual transition is
// allowed. Resubmission after Rejected starts a new cycle instead of
// reopening this one.
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected || s == StatusCancelled
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the edge from s to next exists.
func (s Status) CanTransition(next Status) bool {
	if next == StatusCancelled || next == StatusUnderReview {
		return !s.IsTerminal() && s != next
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Subject is the applicant or business entity under verification.
type Subject struct {
	ID          domain.SubjectID
	Type        domain.SubjectType
	Status      Status
	CycleID     domain.CycleID
	SubmittedAt time.Time

	// Profile fields validated by completeProfile.
	Name    string
	Email   string
	Phone   string
	Address string

	// VerificationScore is nil until a cycle completes scoring, and is
	// cleared when a new cycle starts. RiskScore is always the complement.
	VerificationScore *float64
	RiskScore         *float64

	AdminNotes string
	Metadata   map[string]string

	UpdatedAt time.Time
}

// SetScore records the cycle outcome, keeping RiskScore in lockstep.
func (s *Subject) SetScore(score float64) {
	risk := 100 - score
	s.VerificationScore = &score
	s.RiskScore = &risk
}

// ClearScore resets scoring state at the start of a new cycle.
func (s *Subject) ClearScore() {
	s.VerificationScore = nil
	s.RiskScore = nil
}

// ProfileComplete reports whether the required-field set for the subject
// type is present. Address and contact fields are required for both types;
// businesses additionally need a registered name.
func (s *Subject) ProfileComplete() bool {
	if s.Email == "" || s.Phone == "" || s.Address == "" {
		return false
	}
	return s.Name != ""
}
