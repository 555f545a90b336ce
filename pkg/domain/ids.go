package domain

import (
	"strings"

	"github.com/google/uuid"

	tgerrors "trustgate/pkg/errors"
)

// SubjectID identifies the applicant or business under verification. It is
// caller-supplied and immutable, so it stays an opaque string rather than a
// UUID the service mints.
type SubjectID string

func (id SubjectID) String() string { return string(id) }
func (id SubjectID) IsEmpty() bool  { return strings.TrimSpace(string(id)) == "" }

// ParseSubjectID validates caller input at the trust boundary.
func ParseSubjectID(raw string) (SubjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return "", tgerrors.New(tgerrors.CodeValidation, "subject id is required")
	}
	return SubjectID(raw), nil
}

// DocumentID identifies one uploaded artifact. Minted by the service.
type DocumentID uuid.UUID

func NewDocumentID() DocumentID      { return DocumentID(uuid.New()) }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := uuid.Parse(raw)
	if err != nil || u == uuid.Nil {
		return DocumentID{}, tgerrors.New(tgerrors.CodeValidation, "invalid document id")
	}
	return DocumentID(u), nil
}

// CycleID identifies one full pass through the verification state machine.
// Resubmission after a terminal state mints a new cycle; check history stays
// keyed by the cycle that produced it.
type CycleID uuid.UUID

func NewCycleID() CycleID         { return CycleID(uuid.New()) }
func (id CycleID) String() string { return uuid.UUID(id).String() }
func (id CycleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// SubjectType distinguishes individual applicants from businesses. Checks and
// thresholds are configured per type.
type SubjectType string

const (
	SubjectTypeIndividual SubjectType = "individual"
	SubjectTypeBusiness   SubjectType = "business"
)

func (t SubjectType) IsValid() bool {
	return t == SubjectTypeIndividual || t == SubjectTypeBusiness
}

func ParseSubjectType(raw string) (SubjectType, error) {
	t := SubjectType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", tgerrors.Newf(tgerrors.CodeValidation, "invalid subject type %q", raw)
	}
	return t, nil
}
