package handler

import (
	"time"

	"trustgate/internal/audit"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/workflow"
)

// SubjectResponse is the HTTP response DTO for a subject.
type SubjectResponse struct {
	ID                string            `json:"id"`
	SubjectType       string            `json:"subject_type"`
	Status            string            `json:"status"`
	CycleID           string            `json:"cycle_id"`
	Name              string            `json:"name,omitempty"`
	Email             string            `json:"email,omitempty"`
	Phone             string            `json:"phone,omitempty"`
	Address           string            `json:"address,omitempty"`
	VerificationScore *float64          `json:"verification_score,omitempty"`
	RiskScore         *float64          `json:"risk_score,omitempty"`
	AdminNotes        string            `json:"admin_notes,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// FromSubject converts the domain model to its response DTO.
func FromSubject(s *models.Subject) *SubjectResponse {
	resp := &SubjectResponse{
		ID:                string(s.ID),
		SubjectType:       string(s.Type),
		Status:            string(s.Status),
		CycleID:           s.CycleID.String(),
		Name:              s.Name,
		Email:             s.Email,
		Phone:             s.Phone,
		Address:           s.Address,
		VerificationScore: s.VerificationScore,
		RiskScore:         s.RiskScore,
		AdminNotes:        s.AdminNotes,
		Metadata:          s.Metadata,
		UpdatedAt:         s.UpdatedAt,
	}
	if !s.SubmittedAt.IsZero() {
		submitted := s.SubmittedAt
		resp.SubmittedAt = &submitted
	}
	return resp
}

// DocumentResponse is the HTTP response DTO for an uploaded document.
type DocumentResponse struct {
	ID               string            `json:"id"`
	DocumentType     string            `json:"document_type"`
	ProcessingStatus string            `json:"processing_status"`
	StorageRef       string            `json:"storage_ref"`
	ExtractedFields  map[string]string `json:"extracted_fields,omitempty"`
	UploadedAt       time.Time         `json:"uploaded_at"`
}

func FromDocument(d *models.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:               d.ID.String(),
		DocumentType:     string(d.Type),
		ProcessingStatus: string(d.ProcessingStatus),
		StorageRef:       d.StorageRef,
		ExtractedFields:  d.ExtractedFields,
		UploadedAt:       d.UploadedAt,
	}
}

// StatusResponse is the subject plus its documents, returned by
// GET /subjects/{id}.
type StatusResponse struct {
	Subject   *SubjectResponse    `json:"subject"`
	Documents []*DocumentResponse `json:"documents"`
}

func FromStatus(s *models.Subject, docs []models.Document) *StatusResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	return &StatusResponse{Subject: FromSubject(s), Documents: out}
}

// CheckResultResponse is one recorded check outcome.
type CheckResultResponse struct {
	CheckName  string    `json:"check_name"`
	CycleID    string    `json:"cycle_id"`
	Passed     bool      `json:"passed"`
	Confidence float64   `json:"confidence"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func fromCheckResults(results []models.CheckResult) []*CheckResultResponse {
	out := make([]*CheckResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, &CheckResultResponse{
			CheckName:  r.CheckName,
			CycleID:    r.CycleID.String(),
			Passed:     r.Passed,
			Confidence: r.Confidence,
			Details:    r.Details,
			Timestamp:  r.Timestamp,
		})
	}
	return out
}

// HistoryResponse wraps the full check history for HTTP response.
type HistoryResponse struct {
	SubjectID string                 `json:"subject_id"`
	Results   []*CheckResultResponse `json:"results"`
	Total     int                    `json:"total"`
}

// RiskResponse is the risk view of a subject: complement score plus the
// current cycle's per-check breakdown.
type RiskResponse struct {
	SubjectID         string                 `json:"subject_id"`
	Status            string                 `json:"status"`
	RiskScore         *float64               `json:"risk_score,omitempty"`
	VerificationScore *float64               `json:"verification_score,omitempty"`
	Results           []*CheckResultResponse `json:"results"`
}

func FromRisk(a *workflow.RiskAssessment) *RiskResponse {
	return &RiskResponse{
		SubjectID:         string(a.Subject.ID),
		Status:            string(a.Subject.Status),
		RiskScore:         a.Subject.RiskScore,
		VerificationScore: a.Subject.VerificationScore,
		Results:           fromCheckResults(a.Results),
	}
}

// AuditTrailResponse wraps the audit events for one subject.
type AuditTrailResponse struct {
	SubjectID string        `json:"subject_id"`
	Events    []audit.Event `json:"events"`
	Total     int           `json:"total"`
}
