package handler

import (
	"encoding/base64"
	"strings"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

// ProfilePayload carries the subject's self-reported profile fields. Empty
// fields are left untouched by the workflow, so partial updates are allowed.
type ProfilePayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (p ProfilePayload) toProfileData() workflow.ProfileData {
	return workflow.ProfileData{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
	}
}

// CreateSubjectRequest is the HTTP request body for POST /subjects.
type CreateSubjectRequest struct {
	SubjectID   string         `json:"subject_id"`
	SubjectType string         `json:"subject_type"`
	Profile     ProfilePayload `json:"profile"`

	// Parsed values (populated by Validate)
	parsedID   domain.SubjectID
	parsedType domain.SubjectType
}

// Validate validates and parses the request.
func (r *CreateSubjectRequest) Validate() error {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.SubjectID == "" {
		return tgerrors.New(tgerrors.CodeValidation, "subject_id is required")
	}
	if len(r.SubjectID) > 64 {
		return tgerrors.New(tgerrors.CodeValidation, "subject_id must be at most 64 characters")
	}
	id, err := domain.ParseSubjectID(r.SubjectID)
	if err != nil {
		return err
	}
	r.parsedID = id

	subjectType, err := domain.ParseSubjectType(strings.TrimSpace(r.SubjectType))
	if err != nil {
		return err
	}
	r.parsedType = subjectType
	return nil
}

func (r *CreateSubjectRequest) ParsedID() domain.SubjectID     { return r.parsedID }
func (r *CreateSubjectRequest) ParsedType() domain.SubjectType { return r.parsedType }

// UpdateProfileRequest is the HTTP request body for PUT /subjects/{id}/profile.
type UpdateProfileRequest struct {
	ProfilePayload
}

func (r *UpdateProfileRequest) Validate() error {
	p := r.toProfileData()
	if p.Name == "" && p.Email == "" && p.Phone == "" && p.Address == "" {
		return tgerrors.New(tgerrors.CodeValidation, "at least one profile field is required")
	}
	return nil
}

// AttachDocumentRequest is the HTTP request body for POST /subjects/{id}/documents.
// Content is the raw document payload, base64-encoded.
type AttachDocumentRequest struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`

	parsedType models.DocumentType
	parsedData []byte
}

func (r *AttachDocumentRequest) Validate() error {
	docType, ok := models.ParseDocumentType(strings.TrimSpace(r.DocumentType))
	if !ok {
		return tgerrors.Newf(tgerrors.CodeValidation, "unknown document_type %q", r.DocumentType)
	}
	r.parsedType = docType

	if r.Content == "" {
		return tgerrors.New(tgerrors.CodeValidation, "content is required")
	}
	data, err := base64.StdEncoding.DecodeString(r.Content)
	if err != nil {
		return tgerrors.New(tgerrors.CodeValidation, "content must be base64-encoded")
	}
	r.parsedData = data
	return nil
}

func (r *AttachDocumentRequest) ParsedType() models.DocumentType { return r.parsedType }
func (r *AttachDocumentRequest) ParsedData() []byte              { return r.parsedData }

// AdminActionRequest is the body shared by the admin decision endpoints.
// Approve interprets the message as notes, reject and request-review as the
// reason recorded in the audit trail.
type AdminActionRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func (r *AdminActionRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Notes) > 2000 || len(r.Reason) > 2000 {
		return tgerrors.New(tgerrors.CodeValidation, "notes and reason must be at most 2000 characters")
	}
	return nil
}

// Message returns whichever field the caller populated.
func (r *AdminActionRequest) Message() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Notes
}
