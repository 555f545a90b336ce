package models

import (
	"time"

	"trustgate/pkg/domain"
)

// DocumentType is the closed set of artifact kinds a subject may upload.
type DocumentType string

const (
	DocumentTypeIDCard                  DocumentType = "id_card"
	DocumentTypePassport                DocumentType = "passport"
	DocumentTypeBusinessLicense         DocumentType = "business_license"
	DocumentTypeTaxCertificate          DocumentType = "tax_certificate"
	DocumentTypeProofOfAddress          DocumentType = "proof_of_address"
	DocumentTypeBankStatement           DocumentType = "bank_statement"
	DocumentTypeArticlesOfIncorporation DocumentType = "articles_of_incorporation"
)

func ParseDocumentType(raw string) (DocumentType, bool) {
	switch DocumentType(raw) {
	case DocumentTypeIDCard, DocumentTypePassport, DocumentTypeBusinessLicense,
		DocumentTypeTaxCertificate, DocumentTypeProofOfAddress,
		DocumentTypeBankStatement, DocumentTypeArticlesOfIncorporation:
		return DocumentType(raw), true
	}
	return "", false
}

// RequiredDocumentTypes lists the mandatory document set per subject type.
// submitForVerification refuses until at least one of each is attached.
func RequiredDocumentTypes(t domain.SubjectType) []DocumentType {
	switch t {
	case domain.SubjectTypeBusiness:
		return []DocumentType{DocumentTypeBusinessLicense, DocumentTypeProofOfAddress}
	default:
		return []DocumentType{DocumentTypeIDCard, DocumentTypeProofOfAddress}
	}
}

// ProcessingStatus tracks a document through OCR and verification.
type ProcessingStatus string

const (
	ProcessingUploaded  ProcessingStatus = "uploaded"
	ProcessingProcessed ProcessingStatus = "processed"
	ProcessingVerified  ProcessingStatus = "verified"
	ProcessingRejected  ProcessingStatus = "rejected"
)

// Document is one uploaded artifact owned by exactly one Subject. The bytes
// live behind the document store adapter; StorageRef is its opaque handle.
type Document struct {
	ID               domain.DocumentID
	SubjectID        domain.SubjectID
	Type             DocumentType
	StorageRef       string
	UploadedAt       time.Time
	ProcessingStatus ProcessingStatus
	ExtractedFields  map[string]string
	AdminNotes       string
}
