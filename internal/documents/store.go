package documents

import (
	"context"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

// BlobStore is the adapter contract for the object store holding uploaded
// artifacts. The core only handles opaque storage refs; bucket layout and
// transport belong to the implementation.
type BlobStore interface {
	Save(ctx context.Context, subjectID domain.SubjectID, docType models.DocumentType, data []byte) (storageRef string, err error)
	Fetch(ctx context.Context, storageRef string) ([]byte, error)
}

var (
	ErrBlobNotFound       = tgerrors.New(tgerrors.CodeNotFound, "stored document not found")
	ErrStorageUnavailable = tgerrors.New(tgerrors.CodeInternal, "document storage unavailable")
)

// OCREngine is the adapter contract for the external OCR/document-analysis
// provider. Confidence is 0.0-1.0.
type OCREngine interface {
	Extract(ctx context.Context, docType models.DocumentType, data []byte) (fields map[string]string, confidence float64, err error)
}
