package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"

	"trustgate/internal/audit"
	"trustgate/internal/documents"
	"trustgate/internal/verification/checks"
	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/scoring"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

const defaultCheckTimeout = 5 * time.Second

// Service is the workflow engine. It owns every state transition, enforces
// preconditions, fans out to check providers, and hands results to the
// scoring engine. It never owns storage directly; everything is injected.
type Service struct {
	subjects  store.SubjectStore
	documents store.DocumentStore
	checkLog  store.CheckLogStore
	blobs     documents.BlobStore
	ocr       documents.OCREngine
	registry  *checks.Registry

	thresholds   map[domain.SubjectType]scoring.Thresholds
	checkTimeout time.Duration

	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithThresholds(t map[domain.SubjectType]scoring.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) { s.checkTimeout = d }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(
	subjects store.SubjectStore,
	docs store.DocumentStore,
	checkLog store.CheckLogStore,
	blobs documents.BlobStore,
	ocr documents.OCREngine,
	registry *checks.Registry,
	opts ...Option,
) (*Service, error) {
	if subjects == nil || docs == nil || checkLog == nil {
		return nil, fmt.Errorf("subject, document, and check log stores are required")
	}
	if blobs == nil || ocr == nil {
		return nil, fmt.Errorf("blob store and ocr engine are required")
	}
	if registry == nil {
		return nil, fmt.Errorf("check registry is required")
	}

	svc := &Service{
		subjects:     subjects,
		documents:    docs,
		checkLog:     checkLog,
		blobs:        blobs,
		ocr:          ocr,
		registry:     registry,
		checkTimeout: defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ProfileData carries the caller-supplied profile fields. Empty fields are
// ignored on update so partial payloads never blank existing data.
type ProfileData struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

func (p ProfileData) applyTo(subject *models.Subject) {
	if p.Name != "" {
		subject.Name = p.Name
	}
	if p.Email != "" {
		subject.Email = p.Email
	}
	if p.Phone != "" {
		subject.Phone = p.Phone
	}
	if p.Address != "" {
		subject.Address = p.Address
	}
}

// StartRegistration creates a Subject in Draft, or starts a fresh cycle when
// the previous one ended in a terminal state. A subject with a cycle still
// in flight is refused.
func (s *Service) StartRegistration(ctx context.Context, id domain.SubjectID, subjectType domain.SubjectType, initial ProfileData) (*models.Subject, error) {
	if !subjectType.IsValid() {
		return nil, tgerrors.Newf(tgerrors.CodeValidation, "invalid subject type %q", subjectType)
	}

	existing, err := s.subjects.Find(ctx, id)
	switch {
	case err == nil:
		if !existing.Status.IsTerminal() {
			return nil, tgerrors.Newf(tgerrors.CodeDuplicateActiveCycle,
				"subject %s already has an active verification cycle in state %s", id, existing.Status)
		}
		return s.restartCycle(ctx, existing, initial)
	case errors.Is(err, store.ErrNotFound):
		// fall through to create
	default:
		return nil, err
	}

	now := time.Now()
	subject := &models.Subject{
		ID:          id,
		Type:        subjectType,
		Status:      models.StatusDraft,
		CycleID:     domain.NewCycleID(),
		SubmittedAt: now,
		UpdatedAt:   now,
		Metadata:    map[string]string{},
	}
	initial.applyTo(subject)

	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, err
	}
	s.emit(ctx, subject, "registration_started", "", "", string(models.StatusDraft), "")
	s.logInfo(ctx, "registration started", "subject_id", id, "subject_type", subjectType)
	return subject, nil
}

// restartCycle reopens a terminal subject as a new cycle. The prior score is
// cleared; prior check history stays in the log under the old cycle id.
func (s *Service) restartCycle(ctx context.Context, subject *models.Subject, initial ProfileData) (*models.Subject, error) {
	from := subject.Status
	now := time.Now()
	subject.Status = models.StatusDraft
	subject.CycleID = domain.NewCycleID()
	subject.SubmittedAt = now
	subject.UpdatedAt = now
	subject.AdminNotes = ""
	subject.ClearScore()
	initial.applyTo(subject)

	if err := s.subjects.UpdateIfStatus(ctx, subject, from); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, tgerrors.New(tgerrors.CodeDuplicateActiveCycle, "another cycle was started concurrently")
		}
		return nil, err
	}
	s.metrics.IncrementTransition(string(from), string(models.StatusDraft))
	s.emit(ctx, subject, "cycle_restarted", "", string(from), string(models.StatusDraft), "")
	return subject, nil
}

// CompleteProfile validates and applies the profile fields. Allowed only in
// Draft; the subject advances to DocumentsUploaded as soon as both the
// profile and the mandatory document set are complete.
func (s *Service) CompleteProfile(ctx context.Context, id domain.SubjectID, profile ProfileData) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.Status != models.StatusDraft {
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"profile can only be completed in draft, subject is %s", subject.Status)
	}

	profile.applyTo(subject)
	if err := validateProfile(subject); err != nil {
		return nil, err
	}

	subject.UpdatedAt = time.Now()
	if err := s.subjects.UpdateIfStatus(ctx, subject, models.StatusDraft); err != nil {
		return nil, err
	}
	return s.maybeAdvanceToDocumentsUploaded(ctx, subject)
}

func validateProfile(subject *models.Subject) error {
	var missing []string
	if subject.Name == "" {
		missing = append(missing, "name")
	}
	if subject.Email == "" {
		missing = append(missing, "email")
	}
	if subject.Phone == "" {
		missing = append(missing, "phone")
	}
	if subject.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return tgerrors.Newf(tgerrors.CodeValidation, "missing required fields: %v", missing)
	}
	if !govalidator.IsEmail(subject.Email) {
		return tgerrors.Newf(tgerrors.CodeValidation, "invalid email address %q", subject.Email)
	}
	return nil
}

// AttachDocument stores the artifact bytes, runs OCR extraction, and records
// the document against the subject. Uploads are only accepted before the
// cycle enters PendingChecks.
func (s *Service) AttachDocument(ctx context.Context, id domain.SubjectID, docType models.DocumentType, data []byte) (*models.Document, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.Status != models.StatusDraft && subject.Status != models.StatusDocumentsUploaded {
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"documents cannot be attached while subject is %s", subject.Status)
	}
	if len(data) == 0 {
		return nil, tgerrors.New(tgerrors.CodeValidation, "document payload is empty")
	}

	ref, err := s.blobs.Save(ctx, id, docType, data)
	if err != nil {
		return nil, tgerrors.Wrap(err, tgerrors.CodeInternal, "store document")
	}

	doc := &models.Document{
		ID:               domain.NewDocumentID(),
		SubjectID:        id,
		Type:             docType,
		StorageRef:       ref,
		UploadedAt:       time.Now(),
		ProcessingStatus: models.ProcessingUploaded,
	}

	fields, confidence, err := s.ocr.Extract(ctx, docType, data)
	if err != nil {
		// OCR is an external collaborator; its failure leaves the document
		// unprocessed and the authenticity check will flag it later.
		s.logWarn(ctx, "ocr extraction failed", "subject_id", id, "document_type", docType, "error", err)
	} else {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["ocr_confidence"] = fmt.Sprintf("%.2f", confidence)
		doc.ExtractedFields = fields
		doc.ProcessingStatus = models.ProcessingProcessed
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	if _, err := s.maybeAdvanceToDocumentsUploaded(ctx, subject); err != nil {
		return nil, err
	}
	return doc, nil
}

// maybeAdvanceToDocumentsUploaded takes the Draft -> DocumentsUploaded edge
// once the profile and the mandatory document set are both complete.
func (s *Service) maybeAdvanceToDocumentsUploaded(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	if subject.Status != models.StatusDraft {
		return subject, nil
	}
	if !subject.ProfileComplete() {
		return subject, nil
	}
	docs, err := s.documents.ListBySubject(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	if missingDocumentTypes(subject.Type, docs) != nil {
		return subject, nil
	}
	if err := s.transition(ctx, subject, models.StatusDocumentsUploaded, "documents_complete", "", ""); err != nil {
		return nil, err
	}
	return subject, nil
}

func missingDocumentTypes(t domain.SubjectType, docs []models.Document) []models.DocumentType {
	attached := make(map[models.DocumentType]bool, len(docs))
	for _, doc := range docs {
		attached[doc.Type] = true
	}
	var missing []models.DocumentType
	for _, required := range models.RequiredDocumentTypes(t) {
		if !attached[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

// SubmitForVerification moves the subject into PendingChecks and runs the
// configured check fan-out. The call is synchronous for the caller; the
// checks themselves run concurrently with a barrier join.
func (s *Service) SubmitForVerification(ctx context.Context, id domain.SubjectID) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.Status != models.StatusDocumentsUploaded {
		if subject.Status == models.StatusDraft {
			return nil, s.explainDraft(ctx, subject)
		}
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"subject cannot be submitted from state %s", subject.Status)
	}

	configured := s.registry.For(subject.Type)
	if len(configured) == 0 {
		return nil, scoring.ErrNoChecksConfigured
	}

	if err := s.transition(ctx, subject, models.StatusPendingChecks, "submitted", "", ""); err != nil {
		return nil, err
	}

	docs, err := s.documents.ListBySubject(ctx, id)
	if err != nil {
		return nil, err
	}

	results := s.runChecks(ctx, *subject, docs, configured)
	return s.RecordCheckResults(ctx, id, results)
}

// explainDraft turns an incomplete Draft submission into a ValidationError
// naming exactly what is missing.
func (s *Service) explainDraft(ctx context.Context, subject *models.Subject) error {
	if !subject.ProfileComplete() {
		return tgerrors.New(tgerrors.CodeValidation, "profile is incomplete")
	}
	docs, err := s.documents.ListBySubject(ctx, subject.ID)
	if err != nil {
		return err
	}
	if missing := missingDocumentTypes(subject.Type, docs); missing != nil {
		return tgerrors.Newf(tgerrors.CodeValidation, "missing required documents: %v", missing)
	}
	return tgerrors.New(tgerrors.CodeValidation, "subject is not ready for submission")
}

// RecordCheckResults appends the results to the audit log, scores the cycle,
// and applies the post-scoring transition. Invoked by the fan-out join; also
// the entry point for externally executed check batches.
func (s *Service) RecordCheckResults(ctx context.Context, id domain.SubjectID, results []models.CheckResult) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.Status != models.StatusPendingChecks {
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"check results can only be recorded in pending_checks, subject is %s", subject.Status)
	}

	if err := s.checkLog.Append(ctx, results); err != nil {
		return nil, err
	}

	weights := s.weightsFor(subject.Type)
	weighted := make([]scoring.WeightedResult, 0, len(results))
	for _, r := range results {
		weighted = append(weighted, scoring.WeightedResult{Result: r, Weight: weights[r.CheckName]})
	}

	outcome, err := scoring.Score(weighted)
	if err != nil {
		return nil, err
	}

	subject.SetScore(outcome.VerificationScore)
	decided := s.thresholdsFor(subject.Type).Decide(outcome.VerificationScore)

	if err := s.transition(ctx, subject, decided, "checks_scored", "",
		fmt.Sprintf("score=%.1f passed=%d/%d unavailable=%d",
			outcome.VerificationScore, outcome.PassedChecks, outcome.TotalChecks, outcome.Unavailable)); err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(string(decided), string(subject.Type))

	if err := s.markDocuments(ctx, id, decided); err != nil {
		s.logWarn(ctx, "document status update failed", "subject_id", id, "error", err)
	}

	s.logInfo(ctx, "verification cycle scored",
		"subject_id", id,
		"cycle_id", subject.CycleID,
		"score", outcome.VerificationScore,
		"unavailable_checks", outcome.Unavailable,
		"status", decided,
	)
	return subject, nil
}

// markDocuments moves processed documents to their terminal processing state
// once the cycle decides.
func (s *Service) markDocuments(ctx context.Context, id domain.SubjectID, decided models.Status) error {
	var target models.ProcessingStatus
	switch decided {
	case models.StatusVerified:
		target = models.ProcessingVerified
	case models.StatusRejected:
		target = models.ProcessingRejected
	default:
		return nil
	}
	docs, err := s.documents.ListBySubject(ctx, id)
	if err != nil {
		return err
	}
	for i := range docs {
		doc := docs[i]
		doc.ProcessingStatus = target
		if err := s.documents.Update(ctx, &doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) weightsFor(t domain.SubjectType) map[string]float64 {
	weights := make(map[string]float64)
	for _, wc := range s.registry.For(t) {
		weights[wc.Check.Name()] = wc.Weight
	}
	return weights
}

func (s *Service) thresholdsFor(t domain.SubjectType) scoring.Thresholds {
	if th, ok := s.thresholds[t]; ok {
		return th
	}
	return scoring.DefaultThresholds()
}

// RequestReview moves any non-terminal subject to UnderReview.
func (s *Service) RequestReview(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, subject, models.StatusUnderReview, "review_requested", actor, reason); err != nil {
		return nil, err
	}
	return subject, nil
}

// Approve is the manual terminal transition to Verified, valid from
// PendingChecks or UnderReview.
func (s *Service) Approve(ctx context.Context, id domain.SubjectID, actor, notes string) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if notes != "" {
		subject.AdminNotes = notes
	}
	if err := s.transition(ctx, subject, models.StatusVerified, "approved", actor, notes); err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(string(models.StatusVerified), string(subject.Type))
	return subject, nil
}

// Reject is the manual terminal transition to Rejected.
func (s *Service) Reject(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		subject.AdminNotes = reason
	}
	if err := s.transition(ctx, subject, models.StatusRejected, "rejected", actor, reason); err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(string(models.StatusRejected), string(subject.Type))
	return subject, nil
}

// Cancel abandons the cycle from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, id domain.SubjectID, actor string) (*models.Subject, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, subject, models.StatusCancelled, "cancelled", actor, ""); err != nil {
		return nil, err
	}
	return subject, nil
}

// Status returns the subject with its documents.
func (s *Service) Status(ctx context.Context, id domain.SubjectID) (*models.Subject, []models.Document, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	docs, err := s.documents.ListBySubject(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return subject, docs, nil
}

// History returns every recorded check result for the subject across all
// cycles, oldest first.
func (s *Service) History(ctx context.Context, id domain.SubjectID) ([]models.CheckResult, error) {
	if _, err := s.subjects.Find(ctx, id); err != nil {
		return nil, err
	}
	return s.checkLog.ListBySubject(ctx, id)
}

// RiskAssessment is the subject's risk view: complement score plus the
// current cycle's per-check breakdown.
type RiskAssessment struct {
	Subject *models.Subject
	Results []models.CheckResult
}

func (s *Service) Risk(ctx context.Context, id domain.SubjectID) (*RiskAssessment, error) {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := s.checkLog.ListByCycle(ctx, id, subject.CycleID)
	if err != nil {
		return nil, err
	}
	return &RiskAssessment{Subject: subject, Results: results}, nil
}

// Delete hard-deletes the subject and its documents. Check history and audit
// events remain for compliance.
func (s *Service) Delete(ctx context.Context, id domain.SubjectID, actor string) error {
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documents.DeleteBySubject(ctx, id); err != nil {
		return err
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, subject, "deleted", actor, string(subject.Status), "", "")
	return nil
}

// transition applies one validated state machine edge with the optimistic
// status check, then records metrics and audit.
func (s *Service) transition(ctx context.Context, subject *models.Subject, to models.Status, action, actor, reason string) error {
	from := subject.Status
	if !from.CanTransition(to) {
		return tgerrors.Newf(tgerrors.CodeInvalidTransition, "cannot transition from %s to %s", from, to)
	}
	subject.Status = to
	subject.UpdatedAt = time.Now()
	if err := s.subjects.UpdateIfStatus(ctx, subject, from); err != nil {
		subject.Status = from
		return err
	}
	s.metrics.IncrementTransition(string(from), string(to))
	s.emit(ctx, subject, action, actor, string(from), string(to), reason)
	return nil
}

func (s *Service) emit(ctx context.Context, subject *models.Subject, action, actor, from, to, reason string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, audit.Event{
		SubjectID: subject.ID,
		CycleID:   subject.CycleID.String(),
		Actor:     actor,
		Action:    action,
		FromState: from,
		ToState:   to,
		Reason:    reason,
	})
	if err != nil {
		s.logWarn(ctx, "audit emit failed", "subject_id", subject.ID, "action", action, "error", err)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
