package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"trustgate/internal/audit"
	"trustgate/internal/documents"
	"trustgate/internal/platform/logger"
	"trustgate/internal/platform/middleware"
	"trustgate/internal/verification/checks"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/review"
	checklogstore "trustgate/internal/verification/store/checklog"
	documentstore "trustgate/internal/verification/store/document"
	subjectstore "trustgate/internal/verification/store/subject"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
)

const testSigningKey = "handler-test-signing-key"

// passCheck always passes so submissions verify deterministically.
type passCheck struct{ name string }

func (c passCheck) Name() string { return c.name }

func (c passCheck) Execute(context.Context, models.Subject, []models.Document) (models.CheckResult, error) {
	return models.CheckResult{Passed: true, Confidence: 0.9, Details: "ok"}, nil
}

type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	workflow *workflow.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := logger.New()

	subjects := subjectstore.NewInMemory()
	registry := checks.NewRegistry()
	for _, t := range []domain.SubjectType{domain.SubjectTypeIndividual, domain.SubjectTypeBusiness} {
		registry.Register(t, passCheck{name: "contact"}, 1)
		registry.Register(t, passCheck{name: "address"}, 1)
	}

	publisher := audit.NewPublisher(audit.NewInMemoryStore())

	wf, err := workflow.New(
		subjects, documentstore.NewInMemory(), checklogstore.NewInMemory(),
		documents.NewInMemoryBlobStore(), documents.SimulatedOCR{},
		registry,
		workflow.WithAuditPublisher(publisher),
	)
	s.Require().NoError(err)
	s.workflow = wf

	reviewer, err := review.New(wf, subjects, log)
	s.Require().NoError(err)

	h := New(wf, reviewer, publisher, middleware.NewTokenValidator(testSigningKey), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	h.Register(r)
	h.RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) adminToken(role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin-7",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerSuite) adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.adminToken("admin")}
}

func (s *HandlerSuite) createSubject(id string) {
	rec := s.do(http.MethodPost, "/subjects", map[string]any{
		"subject_id":   id,
		"subject_type": "individual",
		"profile": map[string]string{
			"name":    "Jordan Doe",
			"email":   "jordan@example.com",
			"phone":   "+4915112345678",
			"address": "1 Main St",
		},
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) attachDocument(id, docType string) {
	rec := s.do(http.MethodPost, fmt.Sprintf("/subjects/%s/documents", id), map[string]string{
		"document_type": docType,
		"content":       base64.StdEncoding.EncodeToString([]byte("scanned bytes")),
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

// readySubject walks a subject to DocumentsUploaded via the HTTP surface.
func (s *HandlerSuite) readySubject(id string) {
	s.createSubject(id)
	s.attachDocument(id, "id_card")
	s.attachDocument(id, "proof_of_address")
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func (s *HandlerSuite) TestCreateSubject() {
	s.Run("creates a draft subject", func() {
		rec := s.do(http.MethodPost, "/subjects", map[string]any{
			"subject_id":   "subj-1",
			"subject_type": "business",
		}, nil)
		s.Require().Equal(http.StatusCreated, rec.Code)

		body := s.decode(rec)
		s.Equal("subj-1", body["id"])
		s.Equal("draft", body["status"])
		s.Equal("business", body["subject_type"])
	})

	s.Run("missing subject_id is a validation error", func() {
		rec := s.do(http.MethodPost, "/subjects", map[string]any{"subject_type": "individual"}, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.decode(rec)["error"])
	})

	s.Run("unknown subject type is a validation error", func() {
		rec := s.do(http.MethodPost, "/subjects", map[string]any{
			"subject_id":   "subj-2",
			"subject_type": "syndicate",
		}, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("duplicate active cycle conflicts", func() {
		s.createSubject("subj-dup")
		rec := s.do(http.MethodPost, "/subjects", map[string]any{
			"subject_id":   "subj-dup",
			"subject_type": "individual",
		}, nil)
		s.Require().Equal(http.StatusConflict, rec.Code)
		s.Equal("duplicate_active_cycle", s.decode(rec)["error"])
	})
}

func (s *HandlerSuite) TestGetSubject() {
	s.Run("returns subject with documents", func() {
		s.readySubject("subj-get")

		rec := s.do(http.MethodGet, "/subjects/subj-get", nil, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		body := s.decode(rec)
		subject := body["subject"].(map[string]any)
		s.Equal("documents_uploaded", subject["status"])
		s.Len(body["documents"], 2)
	})

	s.Run("unknown subject is 404", func() {
		rec := s.do(http.MethodGet, "/subjects/subj-none", nil, nil)
		s.Require().Equal(http.StatusNotFound, rec.Code)
		s.Equal("not_found", s.decode(rec)["error"])
	})
}

func (s *HandlerSuite) TestUpdateProfile() {
	rec := s.do(http.MethodPost, "/subjects", map[string]any{
		"subject_id":   "subj-prof",
		"subject_type": "individual",
	}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Run("applies profile fields", func() {
		rec := s.do(http.MethodPut, "/subjects/subj-prof/profile", map[string]string{
			"name":    "Jordan Doe",
			"email":   "jordan@example.com",
			"phone":   "+4915112345678",
			"address": "1 Main St",
		}, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("Jordan Doe", s.decode(rec)["name"])
	})

	s.Run("empty payload is a validation error", func() {
		rec := s.do(http.MethodPut, "/subjects/subj-prof/profile", map[string]string{}, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestAttachDocument() {
	s.createSubject("subj-doc")

	s.Run("accepts a base64 document", func() {
		rec := s.do(http.MethodPost, "/subjects/subj-doc/documents", map[string]string{
			"document_type": "passport",
			"content":       base64.StdEncoding.EncodeToString([]byte("passport scan")),
		}, nil)
		s.Require().Equal(http.StatusCreated, rec.Code)

		body := s.decode(rec)
		s.Equal("passport", body["document_type"])
		s.Equal("processed", body["processing_status"])
		fields := body["extracted_fields"].(map[string]any)
		s.Equal("0.95", fields["ocr_confidence"])
	})

	s.Run("rejects unknown document type", func() {
		rec := s.do(http.MethodPost, "/subjects/subj-doc/documents", map[string]string{
			"document_type": "selfie",
			"content":       base64.StdEncoding.EncodeToString([]byte("x")),
		}, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects payload that is not base64", func() {
		rec := s.do(http.MethodPost, "/subjects/subj-doc/documents", map[string]string{
			"document_type": "passport",
			"content":       "not-*-base64",
		}, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("runs the cycle and returns the decision", func() {
		s.readySubject("subj-sub")

		rec := s.do(http.MethodPost, "/subjects/subj-sub/submit", nil, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		body := s.decode(rec)
		s.Equal("verified", body["status"])
		s.Equal(100.0, body["verification_score"])
		s.Equal(0.0, body["risk_score"])
	})

	s.Run("premature submission explains what is missing", func() {
		s.createSubject("subj-early")

		rec := s.do(http.MethodPost, "/subjects/subj-early/submit", nil, nil)
		s.Require().Equal(http.StatusBadRequest, rec.Code)
		s.Contains(s.decode(rec)["error_description"], "missing required documents")
	})
}

func (s *HandlerSuite) TestHistoryAndRisk() {
	s.readySubject("subj-hist")
	rec := s.do(http.MethodPost, "/subjects/subj-hist/submit", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	s.Run("history lists all recorded checks", func() {
		rec := s.do(http.MethodGet, "/subjects/subj-hist/history", nil, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		body := s.decode(rec)
		s.Equal(2.0, body["total"])
	})

	s.Run("risk view carries the complement score", func() {
		rec := s.do(http.MethodGet, "/subjects/subj-hist/risk", nil, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		body := s.decode(rec)
		s.Equal(0.0, body["risk_score"])
		s.Len(body["results"], 2)
	})
}

func (s *HandlerSuite) TestCancel() {
	s.createSubject("subj-stop")

	rec := s.do(http.MethodPost, "/subjects/subj-stop/cancel", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("cancelled", s.decode(rec)["status"])
}

func (s *HandlerSuite) TestAdminAuth() {
	s.readySubject("subj-adm")

	s.Run("missing token is unauthorized", func() {
		rec := s.do(http.MethodPost, "/admin/subjects/subj-adm/request-review", nil, nil)
		s.Require().Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("garbage token is unauthorized", func() {
		rec := s.do(http.MethodPost, "/admin/subjects/subj-adm/request-review", nil,
			map[string]string{"Authorization": "Bearer not-a-jwt"})
		s.Require().Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("non-admin role is forbidden", func() {
		rec := s.do(http.MethodPost, "/admin/subjects/subj-adm/request-review", nil,
			map[string]string{"Authorization": "Bearer " + s.adminToken("viewer")})
		s.Require().Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *HandlerSuite) TestAdminDecisions() {
	s.Run("request review then approve", func() {
		s.readySubject("subj-dec")

		rec := s.do(http.MethodPost, "/admin/subjects/subj-dec/request-review",
			map[string]string{"reason": "spot check"}, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		s.Equal("under_review", s.decode(rec)["status"])

		rec = s.do(http.MethodPost, "/admin/subjects/subj-dec/approve",
			map[string]string{"notes": "verified by hand"}, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code)

		body := s.decode(rec)
		s.Equal("verified", body["status"])
		s.Equal("verified by hand", body["admin_notes"])
	})

	s.Run("reject from review queue", func() {
		s.readySubject("subj-rej")

		rec := s.do(http.MethodPost, "/admin/subjects/subj-rej/request-review", nil, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/admin/subjects/subj-rej/reject",
			map[string]string{"reason": "forged license"}, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("rejected", s.decode(rec)["status"])
	})

	s.Run("approve on a draft subject conflicts", func() {
		s.createSubject("subj-nope")

		rec := s.do(http.MethodPost, "/admin/subjects/subj-nope/approve", nil, s.adminHeaders())
		s.Require().Equal(http.StatusConflict, rec.Code)
		s.Equal("invalid_transition", s.decode(rec)["error"])
	})

	s.Run("delete removes the subject but keeps its trail", func() {
		s.readySubject("subj-gone")

		rec := s.do(http.MethodDelete, "/admin/subjects/subj-gone", nil, s.adminHeaders())
		s.Require().Equal(http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(http.MethodGet, "/subjects/subj-gone", nil, nil)
		s.Equal(http.StatusNotFound, rec.Code)

		rec = s.do(http.MethodGet, "/admin/subjects/subj-gone/audit", nil, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code)
		s.NotEmpty(s.decode(rec)["events"])
	})

	s.Run("audit trail lists lifecycle events", func() {
		s.readySubject("subj-trail")
		rec := s.do(http.MethodPost, "/subjects/subj-trail/submit", nil, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.do(http.MethodGet, "/admin/subjects/subj-trail/audit", nil, s.adminHeaders())
		s.Require().Equal(http.StatusOK, rec.Code)

		body := s.decode(rec)
		events := body["events"].([]any)
		s.GreaterOrEqual(len(events), 3)
		first := events[0].(map[string]any)
		s.Equal("registration_started", first["action"])
	})
}
