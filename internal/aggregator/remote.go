package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trustgate/pkg/domain"
)

// RemoteService is one registered downstream verification service. GetStatus
// must never fail: timeouts and outages come back as an unreachable status
// so a slow sibling never breaks the aggregate view.
type RemoteService interface {
	Name() string
	GetStatus(ctx context.Context, subjectID domain.SubjectID, timeout time.Duration) VerificationStatus
}

// HTTPService polls a sibling service's status endpoint over HTTP.
type HTTPService struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewHTTPService(name, baseURL string) *HTTPService {
	return &HTTPService{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (s *HTTPService) Name() string { return s.name }

// statusPayload is the wire shape sibling services expose.
type statusPayload struct {
	State string   `json:"state"`
	Score *float64 `json:"score"`
}

func (s *HTTPService) GetStatus(ctx context.Context, subjectID domain.SubjectID, timeout time.Duration) VerificationStatus {
	status := VerificationStatus{
		ServiceName:   s.name,
		SubjectID:     subjectID,
		State:         StateUnavailable,
		LastCheckedAt: time.Now(),
		Reachable:     false,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/status/%s", s.baseURL, subjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.State = StateError
		return status
	}

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		status.State = StateError
		return status
	}

	status.State = payload.State
	status.Score = payload.Score
	status.Reachable = true
	return status
}
