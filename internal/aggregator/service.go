package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trustgate/internal/aggregator/metrics"
	"trustgate/pkg/domain"
)

const (
	defaultCallTimeout = 5 * time.Second
	defaultDeadline    = 10 * time.Second

	// Composite weighting: the primary identity service carries 60% of the
	// overall score, all other reachable services share the remaining 40%.
	primaryWeight   = 0.6
	secondaryWeight = 0.4
)

// Service polls every registered downstream verification service
// concurrently and merges whatever arrives before the deadline into one
// report. Unreachable siblings degrade the report, they never fail it.
type Service struct {
	services    []RemoteService
	primaryName string

	callTimeout time.Duration
	deadline    time.Duration

	cache   ReportCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

func WithDeadline(d time.Duration) Option {
	return func(s *Service) { s.deadline = d }
}

func WithCache(cache ReportCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(services []RemoteService, primaryName string, opts ...Option) (*Service, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("at least one downstream service is required")
	}
	svc := &Service{
		services:    services,
		primaryName: primaryName,
		callTimeout: defaultCallTimeout,
		deadline:    defaultDeadline,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Aggregate builds the cross-service report for one subject. It returns as
// soon as either every service responded or the overall deadline elapsed;
// the deadline cancels all still-pending polls.
func (s *Service) Aggregate(ctx context.Context, subjectID domain.SubjectID) (*Report, error) {
	if s.cache != nil {
		if report, ok := s.cache.Get(ctx, subjectID); ok {
			s.metrics.IncrementCacheHit()
			return report, nil
		}
	}

	start := time.Now()
	report := &Report{
		SubjectID:     subjectID,
		State:         StatePending,
		Services:      make(map[string]VerificationStatus, len(s.services)),
		TotalServices: len(s.services),
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	resultCh := make(chan VerificationStatus, len(s.services))
	for _, remote := range s.services {
		go func() {
			resultCh <- remote.GetStatus(ctx, subjectID, s.callTimeout)
		}()
	}

	report.State = StateCollecting
	deadlineHit := false

collect:
	for received := 0; received < len(s.services); received++ {
		select {
		case status := <-resultCh:
			report.Services[status.ServiceName] = status
		case <-ctx.Done():
			deadlineHit = true
			break collect
		}
	}

	s.finalize(report, deadlineHit)
	s.metrics.ObserveLatency(time.Since(start))
	s.metrics.IncrementOutcome(string(report.State))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "aggregation finished",
			"subject_id", subjectID,
			"state", report.State,
			"reachable", report.TotalServices-len(report.Unavailable),
			"total", report.TotalServices,
		)
	}

	// Degraded reports stay out of the cache so recovery is visible on the
	// next read instead of after the TTL.
	if s.cache != nil && report.State == StateComplete {
		s.cache.Set(context.WithoutCancel(ctx), subjectID, report)
	}
	return report, nil
}

// finalize fills in missing services, computes progress and the composite
// score, and settles the terminal aggregation state.
func (s *Service) finalize(report *Report, deadlineHit bool) {
	report.GeneratedAt = time.Now()

	reachable := 0
	for _, remote := range s.services {
		status, ok := report.Services[remote.Name()]
		if !ok {
			// Never answered before the deadline.
			report.Services[remote.Name()] = VerificationStatus{
				ServiceName:   remote.Name(),
				SubjectID:     report.SubjectID,
				State:         StateUnavailable,
				LastCheckedAt: report.GeneratedAt,
				Reachable:     false,
			}
			status = report.Services[remote.Name()]
		}
		if status.Reachable {
			reachable++
		} else {
			report.Unavailable = append(report.Unavailable, remote.Name())
			s.metrics.IncrementUnreachable(remote.Name())
		}
		if status.State == StateVerified {
			report.VerifiedCount++
		}
	}

	report.OverallProgress = float64(report.VerifiedCount) / float64(report.TotalServices) * 100
	report.OverallScore = s.compositeScore(report)

	switch {
	case reachable == 0 && deadlineHit:
		report.State = StateTimeout
	case reachable == len(s.services):
		report.State = StateComplete
	default:
		report.State = StatePartialComplete
	}
}

// compositeScore weights the primary identity service at 60% and averages
// the rest into the remaining 40%. When the primary is unreachable the
// weighting degrades proportionally: whatever is reachable is averaged
// evenly instead of failing the report.
func (s *Service) compositeScore(report *Report) *float64 {
	var primaryScore *float64
	var otherScores []float64

	for name, status := range report.Services {
		if !status.Reachable || status.Score == nil {
			continue
		}
		if name == s.primaryName {
			score := *status.Score
			primaryScore = &score
		} else {
			otherScores = append(otherScores, *status.Score)
		}
	}

	othersAvg := 0.0
	for _, score := range otherScores {
		othersAvg += score
	}
	if len(otherScores) > 0 {
		othersAvg /= float64(len(otherScores))
	}

	switch {
	case primaryScore != nil && len(otherScores) > 0:
		composite := *primaryScore*primaryWeight + othersAvg*secondaryWeight
		return &composite
	case primaryScore != nil:
		return primaryScore
	case len(otherScores) > 0:
		return &othersAvg
	default:
		return nil
	}
}
