package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgate/pkg/domain"
)

// fakeRemote answers with a canned status, optionally after a delay.
type fakeRemote struct {
	name  string
	state string
	score *float64
	delay time.Duration
}

func score(v float64) *float64 { return &v }

func (f *fakeRemote) Name() string { return f.name }

func (f *fakeRemote) GetStatus(ctx context.Context, subjectID domain.SubjectID, _ time.Duration) VerificationStatus {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return VerificationStatus{
				ServiceName: f.name,
				SubjectID:   subjectID,
				State:       StateUnavailable,
				Reachable:   false,
			}
		}
	}
	return VerificationStatus{
		ServiceName:   f.name,
		SubjectID:     subjectID,
		State:         f.state,
		Score:         f.score,
		LastCheckedAt: time.Now(),
		Reachable:     f.state != StateUnavailable,
	}
}

// memoryCache is a plain map cache for asserting cache interactions.
type memoryCache struct {
	mu      sync.Mutex
	reports map[domain.SubjectID]*Report
	hits    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[domain.SubjectID]*Report)}
}

func (c *memoryCache) Get(_ context.Context, subjectID domain.SubjectID) (*Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.reports[subjectID]
	if ok {
		c.hits++
	}
	return report, ok
}

func (c *memoryCache) Set(_ context.Context, subjectID domain.SubjectID, report *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[subjectID] = report
	c.sets++
}

type AggregatorSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *AggregatorSuite) TestCompleteReport() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(90)},
		&fakeRemote{name: "payments", state: StateVerified, score: score(80)},
		&fakeRemote{name: "compliance", state: "pending_checks", score: score(60)},
	}, "identity")
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-1")
	s.Require().NoError(err)

	s.Equal(StateComplete, report.State)
	s.Equal(3, report.TotalServices)
	s.Equal(2, report.VerifiedCount)
	s.InDelta(2.0/3.0*100, report.OverallProgress, 1e-9)
	s.Empty(report.Unavailable)

	// 90*0.6 + avg(80, 60)*0.4
	s.Require().NotNil(report.OverallScore)
	s.InDelta(82.0, *report.OverallScore, 1e-9)
}

func (s *AggregatorSuite) TestPartialCompleteWhenSomeServicesUnreachable() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(100)},
		&fakeRemote{name: "payments", state: StateVerified, score: score(90)},
		&fakeRemote{name: "compliance", state: StateUnavailable},
		&fakeRemote{name: "lending", state: StateUnavailable},
	}, "identity")
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-2")
	s.Require().NoError(err)

	s.Equal(StatePartialComplete, report.State)
	s.Equal(2, report.VerifiedCount)
	s.InDelta(50.0, report.OverallProgress, 1e-9)
	s.ElementsMatch([]string{"compliance", "lending"}, report.Unavailable)

	// Unreachable services are excluded from the composite, not zeroed.
	s.Require().NotNil(report.OverallScore)
	s.InDelta(100*0.6+90*0.4, *report.OverallScore, 1e-9)
}

func (s *AggregatorSuite) TestSlowServicesBoundedByDeadline() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(100)},
		&fakeRemote{name: "glacial", state: StateVerified, delay: 5 * time.Second},
	}, "identity", WithDeadline(50*time.Millisecond))
	s.Require().NoError(err)

	start := time.Now()
	report, err := svc.Aggregate(s.ctx, "subj-3")
	s.Require().NoError(err)

	s.Less(time.Since(start), time.Second)
	s.Equal(StatePartialComplete, report.State)
	s.Contains(report.Unavailable, "glacial")
	s.Equal(StateUnavailable, report.Services["glacial"].State)
}

func (s *AggregatorSuite) TestTimeoutWhenNothingAnswers() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, delay: 5 * time.Second},
		&fakeRemote{name: "payments", state: StateVerified, delay: 5 * time.Second},
	}, "identity", WithDeadline(50*time.Millisecond))
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-4")
	s.Require().NoError(err)

	s.Equal(StateTimeout, report.State)
	s.Equal(0, report.VerifiedCount)
	s.Nil(report.OverallScore)
	s.Len(report.Unavailable, 2)
}

func (s *AggregatorSuite) TestPrimaryOnlyScore() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(88)},
		&fakeRemote{name: "payments", state: StateUnavailable},
	}, "identity")
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-5")
	s.Require().NoError(err)

	s.Require().NotNil(report.OverallScore)
	s.InDelta(88.0, *report.OverallScore, 1e-9)
}

func (s *AggregatorSuite) TestSecondariesOnlyScore() {
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateUnavailable},
		&fakeRemote{name: "payments", state: StateVerified, score: score(70)},
		&fakeRemote{name: "compliance", state: StateVerified, score: score(90)},
	}, "identity")
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-6")
	s.Require().NoError(err)

	s.Require().NotNil(report.OverallScore)
	s.InDelta(80.0, *report.OverallScore, 1e-9)
}

func (s *AggregatorSuite) TestCaching() {
	cache := newMemoryCache()
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(95)},
	}, "identity", WithCache(cache))
	s.Require().NoError(err)

	first, err := svc.Aggregate(s.ctx, "subj-7")
	s.Require().NoError(err)
	s.Equal(1, cache.sets)

	second, err := svc.Aggregate(s.ctx, "subj-7")
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(1, cache.hits)
	s.Equal(1, cache.sets, "cache hit must not trigger another write")
}

func (s *AggregatorSuite) TestTimeoutReportsAreNotCached() {
	cache := newMemoryCache()
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, delay: 5 * time.Second},
	}, "identity", WithDeadline(50*time.Millisecond), WithCache(cache))
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-8")
	s.Require().NoError(err)
	s.Equal(StateTimeout, report.State)
	s.Equal(0, cache.sets)
}

func (s *AggregatorSuite) TestPartialReportsAreNotCached() {
	cache := newMemoryCache()
	svc, err := New([]RemoteService{
		&fakeRemote{name: "identity", state: StateVerified, score: score(90)},
		&fakeRemote{name: "sanctions", state: StateUnavailable},
	}, "identity", WithCache(cache))
	s.Require().NoError(err)

	report, err := svc.Aggregate(s.ctx, "subj-9")
	s.Require().NoError(err)
	s.Equal(StatePartialComplete, report.State)
	s.Equal(0, cache.sets, "degraded report must not be served for the TTL window")

	// The next read goes back to the remotes rather than the cache.
	report, err = svc.Aggregate(s.ctx, "subj-9")
	s.Require().NoError(err)
	s.Equal(StatePartialComplete, report.State)
	s.Equal(0, cache.sets)
}

func (s *AggregatorSuite) TestRequiresServices() {
	_, err := New(nil, "identity")
	s.Require().Error(err)
}
