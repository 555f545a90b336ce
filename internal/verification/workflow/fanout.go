package workflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"trustgate/internal/verification/checks"
	"trustgate/internal/verification/models"
)

// runChecks invokes every configured provider concurrently and joins on all
// of them. The join is a barrier: scoring never runs over a partial result
// set. Individual timeouts surface as unreachable sentinels, so the group
// itself never fails.
func (s *Service) runChecks(ctx context.Context, subject models.Subject, docs []models.Document, configured []checks.Weighted) []models.CheckResult {
	results := make([]models.CheckResult, len(configured))

	g, ctx := errgroup.WithContext(ctx)
	for i, wc := range configured {
		g.Go(func() error {
			start := time.Now()
			result := checks.Run(ctx, wc.Check, s.checkTimeout, subject, docs)
			s.metrics.ObserveCheckLatency(wc.Check.Name(), time.Since(start))
			if result.Unreachable() {
				s.metrics.IncrementUnreachable()
				s.logWarn(ctx, "check provider unreachable",
					"check", wc.Check.Name(),
					"subject_id", subject.ID,
				)
			}
			results[i] = result
			return nil
		})
	}
	// Run absorbs provider errors into sentinel results, so Wait cannot fail.
	_ = g.Wait()
	return results
}
