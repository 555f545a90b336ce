package scoring

import (
	"trustgate/internal/verification/models"
	tgerrors "trustgate/pkg/errors"
)

// WeightedResult pairs one check result with its configured weight.
type WeightedResult struct {
	Result models.CheckResult
	Weight float64
}

// Outcome is the scored summary of one verification cycle. Confidence is
// carried per check for audit but does not feed the score.
type Outcome struct {
	VerificationScore float64
	RiskScore         float64
	PassedChecks      int
	TotalChecks       int
	Unavailable       int
}

// ErrNoChecksConfigured is surfaced when a cycle would be scored over an
// empty check list; scoring never silently returns 0 or 100.
var ErrNoChecksConfigured = tgerrors.New(tgerrors.CodeNoChecksConfigured, "no checks configured for subject type")

// Score computes the weighted pass ratio over all results. Unreachable
// providers stay in the denominator and count as failed, so the score
// degrades with availability instead of hiding it.
func Score(results []WeightedResult) (Outcome, error) {
	if len(results) == 0 {
		return Outcome{}, ErrNoChecksConfigured
	}

	var passedWeight, totalWeight float64
	out := Outcome{TotalChecks: len(results)}
	for _, wr := range results {
		weight := wr.Weight
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight
		if wr.Result.Passed {
			passedWeight += weight
			out.PassedChecks++
		}
		if wr.Result.Unreachable() {
			out.Unavailable++
		}
	}

	out.VerificationScore = passedWeight / totalWeight * 100
	out.RiskScore = 100 - out.VerificationScore
	return out, nil
}

// Thresholds holds the decision band boundaries. Both boundaries are
// inclusive toward the stricter side: a score equal to VerifyAt verifies,
// a score equal to RejectBelow goes to review.
type Thresholds struct {
	VerifyAt    float64
	RejectBelow float64
}

// DefaultThresholds mirrors the production tuning: >=80 verified, <50
// rejected, review in between.
func DefaultThresholds() Thresholds {
	return Thresholds{VerifyAt: 80, RejectBelow: 50}
}

// Decide maps a score onto the post-scoring transition.
func (t Thresholds) Decide(score float64) models.Status {
	switch {
	case score >= t.VerifyAt:
		return models.StatusVerified
	case score < t.RejectBelow:
		return models.StatusRejected
	default:
		return models.StatusUnderReview
	}
}
