package checks

import (
	"context"
	"time"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
)

// Check is the uniform capability every provider implements. Execute returns
// a verdict for one subject; implementations must honour ctx cancellation
// because the workflow engine runs them under a per-call timeout.
type Check interface {
	Name() string
	Execute(ctx context.Context, subject models.Subject, documents []models.Document) (models.CheckResult, error)
}

// Weighted pairs a check with its scoring weight. Equal weight 1 is the
// default; weights are configuration, not code.
type Weighted struct {
	Check  Check
	Weight float64
}

// Registry holds the configured check list per subject type, giving the
// workflow engine a compile-time enumerable provider set instead of runtime
// branching on strings.
type Registry struct {
	bySubjectType map[domain.SubjectType][]Weighted
}

func NewRegistry() *Registry {
	return &Registry{bySubjectType: make(map[domain.SubjectType][]Weighted)}
}

// Register appends a check for one subject type. Weights at or below zero
// fall back to 1 so a misconfigured entry never silently drops out of the
// denominator.
func (r *Registry) Register(t domain.SubjectType, check Check, weight float64) {
	if weight <= 0 {
		weight = 1
	}
	r.bySubjectType[t] = append(r.bySubjectType[t], Weighted{Check: check, Weight: weight})
}

// For returns the configured checks for a subject type.
func (r *Registry) For(t domain.SubjectType) []Weighted {
	return r.bySubjectType[t]
}

// Run invokes one check under its own timeout. A provider that errors or
// does not respond yields the unreachable sentinel rather than failing the
// cycle; Run never returns an error.
func Run(ctx context.Context, check Check, timeout time.Duration, subject models.Subject, documents []models.Document) models.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result models.CheckResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := check.Execute(ctx, subject, documents)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.UnreachableResult(check.Name(), subject.ID, subject.CycleID, time.Now())
	case out := <-done:
		if out.err != nil {
			return models.UnreachableResult(check.Name(), subject.ID, subject.CycleID, time.Now())
		}
		result := out.result
		result.CheckName = check.Name()
		result.SubjectID = subject.ID
		result.CycleID = subject.CycleID
		if result.Timestamp.IsZero() {
			result.Timestamp = time.Now()
		}
		return result
	}
}
