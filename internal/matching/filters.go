package matching

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
)

// Filter represents a single filtering step applied to scored candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, in []*ScoredMatch) ([]*ScoredMatch, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Filters builds the steps applied to candidates of the given query.
func Filters(q *domain.JobQuery, threshold float64, strict bool) []Filter {
	avail := &predicateFilter{
		name: "availability",
		keep: func(m *ScoredMatch) bool { return m.AvailabilityMatch },
	}
	loc := &predicateFilter{
		name: "location",
		keep: func(m *ScoredMatch) bool { return m.LocationMatch },
	}

	switch {
	case q == nil || q.Window == nil:
		avail.Disable("no time window in query")
	case !strict:
		avail.Disable("advisory mode")
	}

	switch {
	case q == nil || q.Location == nil:
		loc.Disable("no location in query")
	case !strict:
		loc.Disable("advisory mode")
	}

	return []Filter{&thresholdFilter{threshold: threshold}, avail, loc}
}

func runFilters(ctx context.Context, logger *zap.Logger, steps []Filter, in []*ScoredMatch) ([]*ScoredMatch, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		in = next
	}

	return in, nil
}

// thresholdFilter guards against stores that return hits below the requested similarity.
type thresholdFilter struct {
	threshold float64
}

func (f *thresholdFilter) Name() string { return "threshold" }

func (f *thresholdFilter) Disable(string) {}

func (f *thresholdFilter) IsEnabled() bool { return true }

func (f *thresholdFilter) Apply(_ context.Context, in []*ScoredMatch) ([]*ScoredMatch, Step, error) {
	out := make([]*ScoredMatch, 0, len(in))
	for _, m := range in {
		if m.Similarity >= f.threshold {
			out = append(out, m)
		}
	}
	return out, Step{Initial: len(in), Dropped: len(in) - len(out), Left: len(out)}, nil
}

func (f *thresholdFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"threshold": strconv.FormatFloat(f.threshold, 'f', 2, 64)},
	}
}

type predicateFilter struct {
	name     string
	disabled bool
	reason   string
	keep     func(*ScoredMatch) bool
}

func (f *predicateFilter) Name() string { return f.name }

func (f *predicateFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *predicateFilter) IsEnabled() bool { return !f.disabled }

func (f *predicateFilter) Apply(_ context.Context, in []*ScoredMatch) ([]*ScoredMatch, Step, error) {
	out := make([]*ScoredMatch, 0, len(in))
	for _, m := range in {
		if f.keep(m) {
			out = append(out, m)
		}
	}
	return out, Step{Initial: len(in), Dropped: len(in) - len(out), Left: len(out)}, nil
}

func (f *predicateFilter) Status() Status {
	return Status{Name: f.name, Enabled: !f.disabled, Reason: f.reason}
}
