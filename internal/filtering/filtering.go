package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/candidate"
)

// Filter represents a single filtering step applied to candidate documents.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, set *candidate.Set) (*candidate.Set, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Filtering executes filters sequentially over a candidate set.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Filtering{steps: steps, logger: logger}
}

// RunFilters applies every enabled filter in order and returns the
// remaining candidates.
func (f *Filtering) RunFilters(ctx context.Context, set *candidate.Set) (*candidate.Set, error) {
	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		next, info, err := step.Apply(ctx, set)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		set = next
	}

	return set, nil
}
