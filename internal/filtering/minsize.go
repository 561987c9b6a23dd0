package filtering

import (
	"context"

	"github.com/vtikhonov/cv-screener/internal/candidate"
)

type minSizeFilter struct {
	min      int64
	disabled bool
	reason   string
}

// NewMinSize creates a filter that removes documents smaller than min
// bytes. A non-positive min makes the filter a no-op.
func NewMinSize(min int64) Filter {
	return &minSizeFilter{min: min}
}

func (f *minSizeFilter) Name() string { return "min_size" }

func (f *minSizeFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minSizeFilter) IsEnabled() bool { return !f.disabled }

func (f *minSizeFilter) Validate() error { return nil }

func (f *minSizeFilter) Apply(_ context.Context, set *candidate.Set) (*candidate.Set, Step, error) {
	initial := set.Len()

	if f.min <= 0 {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	var small []string

	for _, doc := range set.Items {
		if doc.Size < f.min {
			small = append(small, doc.ID)
		}
	}

	excluded := set.Exclude(candidate.DocumentIDField, small)

	return set, Step{Initial: initial, Dropped: len(excluded), Left: set.Len()}, nil
}
