package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/candidate"
	"github.com/vtikhonov/cv-screener/internal/history"
)

const rescanFlagSetMsg = "rescan flag is set"

type screenedHistoryFilter struct {
	cfg      *ScreenedHistoryConfig
	deps     *ScreenedHistoryDeps
	disabled bool
	reason   string
}

type ScreenedHistoryConfig struct {
	// Path to the screening history file. An empty path makes the
	// filter a no-op.
	Path string
	// Rescan keeps already screened documents in the set.
	Rescan bool
}

type ScreenedHistoryDeps struct {
	Logger *zap.Logger
}

// NewScreenedHistory creates a filter that removes documents already
// present in the screening history, matched by content fingerprint.
func NewScreenedHistory(cfg *ScreenedHistoryConfig, deps *ScreenedHistoryDeps) Filter {
	if cfg == nil {
		cfg = &ScreenedHistoryConfig{}
	}

	return &screenedHistoryFilter{
		cfg:  cfg,
		deps: deps,
	}
}

func (f *screenedHistoryFilter) Name() string { return "screened_history" }

func (f *screenedHistoryFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *screenedHistoryFilter) IsEnabled() bool { return !f.disabled }

func (f *screenedHistoryFilter) Validate() error {
	if f.deps == nil || f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	return nil
}

func (f *screenedHistoryFilter) Apply(_ context.Context, set *candidate.Set) (*candidate.Set, Step, error) {
	initial := set.Len()

	if f.cfg.Path == "" {
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	if f.cfg.Rescan {
		f.deps.Logger.Info("keeping already screened documents", zap.String("reason", rescanFlagSetMsg))
		return set, Step{Initial: initial, Dropped: 0, Left: set.Len()}, nil
	}

	screened, err := history.FromFile(f.cfg.Path)
	if err != nil {
		return set, Step{}, fmt.Errorf("loading screening history: %w", err)
	}

	excluded := set.Exclude(candidate.DocumentFingerprintField, screened.Fingerprints())
	if len(excluded) > 0 {
		f.deps.Logger.Info("skipping already screened documents",
			zap.Int("skipped", len(excluded)),
			zap.Int("documents_left", set.Len()),
		)
	}

	return set, Step{Initial: initial, Dropped: len(excluded), Left: set.Len()}, nil
}
