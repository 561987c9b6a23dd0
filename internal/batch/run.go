package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/candidate"
)

// Config holds the knobs for one batch run.
type Config struct {
	// Workers is the number of agent slots. Must be positive.
	Workers int
	// Pacing is a fixed delay applied before every scorer call. It is
	// the backpressure mechanism against the provider's request quota.
	Pacing time.Duration
	// MaxRetries bounds additional scorer attempts after a rate-limit
	// failure. An item is scored at most 1+MaxRetries times.
	MaxRetries int
	// RetryBackoff is the first backoff delay; it doubles per retry.
	RetryBackoff time.Duration
	// ScoreTimeout bounds a single scorer attempt. Zero means no bound.
	ScoreTimeout time.Duration
}

// Run coordinates one screening batch. A Run is single use: construct,
// Execute once, then read Snapshot or Results. Agents write shared
// state only through the publish methods below, so observers always see
// counts and progress move together.
type Run struct {
	mu     sync.RWMutex
	items  []*Item
	parts  [][]*Item
	agents []*AgentState

	cfg    Config
	scorer ai.Scorer
	job    string
	logger *zap.Logger

	executed bool
}

// NewRun wraps the documents into work items, partitions them across
// cfg.Workers agents and returns a ready-to-execute run.
func NewRun(set *candidate.Set, jobDescription string, scorer ai.Scorer, cfg Config, logger *zap.Logger) (*Run, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}

	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return nil, errors.New("job description is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}

	items := make([]*Item, 0, set.Len())
	for _, doc := range set.Items {
		items = append(items, &Item{Doc: doc, Status: StatusPending})
	}

	parts, err := Partition(items, cfg.Workers)
	if err != nil {
		return nil, err
	}

	agents := make([]*AgentState, cfg.Workers)
	for i := range agents {
		agents[i] = &AgentState{
			Index:         i,
			Name:          fmt.Sprintf("agent-%d", i+1),
			Status:        AgentIdle,
			TotalAssigned: len(parts[i]),
		}
	}

	return &Run{
		items:  items,
		parts:  parts,
		agents: agents,
		cfg:    cfg,
		scorer: scorer,
		job:    jobDescription,
		logger: logger,
	}, nil
}

// Execute launches one agent per non-empty partition and blocks until
// every agent has finished. Empty partitions are completed in place
// without launching an agent. Per-item failures are recorded as error
// results and never surface here; the returned error covers structural
// misuse only.
func (r *Run) Execute(ctx context.Context) error {
	r.mu.Lock()
	if r.executed {
		r.mu.Unlock()
		return errors.New("batch already executed, create a new run")
	}
	r.executed = true
	r.mu.Unlock()

	r.logger.Info("starting batch",
		zap.Int("documents", len(r.items)),
		zap.Int("workers", r.cfg.Workers),
	)

	var wg sync.WaitGroup
	for i, part := range r.parts {
		if len(part) == 0 {
			r.completeAgent(i)
			continue
		}

		a := &agent{
			run:    r,
			index:  i,
			items:  part,
			logger: r.logger.With(zap.String("agent", r.agents[i].Name)),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.process(ctx)
		}()
	}

	wg.Wait()

	snap := r.Snapshot()
	r.logger.Info("batch completed",
		zap.Int("documents", snap.Total),
		zap.Int("matched", snap.Matched),
		zap.Int("failed", snap.Failed),
	)

	return nil
}

// startItem publishes the transition of one item into processing.
func (r *Run) startItem(agentIdx int, item *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.Status = StatusProcessing

	a := r.agents[agentIdx]
	a.Status = AgentWorking
	a.CurrentItem = item.Doc.Name
}

// finishItem records the result and updates the agent counts and
// progress in one step, so no observer sees them out of sync.
func (r *Run) finishItem(agentIdx int, item *Item, result *ai.Assessment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.Result = result
	item.Status = StatusCompleted

	a := r.agents[agentIdx]
	a.Processed++
	a.Progress = float64(a.Processed) / float64(a.TotalAssigned) * 100
	if result.Matched() {
		a.Matched++
	}
}

func (r *Run) completeAgent(agentIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.agents[agentIdx]
	a.Status = AgentCompleted
	a.CurrentItem = ""
	a.Progress = 100
}

// Results returns the final work items. Call after Execute has returned.
func (r *Run) Results() *Results {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Item, len(r.items))
	copy(items, r.items)
	return &Results{Items: items}
}
