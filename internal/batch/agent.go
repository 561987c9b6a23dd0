package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/extract"
	"github.com/vtikhonov/cv-screener/internal/util"
)

var waitFor = util.WaitFor

// agent works through one partition strictly in order. Item k+1 never
// starts before item k has a recorded result.
type agent struct {
	run    *Run
	index  int
	items  []*Item
	logger *zap.Logger
}

func (a *agent) process(ctx context.Context) {
	for i, item := range a.items {
		a.logger.Debug("processing document",
			zap.String("document", item.Doc.Name),
			zap.Int("position", i+1),
			zap.Int("assigned", len(a.items)),
		)

		a.run.startItem(a.index, item)
		result := a.evaluate(ctx, item)
		a.run.finishItem(a.index, item, result)
	}

	a.run.completeAgent(a.index)

	a.run.mu.RLock()
	matched := a.run.agents[a.index].Matched
	a.run.mu.RUnlock()

	a.logger.Info("partition completed",
		zap.Int("processed", len(a.items)),
		zap.Int("matched", matched),
	)
}

// evaluate produces a result for one item. Every failure on this path
// comes back as an assessment with an error reason, never as an error.
func (a *agent) evaluate(ctx context.Context, item *Item) *ai.Assessment {
	content, err := extract.Extract(item.Doc)
	if err != nil {
		a.logger.Warn("extraction failed",
			zap.String("document", item.Doc.Name),
			zap.Error(err),
		)
		return &ai.Assessment{Error: fmt.Sprintf("extraction failed: %v", err)}
	}

	if err := waitFor(ctx, a.run.cfg.Pacing); err != nil {
		return &ai.Assessment{Error: fmt.Sprintf("canceled before scoring: %v", err)}
	}

	assessment, err := a.scoreWithRetry(ctx, content)
	if err != nil {
		a.logger.Warn("scoring failed",
			zap.String("document", item.Doc.Name),
			zap.Error(err),
		)
		return &ai.Assessment{Error: fmt.Sprintf("scoring failed: %v", err)}
	}

	return assessment
}

// scoreWithRetry calls the scorer at most 1+MaxRetries times. Only
// rate-limit failures are retried; the backoff delay doubles per
// attempt starting from cfg.RetryBackoff.
func (a *agent) scoreWithRetry(ctx context.Context, content *extract.Content) (*ai.Assessment, error) {
	backoff := a.run.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= a.run.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			a.logger.Debug("retrying after rate limit",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)

			if err := waitFor(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}

		assessment, err := a.score(ctx, content)
		if err == nil {
			return assessment, nil
		}

		lastErr = err
		if !ai.IsRateLimited(err) {
			break
		}
	}

	return nil, lastErr
}

func (a *agent) score(ctx context.Context, content *extract.Content) (*ai.Assessment, error) {
	if t := a.run.cfg.ScoreTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	return a.run.scorer.Score(ctx, content, a.run.job)
}
