package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/vtikhonov/cv-screener/internal/extract"
)

// Assessment is the structured outcome of scoring one candidate
// document. A failed scoring attempt is still an Assessment, with Error
// carrying the reason; downstream code never deals with absent results.
type Assessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Summary string  `json:"summary,omitempty"`
	Raw     string  `json:"raw,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Failed reports whether the assessment records a scoring failure
// rather than a verdict.
func (a *Assessment) Failed() bool {
	return a != nil && a.Error != ""
}

// Matched reports whether the candidate met the target criteria.
func (a *Assessment) Matched() bool {
	return a != nil && !a.Failed() && a.Fit
}

// Scorer turns extracted document content plus a job description into
// an assessment.
type Scorer interface {
	Score(ctx context.Context, content *extract.Content, jobDescription string) (*Assessment, error)
}

// RateLimitError marks a scoring failure caused by provider quota or
// request-rate limits. Only this class is worth retrying.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether the error chain contains a rate-limit failure.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
