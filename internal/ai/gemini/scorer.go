package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/extract"
	"github.com/vtikhonov/cv-screener/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateWithAttachment(ctx context.Context, prompt, mime string, data []byte) (string, error)
	Model() string
}

// Scorer evaluates candidate documents against a job description via Gemini.
type Scorer struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewScorer(generator contentGenerator, minScore float64, maxLogLength int, logger *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		minScore:  minScore,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, content *extract.Content, jobDescription string) (*ai.Assessment, error) {
	if content == nil {
		return nil, fmt.Errorf("document content is required")
	}

	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return nil, fmt.Errorf("job description is required")
	}

	prompt := buildPrompt(jobDescription, content)

	s.logger.Debug("gemini scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, s.maxLogLen)),
		zap.Bool("attachment", !content.PlainText),
	)

	var (
		raw string
		err error
	)

	if content.PlainText {
		raw, err = s.generator.GenerateContent(ctx, prompt)
	} else {
		raw, err = s.generator.GenerateWithAttachment(ctx, prompt, content.MIME, content.Data)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	if s.minScore > 0 && !math.IsNaN(assessment.Score) && assessment.Score < s.minScore {
		s.logger.Debug("set fit to false by score threshold",
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", s.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(jobDescription string, content *extract.Content) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{JOB_DESCRIPTION}}\n\nCandidate document:\n{{CANDIDATE_DOCUMENT}}\n\nJSON Response:"
	}

	document := content.Text
	if !content.PlainText {
		document = fmt.Sprintf("attached as inline data (%s)", content.MIME)
	}

	prompt := strings.ReplaceAll(template, "{{JOB_DESCRIPTION}}", jobDescription)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_DOCUMENT}}", document)
	return prompt
}

func parseVerdict(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var verdict struct {
		Fit     bool    `mapstructure:"fit"`
		Score   float64 `mapstructure:"score"`
		Reason  string  `mapstructure:"reason"`
		Summary string  `mapstructure:"summary"`
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &verdict,
	})
	if err != nil {
		return nil, fmt.Errorf("build verdict decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini verdict: %w", err)
	}

	if math.IsNaN(verdict.Score) {
		verdict.Score = 0
	}

	return &ai.Assessment{
		Fit:     verdict.Fit,
		Score:   verdict.Score,
		Reason:  strings.TrimSpace(verdict.Reason),
		Summary: strings.TrimSpace(verdict.Summary),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
