package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/ai/gemini"
	"github.com/vtikhonov/cv-screener/internal/batch"
	"github.com/vtikhonov/cv-screener/internal/candidate"
	"github.com/vtikhonov/cv-screener/internal/filtering"
	"github.com/vtikhonov/cv-screener/internal/history"
	"github.com/vtikhonov/cv-screener/internal/logger"
	"github.com/vtikhonov/cv-screener/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptExportShortlist = "Export shortlist"
	PromptReportByVerdict = "Report by verdict"
	PromptDumpResults     = "Dump results to file"
	PromptExit            = "Exit"

	defaultShortlistFile = "shortlist.tsv"
	progressInterval     = 5 * time.Second
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptExportShortlist, PromptReportByVerdict, PromptDumpResults, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cv-screener main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("rescan", "r", false, "score documents even if they are already in the history file")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask what to do with results, export the shortlist and exit")
	runCmd.Flags().StringP("history-file", "s", "", "special file with already screened documents. Default is unset.")

	viper.BindPFlag("history-file", runCmd.Flags().Lookup("history-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Job == nil || config.Job.File == "" {
		logger.Fatal("job description file is required under job.file to score candidate documents")
	}

	if config.Screen == nil || config.Screen.Dir == "" {
		logger.Fatal("documents directory is required under screen.dir")
	}

	if config.AI == nil || config.AI.Gemini == nil {
		logger.Fatal("gemini configuration is required under ai.gemini")
	}

	job, err := loadJobDescription(config)
	if err != nil {
		logger.Fatal("loading job description", zap.Error(err))
	}

	apiKey, err := resolveAPIKey(config)
	if err != nil {
		logger.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	scorer, err := newAIScorer(ctx, config.AI, apiKey, logger)
	if err != nil {
		logger.Fatal("building ai scorer", zap.Error(err))
	}

	candidates, err := candidate.LoadDir(ctx, config.Screen.Dir)
	if err != nil {
		logger.Fatal("loading candidate documents", zap.Error(err))
	}

	logger.Info("loading candidate documents", zap.Int("count", candidates.Len()))

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no documents found"))
		return
	}

	filters := prepareFilters(cmd, config, logger)

	filtered, err := filters.RunFilters(ctx, candidates)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}
	candidates = filtered

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no documents left after filters"))
		return
	}

	screening, err := batch.NewRun(candidates, job, scorer, batchConfig(config), logger)
	if err != nil {
		logger.Fatal("preparing the screening batch", zap.Error(err))
	}

	stop := watchProgress(screening, logger)

	err = screening.Execute(ctx)
	stop()

	if err != nil {
		logger.Fatal("executing the screening batch", zap.Error(err))
	}

	results := screening.Results()

	if err := appendHistory(resolveHistoryFile(config), results, logger); err != nil {
		logger.Warn("updating screening history", zap.Error(err))
	}

	logger.Info("screening finished",
		zap.Int("documents", results.Len()),
		zap.Int("matched", len(results.Matched())),
		zap.Int("failed", len(results.Failed())),
	)

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := handleAction(PromptExportShortlist, config, results, logger); err != nil && !errors.Is(err, errExit) {
			logger.Fatal("exporting shortlist", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, config, results, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, config *Config, results *batch.Results, logger *zap.Logger) error {
	switch action {
	case PromptExportShortlist:
		path := shortlistPath(config)
		if err := results.WriteShortlist(path); err != nil {
			return fmt.Errorf("writing shortlist: %w", err)
		}

		logger.Info("shortlist exported",
			zap.String("filename", path),
			zap.Int("count", len(results.Matched())),
		)
		return nil
	case PromptReportByVerdict:
		pretty, _ := json.MarshalIndent(results.ReportByVerdict(), "", "  ")
		logger.Info(string(pretty), zap.Int("documents count", results.Len()))
		return nil
	case PromptDumpResults:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}

		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// watchProgress logs per-agent progress on a fixed interval until the
// returned stop function is called.
func watchProgress(screening *batch.Run, logger *zap.Logger) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)

		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				snap := screening.Snapshot()
				for _, agent := range snap.Agents {
					if agent.Status != batch.AgentWorking {
						continue
					}

					logger.Info("screening progress",
						zap.String("agent", agent.Name),
						zap.String("current", agent.CurrentItem),
						zap.Int("processed", agent.Processed),
						zap.Int("assigned", agent.TotalAssigned),
						zap.Float64("progress", agent.Progress),
					)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func loadJobDescription(config *Config) (string, error) {
	data, err := os.ReadFile(config.Job.File)
	if err != nil {
		return "", fmt.Errorf("reading job description file: %w", err)
	}

	job := strings.TrimSpace(string(data))
	if job == "" {
		return "", fmt.Errorf("job description file %q is empty", config.Job.File)
	}

	if title := strings.TrimSpace(config.Job.Title); title != "" {
		job = fmt.Sprintf("Position: %s\n\n%s", title, job)
	}

	return job, nil
}

func resolveAPIKey(config *Config) (string, error) {
	var keyFile string
	if config.AI != nil && config.AI.Gemini != nil {
		keyFile = strings.TrimSpace(config.AI.Gemini.APIKeyFile)
	}

	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	return secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})
}

func newAIScorer(ctx context.Context, cfg *AIConfig, apiKey string, base *zap.Logger) (ai.Scorer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	scorerLogger := logger.WithCommonFields(base, "gemini", generator.Model()).With(
		zap.Float64("minimum_fit_score", minScore),
	)

	return gemini.NewScorer(generator, minScore, cfg.Gemini.MaxLogLength, scorerLogger), nil
}

func prepareFilters(cmd *cobra.Command, config *Config, logger *zap.Logger) *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewMinSize(config.Screen.MinSizeBytes),
		prepareScreenedHistoryFilter(cmd, config, logger),
	}

	return filtering.New(steps, logger)
}

func prepareScreenedHistoryFilter(cmd *cobra.Command, config *Config, logger *zap.Logger) filtering.Filter {
	rescan := false
	if cmd != nil {
		flag := cmd.Flag("rescan")
		if flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			rescan = true
		}
	}

	cfg := &filtering.ScreenedHistoryConfig{
		Path:   resolveHistoryFile(config),
		Rescan: rescan,
	}
	deps := &filtering.ScreenedHistoryDeps{
		Logger: logger,
	}

	return filtering.NewScreenedHistory(cfg, deps)
}

func resolveHistoryFile(config *Config) string {
	path := strings.TrimSpace(config.HistoryFile)
	if path == "" {
		path = strings.TrimSpace(viper.GetString("history-file"))
	}

	return path
}

func batchConfig(config *Config) batch.Config {
	return batch.Config{
		Workers:      config.Screen.Workers,
		Pacing:       config.Screen.Pacing,
		MaxRetries:   config.Screen.MaxRetries,
		RetryBackoff: config.Screen.RetryBackoff,
		ScoreTimeout: config.Screen.ScoreTimeout,
	}
}

func appendHistory(path string, results *batch.Results, logger *zap.Logger) error {
	if path == "" {
		return nil
	}

	entries := history.EntriesFromItems(results.Items)
	if len(entries) == 0 {
		return nil
	}

	screened, err := history.FromFile(path)
	if err != nil {
		return fmt.Errorf("loading screening history: %w", err)
	}

	screened.Append(entries...)

	if err := screened.ToFile(path); err != nil {
		return fmt.Errorf("writing screening history: %w", err)
	}

	logger.Info("screening history updated",
		zap.String("filename", path),
		zap.Int("entries", len(entries)),
	)

	return nil
}

func shortlistPath(config *Config) string {
	if config.Screen != nil && strings.TrimSpace(config.Screen.Shortlist) != "" {
		return config.Screen.Shortlist
	}

	return defaultShortlistFile
}
