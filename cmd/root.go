package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-screener"
)

type Config struct {
	Job         *JobConfig    `mapstructure:"job"`
	Screen      *ScreenConfig `mapstructure:"screen"`
	HistoryFile string        `mapstructure:"history-file"`
	AI          *AIConfig     `mapstructure:"ai"`
}

type JobConfig struct {
	Title string `mapstructure:"title"`
	File  string `mapstructure:"file"`
}

type ScreenConfig struct {
	Dir          string        `mapstructure:"dir"`
	Workers      int           `mapstructure:"workers"`
	Pacing       time.Duration `mapstructure:"pacing"`
	MaxRetries   int           `mapstructure:"max-retries"`
	RetryBackoff time.Duration `mapstructure:"retry-backoff"`
	ScoreTimeout time.Duration `mapstructure:"score-timeout"`
	MinSizeBytes int64         `mapstructure:"min-size-bytes"`
	Shortlist    string        `mapstructure:"shortlist"`
}

type AIConfig struct {
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-screener is a simple cli for screening a folder of candidate CVs against a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("screen.workers", 5)
	viper.SetDefault("screen.pacing", time.Second)
	viper.SetDefault("screen.max-retries", 3)
	viper.SetDefault("screen.retry-backoff", 2*time.Second)
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
