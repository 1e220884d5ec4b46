package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project" mapstructure:"project"`
	Apify     ApifyConfig     `yaml:"apify" mapstructure:"apify"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Media     MediaConfig     `yaml:"media" mapstructure:"media"`
	Prompt    PromptConfig    `yaml:"prompt" mapstructure:"prompt"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ProjectConfig locates the project's stores.
type ProjectConfig struct {
	Name                  string `yaml:"name" mapstructure:"name"`
	DataDir               string `yaml:"data_dir" mapstructure:"data_dir"`
	ConfigDir             string `yaml:"config_dir" mapstructure:"config_dir"`
	ProfileSearchVideos   string `yaml:"profile_search_videos" mapstructure:"profile_search_videos"`
	KeywordSearchVideos   string `yaml:"keyword_search_videos" mapstructure:"keyword_search_videos"`
	ProfileSearchProfiles string `yaml:"profile_search_profiles" mapstructure:"profile_search_profiles"`
	KeywordSearchProfiles string `yaml:"keyword_search_profiles" mapstructure:"keyword_search_profiles"`
}

// ApifyConfig holds scraper API settings.
type ApifyConfig struct {
	Token          string        `yaml:"token" mapstructure:"token"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	ActorID        string        `yaml:"actor_id" mapstructure:"actor_id"`
	ResultsPerPage int           `yaml:"results_per_page" mapstructure:"results_per_page"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollTimeout    time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key                string `yaml:"key" mapstructure:"key"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	Model              string `yaml:"model" mapstructure:"model"`
	TranscriptionModel string `yaml:"transcription_model" mapstructure:"transcription_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// BatchConfig configures asynchronous batch jobs.
type BatchConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxWait          time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	CompletionWindow string        `yaml:"completion_window" mapstructure:"completion_window"`
	FilesDir         string        `yaml:"files_dir" mapstructure:"files_dir"`
}

// QueryConfig configures the row-by-row fallback.
type QueryConfig struct {
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// MediaConfig configures video download and transcription.
type MediaConfig struct {
	YtDlpPath    string `yaml:"yt_dlp_path" mapstructure:"yt_dlp_path"`
	FfmpegPath   string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	DownloadsDir string `yaml:"downloads_dir" mapstructure:"downloads_dir"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// PromptConfig points at optional prompt inputs.
type PromptConfig struct {
	TemplatesFile string `yaml:"templates_file" mapstructure:"templates_file"`
	TickersFile   string `yaml:"tickers_file" mapstructure:"tickers_file"`
}

// StoreConfig configures the batch job ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PricingConfig holds per-provider pricing overrides keyed by model name.
type PricingConfig struct {
	OpenAI    map[string]ModelPricing `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file and the environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys are also read from their conventional names.
	_ = v.BindEnv("openai.key", "FINF_OPENAI_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic.key", "FINF_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("apify.token", "FINF_APIFY_TOKEN", "APIFY_TOKEN")

	// Defaults
	v.SetDefault("project.data_dir", "data")
	v.SetDefault("project.config_dir", "config")
	v.SetDefault("project.profile_search_videos", "profile_search_videos.csv")
	v.SetDefault("project.keyword_search_videos", "keyword_search_videos.csv")
	v.SetDefault("project.profile_search_profiles", "profile_search_profiles.csv")
	v.SetDefault("project.keyword_search_profiles", "keyword_search_profiles.csv")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor_id", "clockworks/tiktok-scraper")
	v.SetDefault("apify.results_per_page", 100)
	v.SetDefault("apify.poll_interval", 5*time.Second)
	v.SetDefault("apify.poll_timeout", time.Hour)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("batch.poll_interval", 5*time.Minute)
	v.SetDefault("batch.max_wait", time.Duration(0))
	v.SetDefault("batch.completion_window", "24h")
	v.SetDefault("query.rate_per_sec", 1.0)
	v.SetDefault("query.max_attempts", 3)
	v.SetDefault("media.yt_dlp_path", "yt-dlp")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.concurrency", 1)
	v.SetDefault("prompt.tickers_file", "tickers.csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "finfluencer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts work.
// Modes: scrape, profiles, transcribe, prompts, query, parse, jobs.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "scrape":
		require(c.Project.Name != "", "project.name")
		require(c.Apify.Token != "", "apify.token")
		if c.Apify.ResultsPerPage < 1 {
			errs = append(errs, "apify.results_per_page must be > 0")
		}
	case "profiles", "prompts":
		require(c.Project.Name != "", "project.name")
	case "transcribe":
		require(c.Project.Name != "", "project.name")
		require(c.OpenAI.Key != "", "openai.key")
		if c.Media.Concurrency < 1 || c.Media.Concurrency > 16 {
			errs = append(errs, "media.concurrency must be between 1 and 16")
		}
	case "query":
		switch c.LLM.Provider {
		case "openai":
			require(c.OpenAI.Key != "", "openai.key")
		case "anthropic":
			require(c.Anthropic.Key != "", "anthropic.key")
		default:
			errs = append(errs, fmt.Sprintf("llm.provider %q must be openai or anthropic", c.LLM.Provider))
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			errs = append(errs, "llm.temperature must be between 0 and 2")
		}
		if c.Query.MaxAttempts < 1 {
			errs = append(errs, "query.max_attempts must be > 0")
		}
	case "parse", "jobs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
