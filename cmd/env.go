package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/config"
	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/metadata"
	"github.com/sells-group/finfluencer-cli/internal/store"
	"github.com/sells-group/finfluencer-cli/pkg/anthropic"
	"github.com/sells-group/finfluencer-cli/pkg/apify"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

// projectPaths resolves the store locations of the configured project.
func projectPaths() metadata.Paths {
	return metadata.Paths{
		DataDir:   cfg.Project.DataDir,
		ConfigDir: cfg.Project.ConfigDir,
		Project:   cfg.Project.Name,
		Files: metadata.Files{
			ProfileSearchVideos:   cfg.Project.ProfileSearchVideos,
			KeywordSearchVideos:   cfg.Project.KeywordSearchVideos,
			ProfileSearchProfiles: cfg.Project.ProfileSearchProfiles,
			KeywordSearchProfiles: cfg.Project.KeywordSearchProfiles,
		},
	}
}

// withProjectLock runs fn while holding the project's single-writer lock.
func withProjectLock(paths metadata.Paths, fn func() error) error {
	unlock, err := metadata.Lock(paths.ProjectDir())
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			zap.L().Warn("release project lock", zap.Error(err))
		}
	}()
	return fn()
}

// withOutputLock runs fn under the project lock when any of outputs lies
// inside the project directory, and without it otherwise.
func withOutputLock(paths metadata.Paths, outputs []string, fn func() error) error {
	for _, out := range outputs {
		if paths.InProject(out) {
			return withProjectLock(paths, fn)
		}
	}
	return fn()
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "open job store")
	}
	return st, nil
}

func initApify() apify.Client {
	var opts []apify.Option
	if cfg.Apify.BaseURL != "" {
		opts = append(opts, apify.WithBaseURL(cfg.Apify.BaseURL))
	}
	return apify.NewClient(cfg.Apify.Token, opts...)
}

func initOpenAI() openai.Client {
	var opts []openai.ClientOption
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return openai.NewClient(cfg.OpenAI.Key, opts...)
}

func initAnthropic() anthropic.Client {
	var opts []anthropic.ClientOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	return anthropic.NewClient(cfg.Anthropic.Key, opts...)
}

// initCalculator merges configured pricing over the built-in rates.
func initCalculator(p config.PricingConfig) *cost.Calculator {
	rates := cost.DefaultRates()
	for name, mp := range p.OpenAI {
		rates.OpenAI[name] = cost.ModelRate{Input: mp.Input, Output: mp.Output, BatchDiscount: mp.BatchDiscount}
	}
	for name, mp := range p.Anthropic {
		rates.Anthropic[name] = cost.ModelRate{Input: mp.Input, Output: mp.Output, BatchDiscount: mp.BatchDiscount}
	}
	return cost.NewCalculator(rates)
}

// llmModel returns the model name of the configured provider.
func llmModel() string {
	if cfg.LLM.Provider == "anthropic" {
		return cfg.Anthropic.Model
	}
	return cfg.OpenAI.Model
}
