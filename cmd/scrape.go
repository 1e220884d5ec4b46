package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/metadata"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
	"github.com/sells-group/finfluencer-cli/pkg/apify"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape video metadata for the project's profiles or search terms",
	Long:  "Runs the scraper actor over the profile list (--mode profile) or the search-term list (--mode keyword) and merges the videos into the matching video store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := metadata.ParseSearchMode(modeFlag)
		if err != nil {
			return err
		}

		paths := projectPaths()
		listPath := paths.SearchTerms()
		if mode == metadata.SearchProfile {
			listPath = paths.ProfileList()
		}
		terms, err := metadata.LoadLines(listPath)
		if err != nil {
			return err
		}
		if len(terms) == 0 {
			return eris.Errorf("scrape: %s is empty", listPath)
		}

		input := apify.KeywordInput(terms, cfg.Apify.ResultsPerPage)
		if mode == metadata.SearchProfile {
			input = apify.ProfileInput(terms, cfg.Apify.ResultsPerPage)
		}

		items, err := apify.RunAndCollect(ctx, initApify(), cfg.Apify.ActorID, input,
			apify.WithPollInterval(cfg.Apify.PollInterval),
			apify.WithPollTimeout(cfg.Apify.PollTimeout),
		)
		if err != nil {
			return eris.Wrap(err, "scrape")
		}

		videos := scrapedVideos(items, mode, terms, time.Now().UTC())
		zap.L().Info("scrape: filtered dataset",
			zap.String("mode", string(mode)),
			zap.Int("items", len(items)),
			zap.Int("kept", videos.Len()),
		)

		return withProjectLock(paths, func() error {
			merged, err := metadata.AppendAndDeduplicate(videos, paths.Videos(mode), model.ColID)
			if err != nil {
				return err
			}
			zap.L().Info("scrape: video store updated",
				zap.String("file", paths.Videos(mode)),
				zap.Int("videos", merged.Len()),
			)
			return nil
		})
	},
}

// scrapedVideos converts dataset items to store rows, keeping only items
// that belong to one of the requested profiles or search terms. For
// profile searches the actor's input column becomes profile.
func scrapedVideos(items []map[string]any, mode metadata.SearchMode, terms []string, now time.Time) *table.Table {
	keep := make(map[string]bool, len(terms))
	for _, t := range terms {
		keep[t] = true
	}

	videos := table.FromRecords(items)
	key := model.ColSearchQuery
	if mode == metadata.SearchProfile {
		videos.Rename(model.ColInput, model.ColProfile)
		key = model.ColProfile
	}
	videos = videos.Filter(func(r table.Row) bool { return keep[r[key]] })

	stamp := now.Format(time.RFC3339Nano)
	videos.Set(model.ColExtractionTime, func(table.Row) string { return stamp })
	return videos
}

func init() {
	scrapeCmd.Flags().String("mode", string(metadata.SearchKeyword), "search mode: profile or keyword")
	rootCmd.AddCommand(scrapeCmd)
}
