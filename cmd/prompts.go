package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finfluencer-cli/internal/metadata"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/prompt"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Build the per-profile prompt table for an interview type",
	Long:  "Combines each profile's video transcripts and attributes into system and user prompts. --extra joins additional per-profile columns (e.g. stock_mentions, question_prompt) by profile id.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("prompts"); err != nil {
			return err
		}
		typeFlag, _ := cmd.Flags().GetString("type")
		interview, err := model.ParseInterviewType(typeFlag)
		if err != nil {
			return err
		}
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := metadata.ParseSearchMode(modeFlag)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		extraPath, _ := cmd.Flags().GetString("extra")

		paths := projectPaths()
		if out == "" {
			out = filepath.Join(paths.BatchDir(), string(interview)+"_prompts.csv")
		}

		builder, err := newPromptBuilder(paths, interview)
		if err != nil {
			return err
		}

		return withOutputLock(paths, []string{out}, func() error {
			profiles, err := table.ReadFile(paths.Profiles(mode))
			if err != nil {
				return eris.Wrap(err, "prompts: load profile store")
			}
			videos, err := table.ReadFile(paths.Videos(mode))
			if err != nil {
				return eris.Wrap(err, "prompts: load video store")
			}
			if extraPath != "" {
				extra, err := table.ReadFile(extraPath)
				if err != nil {
					return eris.Wrap(err, "prompts: load extra columns")
				}
				profiles = joinExtra(profiles, extra)
			}

			prompts, err := builder.BuildPromptTable(profiles, videos, interview)
			if err != nil {
				return err
			}
			if err := prompts.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Wrote %d prompts to %s\n", prompts.Len(), out)
			return nil
		})
	},
}

// newPromptBuilder loads template overrides and, for interviews, the
// ticker reference list.
func newPromptBuilder(paths metadata.Paths, interview model.InterviewType) (*prompt.Builder, error) {
	reg := prompt.DefaultRegistry()
	if cfg.Prompt.TemplatesFile != "" {
		var err error
		if reg, err = prompt.LoadTemplates(paths.ConfigFile(cfg.Prompt.TemplatesFile), reg); err != nil {
			return nil, err
		}
	}

	var tickers string
	if interview == model.InterviewStandard {
		list, err := prompt.LoadTickers(paths.ConfigFile(cfg.Prompt.TickersFile))
		if err != nil {
			return nil, err
		}
		tickers = prompt.TickerList(list)
	}
	return prompt.NewBuilder(reg, tickers), nil
}

// joinExtra left-joins extra's columns onto profiles by profile id. Extra
// rows without a matching profile are ignored.
func joinExtra(profiles, extra *table.Table) *table.Table {
	byID := make(map[string]table.Row, extra.Len())
	for _, r := range extra.Rows {
		byID[r[model.ColID]] = r
	}

	out := table.New(profiles.Columns...)
	for _, c := range extra.Columns {
		out.AddColumn(c)
	}
	for _, p := range profiles.Rows {
		row := make(table.Row, len(out.Columns))
		for k, v := range p {
			row[k] = v
		}
		if e, ok := byID[p[model.ColID]]; ok {
			for k, v := range e {
				if k != model.ColID {
					row[k] = v
				}
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func init() {
	promptsCmd.Flags().String("type", "", "interview type")
	promptsCmd.Flags().String("mode", string(metadata.SearchProfile), "search mode: profile or keyword")
	promptsCmd.Flags().String("out", "", "output CSV (default <project>/batch-files/<type>_prompts.csv)")
	promptsCmd.Flags().String("extra", "", "CSV of extra per-profile columns keyed by id")
	_ = promptsCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(promptsCmd)
}
