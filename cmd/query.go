package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/batch"
	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/export"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/prompt"
	"github.com/sells-group/finfluencer-cli/internal/resilience"
	"github.com/sells-group/finfluencer-cli/internal/store"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Send a prompt table to the LLM and merge the answers",
	Long: `Submits every row of --in as one batch job (or row by row with --no-batch),
waits for the results, and writes the prompt rows joined with query_response to --out.
--resume <job-id> continues polling a job started by an earlier run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("query"); err != nil {
			return err
		}
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		noBatch, _ := cmd.Flags().GetBool("no-batch")
		resume, _ := cmd.Flags().GetString("resume")

		if out == "" {
			return eris.New("query: --out is required")
		}
		if in == "" && resume == "" {
			return eris.New("query: --in is required unless --resume is set")
		}

		var rows *table.Table
		if in != "" {
			var err error
			if rows, err = table.ReadFile(in); err != nil {
				return eris.Wrap(err, "query: load prompts")
			}
		}

		// Batch output lands next to --out; runs writing into the project
		// directory hold its lock for the whole query.
		return withOutputLock(projectPaths(), []string{out, rawResultPath(out)}, func() error {
			responses, err := runQuery(ctx, rows, out, noBatch, resume)
			if err != nil {
				return err
			}

			if rows == nil {
				if err := export.WriteCSV(out, responses); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Wrote %d responses to %s\n", len(responses), out)
				return nil
			}

			joined, missing := batch.Join(rows, responses)
			if err := joined.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Wrote %d rows to %s (%d without a response)\n", joined.Len(), out, len(missing))
			return nil
		})
	},
}

func runQuery(ctx context.Context, rows *table.Table, out string, noBatch bool, resume string) ([]model.LLMResponse, error) {
	calc := initCalculator(cfg.Pricing)

	if noBatch {
		if rows == nil {
			return nil, eris.New("query: --no-batch needs --in")
		}
		tasks, err := batch.BuildTasks(rows, prompt.ColSystemPrompt, prompt.ColUserPrompt, llmModel(), cfg.LLM.Temperature)
		if err != nil {
			return nil, err
		}
		retry := resilience.FromConfig(cfg.Query.MaxAttempts, 0, 0)
		return batch.RowQuery(ctx, newCompleter(), tasks, batch.RowQueryOptions{
			RatePerSec: cfg.Query.RatePerSec,
			Retry:      retry,
			Cost:       calc,
		})
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	runner := newBatchRunner(st, calc)
	rawPath := rawResultPath(out)

	if resume != "" {
		resumer, ok := runner.(batch.Resumer)
		if !ok {
			return nil, eris.Errorf("query: provider %s cannot resume jobs", cfg.LLM.Provider)
		}
		return resumer.Resume(ctx, resume, rawPath)
	}

	tasks, err := batch.BuildTasks(rows, prompt.ColSystemPrompt, prompt.ColUserPrompt, llmModel(), cfg.LLM.Temperature)
	if err != nil {
		return nil, err
	}
	zap.L().Info("query: submitting batch",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", llmModel()),
		zap.Int("tasks", len(tasks)),
		zap.String("file", rawPath),
	)
	return runner.Run(ctx, tasks, rawPath)
}

// rawResultPath is where the provider's JSONL output for out is kept: next
// to out, or in batch.files_dir when set.
func rawResultPath(out string) string {
	base := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)) + "_batch_output.jsonl"
	dir := cfg.Batch.FilesDir
	if dir == "" {
		dir = filepath.Dir(out)
	}
	return filepath.Join(dir, base)
}

func newBatchRunner(st store.Store, calc *cost.Calculator) batch.Runner {
	poll := batch.PollSettings{Interval: cfg.Batch.PollInterval, MaxWait: cfg.Batch.MaxWait}
	if cfg.LLM.Provider == "anthropic" {
		return batch.NewAnthropicRunner(initAnthropic(),
			batch.WithAnthropicStore(st),
			batch.WithAnthropicPoll(poll),
			batch.WithMaxTokens(cfg.Anthropic.MaxTokens),
			batch.WithAnthropicCost(calc),
		)
	}
	return batch.NewOpenAIRunner(initOpenAI(),
		batch.WithOpenAIStore(st),
		batch.WithOpenAIPoll(poll),
		batch.WithCompletionWindow(cfg.Batch.CompletionWindow),
		batch.WithOpenAICost(calc),
	)
}

func newCompleter() batch.Completer {
	if cfg.LLM.Provider == "anthropic" {
		return batch.AnthropicCompleter{Client: initAnthropic(), MaxTokens: cfg.Anthropic.MaxTokens}
	}
	return batch.OpenAICompleter{Client: initOpenAI()}
}

func init() {
	queryCmd.Flags().String("in", "", "prompt table CSV (system_prompt, user_prompt, custom_id)")
	queryCmd.Flags().String("out", "", "output CSV")
	queryCmd.Flags().Bool("no-batch", false, "query row by row instead of submitting a batch job")
	queryCmd.Flags().String("resume", "", "resume polling an existing job by ledger id")
	rootCmd.AddCommand(queryCmd)
}
