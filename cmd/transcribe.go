package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/media"
	"github.com/sells-group/finfluencer-cli/internal/metadata"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Download and transcribe the project's videos",
	Long:  "Downloads every video of the --mode video store with yt-dlp, transcribes it, and writes video_transcript back to the store. Videos that already have a transcript are skipped unless --redo is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("transcribe"); err != nil {
			return err
		}
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := metadata.ParseSearchMode(modeFlag)
		if err != nil {
			return err
		}
		redo, _ := cmd.Flags().GetBool("redo")

		paths := projectPaths()
		dir := cfg.Media.DownloadsDir
		if dir == "" {
			dir = paths.DownloadsDir()
		}

		dl := media.NewDownloader(cfg.Media.YtDlpPath, dir)
		tr := media.NewTranscriber(initOpenAI(), cfg.OpenAI.TranscriptionModel,
			media.NewOptimizer(cfg.Media.FfmpegPath), openai.StatusCode)

		return withProjectLock(paths, func() error {
			storePath := paths.Videos(mode)
			videos, err := table.ReadFile(storePath)
			if err != nil {
				return eris.Wrap(err, "transcribe: load video store")
			}

			res, stageErr := media.ProcessVideos(ctx, videos, dl, tr, media.StageOptions{
				Concurrency: cfg.Media.Concurrency,
				Redo:        redo,
			})

			// Persist whatever was transcribed, even when interrupted.
			if _, err := metadata.AppendAndDeduplicate(videos, storePath, model.ColID); err != nil {
				return err
			}
			zap.L().Info("transcribe: video store updated",
				zap.String("file", storePath),
				zap.Int("transcribed", res.Transcribed),
			)
			return stageErr
		})
	},
}

func init() {
	transcribeCmd.Flags().String("mode", string(metadata.SearchProfile), "search mode: profile or keyword")
	transcribeCmd.Flags().Bool("redo", false, "transcribe videos that already have a transcript")
	rootCmd.AddCommand(transcribeCmd)
}
