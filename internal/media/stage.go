package media

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// StageOptions tunes ProcessVideos.
type StageOptions struct {
	// Concurrency bounds simultaneous videos. Default 1 (sequential).
	Concurrency int
	// Redo transcribes videos that already have a transcript.
	Redo bool
}

// StageResult summarizes a ProcessVideos run.
type StageResult struct {
	Processed   int
	Skipped     int
	Downloaded  int
	Transcribed int
}

// ProcessVideos downloads and transcribes every video row, writing the
// video_filename and video_transcript columns in place. A transcription
// with no text is stored as model.NoSpeechTranscript. Per-video failures
// are logged and leave the transcript empty; only context cancellation
// stops the stage.
func ProcessVideos(ctx context.Context, videos *table.Table, dl *Downloader, tr *Transcriber, opts StageOptions) (StageResult, error) {
	videos.AddColumn(model.ColVideoFilename)
	videos.AddColumn(model.ColTranscript)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	type outcome struct {
		downloaded bool
		transcript *string
		skipped    bool
	}
	outcomes := make([]outcome, videos.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, row := range videos.Rows {
		if !opts.Redo && row[model.ColTranscript] != "" {
			outcomes[i].skipped = true
			continue
		}
		if row[model.ColVideoFilename] == "" {
			row[model.ColVideoFilename] = VideoFilename(row[model.ColID])
		}
		url := row[model.ColWebVideoURL]
		filename := row[model.ColVideoFilename]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := dl.Path(filename)
			if _, err := os.Stat(path); err != nil {
				if _, err := dl.Download(gctx, url, filename); err != nil {
					zap.L().Warn("media: download failed",
						zap.String("video_id", videos.Rows[i][model.ColID]),
						zap.String("url", url),
						zap.Error(err),
					)
				} else {
					outcomes[i].downloaded = true
				}
			}
			outcomes[i].transcript = tr.Transcribe(gctx, path)
			return nil
		})
	}
	err := g.Wait()

	var res StageResult
	for i, o := range outcomes {
		if o.skipped {
			res.Skipped++
			continue
		}
		res.Processed++
		if o.downloaded {
			res.Downloaded++
		}
		if o.transcript != nil {
			text := *o.transcript
			if text == "" {
				text = model.NoSpeechTranscript
			}
			videos.Rows[i][model.ColTranscript] = text
			res.Transcribed++
		}
	}

	zap.L().Info("media: videos processed",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("downloaded", res.Downloaded),
		zap.Int("transcribed", res.Transcribed),
	)
	return res, err
}
