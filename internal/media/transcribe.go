package media

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultTranscriptionModel = "whisper-1"
	optimizedSampleRate       = "16000"
)

// SpeechToText transcribes an audio or video file. openai.Client
// satisfies it.
type SpeechToText interface {
	Transcribe(ctx context.Context, path, model string) (string, error)
}

// Optimizer re-encodes audio to 16 kHz mono WAV with ffmpeg.
type Optimizer struct {
	binPath string
	run     CommandFunc
}

// NewOptimizer creates an Optimizer. If binPath is empty, "ffmpeg" is used.
func NewOptimizer(binPath string) *Optimizer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Optimizer{binPath: binPath, run: runCommand}
}

// Optimize writes a downsampled mono copy of in to out.
func (o *Optimizer) Optimize(ctx context.Context, in, out string) error {
	err := o.run(ctx, o.binPath, "-y", "-loglevel", "error", "-i", in,
		"-vn", "-ar", optimizedSampleRate, "-ac", "1", out)
	return eris.Wrapf(err, "media: optimize %s", in)
}

// OptimizedPath returns the path of the re-encoded copy of path,
// e.g. dir/123.mp4 -> dir/optimized_123.wav.
func OptimizedPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), "optimized_"+base+".wav")
}

// Transcriber turns downloaded videos into text.
type Transcriber struct {
	stt       SpeechToText
	model     string
	optimizer *Optimizer
	statusOf  func(error) int
}

// NewTranscriber creates a Transcriber. statusOf extracts the HTTP status
// from an API error and is used to detect oversized uploads.
func NewTranscriber(stt SpeechToText, model string, optimizer *Optimizer, statusOf func(error) int) *Transcriber {
	if model == "" {
		model = defaultTranscriptionModel
	}
	if optimizer == nil {
		optimizer = NewOptimizer("")
	}
	return &Transcriber{stt: stt, model: model, optimizer: optimizer, statusOf: statusOf}
}

// Transcribe returns the transcript of path, or nil when the file is
// missing or transcription fails. An upload rejected as too large is
// re-encoded once and retried.
func (t *Transcriber) Transcribe(ctx context.Context, path string) *string {
	if _, err := os.Stat(path); err != nil {
		zap.L().Debug("media: no video file to transcribe", zap.String("file", path))
		return nil
	}

	text, err := t.stt.Transcribe(ctx, path, t.model)
	if err == nil {
		return &text
	}
	if !t.tooLarge(err) {
		zap.L().Warn("media: transcription failed", zap.String("file", path), zap.Error(err))
		return nil
	}

	optimized := OptimizedPath(path)
	zap.L().Info("media: file too large, optimizing audio",
		zap.String("file", path),
		zap.String("optimized", optimized),
	)
	if err := t.optimizer.Optimize(ctx, path, optimized); err != nil {
		zap.L().Warn("media: optimize failed", zap.String("file", path), zap.Error(err))
		return nil
	}

	text, err = t.stt.Transcribe(ctx, optimized, t.model)
	if err != nil {
		zap.L().Warn("media: transcription failed after optimization",
			zap.String("file", optimized),
			zap.Error(err),
		)
		return nil
	}
	return &text
}

func (t *Transcriber) tooLarge(err error) bool {
	return t.statusOf != nil && t.statusOf(err) == http.StatusRequestEntityTooLarge
}
