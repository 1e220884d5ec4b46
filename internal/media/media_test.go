package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

type call struct {
	name string
	args []string
}

// fakeCommands records invocations and creates the output file named by
// the flag that precedes it (-o for yt-dlp, last arg for ffmpeg).
type fakeCommands struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (f *fakeCommands) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	if f.fail[name] {
		return eris.Errorf("%s exploded", name)
	}
	out := args[len(args)-1]
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			out = args[i+1]
		}
	}
	return os.WriteFile(out, []byte("media"), 0o644)
}

type statusErr struct{ code int }

func (e *statusErr) Error() string { return "api error" }

func statusOf(err error) int {
	var se *statusErr
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// fakeSTT rejects paths listed in tooLarge with 413, fails paths in broken
// and returns no text for paths in silent; everything else is transcribed
// as "transcript of <base>".
type fakeSTT struct {
	mu       sync.Mutex
	paths    []string
	tooLarge map[string]bool
	broken   map[string]bool
	silent   map[string]bool
}

func (f *fakeSTT) Transcribe(_ context.Context, path, model string) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()

	base := filepath.Base(path)
	switch {
	case f.tooLarge[base]:
		return "", &statusErr{code: 413}
	case f.broken[base]:
		return "", &statusErr{code: 500}
	case f.silent[base]:
		return "", nil
	}
	return "transcript of " + base + " via " + model, nil
}

func newTestTranscriber(stt *fakeSTT, cmds *fakeCommands) *Transcriber {
	opt := NewOptimizer("")
	opt.run = cmds.run
	return NewTranscriber(stt, "", opt, statusOf)
}

func TestDownloader_Download(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "video-downloads")
	cmds := &fakeCommands{}
	d := NewDownloader("", dir)
	d.run = cmds.run

	path, err := d.Download(context.Background(), "https://www.tiktok.com/@a/video/1", "1.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1.mp4"), path)
	assert.FileExists(t, path)

	require.Len(t, cmds.calls, 1)
	assert.Equal(t, "yt-dlp", cmds.calls[0].name)
	assert.Equal(t, []string{"-f", "best", "-o", path, "https://www.tiktok.com/@a/video/1"}, cmds.calls[0].args)
}

func TestDownloader_Errors(t *testing.T) {
	d := NewDownloader("/opt/yt-dlp", t.TempDir())
	d.run = (&fakeCommands{fail: map[string]bool{"/opt/yt-dlp": true}}).run

	_, err := d.Download(context.Background(), "https://x", "1.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")

	_, err = d.Download(context.Background(), "", "2.mp4")
	require.Error(t, err)
}

func TestOptimizedPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "v", "optimized_123.wav"), OptimizedPath(filepath.Join("data", "v", "123.mp4")))
}

func TestTranscriber_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	tr := newTestTranscriber(&fakeSTT{}, &fakeCommands{})
	got := tr.Transcribe(context.Background(), path)
	require.NotNil(t, got)
	assert.Equal(t, "transcript of 1.mp4 via whisper-1", *got)
}

func TestTranscriber_MissingFile(t *testing.T) {
	stt := &fakeSTT{}
	tr := newTestTranscriber(stt, &fakeCommands{})

	assert.Nil(t, tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")))
	assert.Empty(t, stt.paths)
}

func TestTranscriber_TooLargeOptimizesAndRetries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stt := &fakeSTT{tooLarge: map[string]bool{"big.mp4": true}}
	cmds := &fakeCommands{}
	tr := newTestTranscriber(stt, cmds)

	got := tr.Transcribe(context.Background(), path)
	require.NotNil(t, got)
	assert.Equal(t, "transcript of optimized_big.wav via whisper-1", *got)

	require.Len(t, cmds.calls, 1)
	assert.Equal(t, "ffmpeg", cmds.calls[0].name)
	assert.Contains(t, cmds.calls[0].args, "16000")
	assert.Equal(t, filepath.Join(dir, "optimized_big.wav"), cmds.calls[0].args[len(cmds.calls[0].args)-1])
	assert.Equal(t, []string{path, filepath.Join(dir, "optimized_big.wav")}, stt.paths)
}

func TestTranscriber_StillTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stt := &fakeSTT{tooLarge: map[string]bool{"big.mp4": true, "optimized_big.wav": true}}
	tr := newTestTranscriber(stt, &fakeCommands{})

	assert.Nil(t, tr.Transcribe(context.Background(), path))
	assert.Len(t, stt.paths, 2, "retried exactly once")
}

func TestTranscriber_OtherErrorNoRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stt := &fakeSTT{broken: map[string]bool{"bad.mp4": true}}
	cmds := &fakeCommands{}
	tr := newTestTranscriber(stt, cmds)

	assert.Nil(t, tr.Transcribe(context.Background(), path))
	assert.Len(t, stt.paths, 1)
	assert.Empty(t, cmds.calls)
}

func TestTranscriber_OptimizeFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stt := &fakeSTT{tooLarge: map[string]bool{"big.mp4": true}}
	tr := newTestTranscriber(stt, &fakeCommands{fail: map[string]bool{"ffmpeg": true}})

	assert.Nil(t, tr.Transcribe(context.Background(), path))
	assert.Len(t, stt.paths, 1)
}

func TestProcessVideos(t *testing.T) {
	dir := t.TempDir()
	cmds := &fakeCommands{}
	dl := NewDownloader("", dir)
	dl.run = cmds.run
	stt := &fakeSTT{broken: map[string]bool{"3.mp4": true}}
	tr := newTestTranscriber(stt, cmds)

	// Video 2 is already on disk and is not downloaded again.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.mp4"), []byte("x"), 0o644))

	videos := table.New(model.ColID, model.ColWebVideoURL, model.ColTranscript)
	videos.Append(table.Row{model.ColID: "1", model.ColWebVideoURL: "https://v/1"})
	videos.Append(table.Row{model.ColID: "2", model.ColWebVideoURL: "https://v/2"})
	videos.Append(table.Row{model.ColID: "3", model.ColWebVideoURL: "https://v/3"})
	videos.Append(table.Row{model.ColID: "4", model.ColWebVideoURL: "https://v/4", model.ColTranscript: "done already"})

	res, err := ProcessVideos(context.Background(), videos, dl, tr, StageOptions{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, StageResult{Processed: 3, Skipped: 1, Downloaded: 2, Transcribed: 2}, res)

	assert.Equal(t, "1.mp4", videos.Rows[0][model.ColVideoFilename])
	assert.Equal(t, "transcript of 1.mp4 via whisper-1", videos.Rows[0][model.ColTranscript])
	assert.Equal(t, "transcript of 2.mp4 via whisper-1", videos.Rows[1][model.ColTranscript])
	assert.Equal(t, "", videos.Rows[2][model.ColTranscript])
	assert.Equal(t, "done already", videos.Rows[3][model.ColTranscript])
	assert.Len(t, cmds.calls, 2)
}

func TestProcessVideos_NoSpeechNotRetranscribed(t *testing.T) {
	dir := t.TempDir()
	cmds := &fakeCommands{}
	dl := NewDownloader("", dir)
	dl.run = cmds.run
	stt := &fakeSTT{silent: map[string]bool{"1.mp4": true}}
	tr := newTestTranscriber(stt, cmds)

	videos := table.New(model.ColID, model.ColWebVideoURL)
	videos.Append(table.Row{model.ColID: "1", model.ColWebVideoURL: "https://v/1"})

	res, err := ProcessVideos(context.Background(), videos, dl, tr, StageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageResult{Processed: 1, Downloaded: 1, Transcribed: 1}, res)
	assert.Equal(t, model.NoSpeechTranscript, videos.Rows[0][model.ColTranscript])

	res, err = ProcessVideos(context.Background(), videos, dl, tr, StageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageResult{Skipped: 1}, res)
	assert.Len(t, stt.paths, 1)
	assert.Len(t, cmds.calls, 1)
}

func TestProcessVideos_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	videos := table.New(model.ColID, model.ColWebVideoURL)
	videos.Append(table.Row{model.ColID: "1", model.ColWebVideoURL: "https://v/1"})

	dl := NewDownloader("", t.TempDir())
	dl.run = (&fakeCommands{}).run
	_, err := ProcessVideos(ctx, videos, dl, newTestTranscriber(&fakeSTT{}, &fakeCommands{}), StageOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
