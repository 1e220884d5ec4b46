package media

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Downloader fetches videos with yt-dlp.
type Downloader struct {
	binPath string
	dir     string
	run     CommandFunc
}

// NewDownloader creates a Downloader writing into dir. If binPath is empty,
// "yt-dlp" is used.
func NewDownloader(binPath, dir string) *Downloader {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Downloader{binPath: binPath, dir: dir, run: runCommand}
}

// Path returns where filename is stored.
func (d *Downloader) Path(filename string) string {
	return filepath.Join(d.dir, filename)
}

// Download saves url as filename in the best available format and returns
// the local path.
func (d *Downloader) Download(ctx context.Context, url, filename string) (string, error) {
	if url == "" {
		return "", eris.Errorf("media: no url for %s", filename)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "media: create %s", d.dir)
	}
	out := d.Path(filename)
	if err := d.run(ctx, d.binPath, "-f", "best", "-o", out, url); err != nil {
		return "", eris.Wrapf(err, "media: download %s", url)
	}
	return out, nil
}

// VideoFilename is the download file name used for a video id.
func VideoFilename(videoID string) string {
	return videoID + ".mp4"
}
