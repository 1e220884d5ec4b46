// Package media downloads videos with yt-dlp and transcribes their audio
// through a speech-to-text API, re-encoding oversized inputs with ffmpeg.
package media

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// CommandFunc runs an external program and returns its combined stderr on
// failure. Tests replace it to avoid spawning processes.
type CommandFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "media: %s failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	return nil
}
