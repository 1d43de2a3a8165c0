// Package ffmpeg converts audio the transcription endpoint does not accept.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"ru2en/internal/logger"
)

// Extensions the transcription endpoint takes as is.
var uploadable = map[string]bool{
	".flac": true,
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".oga":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// NeedsConversion reports whether path must be converted before upload.
func NeedsConversion(path string) bool {
	return !uploadable[strings.ToLower(filepath.Ext(path))]
}

// Converter shells out to the ffmpeg binary.
type Converter struct {
	Binary     string
	SampleRate int
	Channels   int
	log        *logger.Logger
}

// New returns a converter producing PCM WAV at the given format.
func New(sampleRate, channels int, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{Binary: "ffmpeg", SampleRate: sampleRate, Channels: channels, log: log}
}

func (c *Converter) args(inPath, outPath string) []string {
	ch := c.Channels
	if ch <= 0 {
		ch = 1
	}
	sr := c.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-ac", strconv.Itoa(ch),
		"-ar", strconv.Itoa(sr),
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// ToWAV converts inPath into a 16-bit WAV at outPath.
func (c *Converter) ToWAV(ctx context.Context, inPath, outPath string) error {
	args := c.args(inPath, outPath)
	c.log.Debug("executing", logger.String("cmd", c.Binary+" "+strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
