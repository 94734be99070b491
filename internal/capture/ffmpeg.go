package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegTap extracts audio windows from a remote media URL by running ffmpeg
// per window. The tap itself carries no per-window state, so one instance is
// shared across all capture cycles for a URL.
type FFmpegTap struct {
	binary   string
	mediaURL string
}

var _ Tap = (*FFmpegTap)(nil)

// NewFFmpegTap builds a tap for the given media URL. binary defaults to
// "ffmpeg" when empty.
func NewFFmpegTap(binary, mediaURL string) *FFmpegTap {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTap{binary: binary, mediaURL: mediaURL}
}

// NewFFmpegTapFactory returns a TapFactory bound to the given ffmpeg binary.
func NewFFmpegTapFactory(binary string) TapFactory {
	return func(mediaURL string) (Tap, error) {
		if _, err := exec.LookPath(firstNonEmpty(binary, "ffmpeg")); err != nil {
			return nil, fmt.Errorf("locate ffmpeg: %w", err)
		}
		return NewFFmpegTap(binary, mediaURL), nil
	}
}

// ReadWindow demuxes window seconds of opus-in-ogg audio starting at the
// given playback offset. ffmpeg handles both local paths and http(s) URLs.
func (t *FFmpegTap) ReadWindow(ctx context.Context, start float64, window time.Duration) ([]byte, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-t", strconv.FormatFloat(window.Seconds(), 'f', 3, 64),
		"-i", t.mediaURL,
		"-vn",
		"-acodec", "libopus",
		"-f", "ogg",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg window extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Close is a no-op; per-window processes exit on their own.
func (t *FFmpegTap) Close() error { return nil }

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
