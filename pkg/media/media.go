// Package media clips audio and still frames out of local media files with
// ffmpeg. One Extract call produces every artifact a card needs in a single
// transcoder invocation.
package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNoVideoTrack marks a frame request against an audio-only source.
// Rejected before invoking the transcoder.
var ErrNoVideoTrack = errors.New("media: source has no video track")

// audio-only container extensions; frame extraction is refused for these
// without probing.
var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".flac": true,
	".ogg": true, ".opus": true, ".wav": true,
}

// HasVideoTrack reports whether path plausibly carries a visual track,
// judged by container extension.
func HasVideoTrack(path string) bool {
	return !audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Transcoder shells out to ffmpeg/ffprobe binaries on PATH.
type Transcoder struct {
	FFmpeg  string
	FFprobe string
}

// NewTranscoder uses the default binary names.
func NewTranscoder() *Transcoder {
	return &Transcoder{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// Duration probes the media duration in milliseconds.
func (t *Transcoder) Duration(ctx context.Context, path string) (int64, error) {
	out, err := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: parse duration %q: %w", path, out, err)
	}
	return int64(secs * 1000), nil
}

// Request describes one extraction: a padded clip and optionally a frame
// captured at the clip midpoint.
type Request struct {
	Source   string
	StartMS  int64
	EndMS    int64
	PadMS    int64
	AudioOut string // destination for the audio clip, always produced
	FrameOut string // destination for the still frame, "" to skip
}

// Extract produces the requested artifacts in one ffmpeg invocation.
// Padding is clamped to [0, duration]; a frame request on an audio-only
// source fails with ErrNoVideoTrack before ffmpeg runs.
func (t *Transcoder) Extract(ctx context.Context, req Request) error {
	if req.FrameOut != "" && !HasVideoTrack(req.Source) {
		return ErrNoVideoTrack
	}

	duration, err := t.Duration(ctx, req.Source)
	if err != nil {
		return err
	}
	start := req.StartMS - req.PadMS
	if start < 0 {
		start = 0
	}
	end := req.EndMS + req.PadMS
	if end > duration {
		end = duration
	}
	if end <= start {
		return fmt.Errorf("media: empty clip window [%d,%d]", start, end)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatMS(start),
		"-to", formatMS(end),
		"-i", req.Source,
		"-map", "0:a:0", "-q:a", "2", req.AudioOut,
	}
	if req.FrameOut != "" {
		mid := (start + end) / 2
		args = append(args,
			"-ss", formatMS(mid-start),
			"-vframes", "1", "-q:v", "3", req.FrameOut,
		)
	}

	cmd := exec.CommandContext(ctx, t.FFmpeg, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("extract %s: %w: %s", req.Source, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// formatMS renders a millisecond offset as an ffmpeg time spec.
func formatMS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%02d:%02d:%06.3f",
		int(d.Hours()), int(d.Minutes())%60, d.Seconds()-float64(int(d.Minutes()))*60)
}
