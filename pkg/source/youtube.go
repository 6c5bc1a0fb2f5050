package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoManualSubtitles means the video carries only machine-generated
// subtitles, which are too unreliable to mine from. Terminal; not retried.
var ErrNoManualSubtitles = errors.New("source: no manual subtitles available")

// Download fetches a video and its Japanese subtitle track into destDir with
// yt-dlp. Returns the media and subtitle paths.
func Download(ctx context.Context, videoURL, destDir string) (mediaPath, subPath string, err error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", "", err
	}

	// Probe for manual Japanese subtitles before paying for the video.
	probe := exec.CommandContext(ctx, "yt-dlp", "--list-subs", "--no-download", videoURL)
	out, err := probe.CombinedOutput()
	if err != nil {
		return "", "", fmt.Errorf("probe subtitles: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if !hasManualJapaneseSubs(string(out)) {
		return "", "", ErrNoManualSubtitles
	}

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--write-subs", "--sub-langs", "ja",
		"--convert-subs", "srt",
		"-f", "best[height<=720]",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("download: %w: %s", err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", "", err
	}
	for _, e := range entries {
		p := filepath.Join(destDir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".srt", ".vtt", ".ass":
			subPath = p
		case ".mp4", ".mkv", ".webm":
			mediaPath = p
		}
	}
	if mediaPath == "" || subPath == "" {
		return "", "", fmt.Errorf("source: download produced media=%q subs=%q", mediaPath, subPath)
	}
	return mediaPath, subPath, nil
}

// hasManualJapaneseSubs scans yt-dlp --list-subs output. The listing prints
// automatic captions and real subtitles under separate headers; only a "ja"
// row in the real subtitles section counts.
func hasManualJapaneseSubs(listing string) bool {
	inManual := false
	for _, line := range strings.Split(listing, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "available automatic captions") {
			inManual = false
			continue
		}
		if strings.Contains(lower, "available subtitles") {
			inManual = true
			continue
		}
		if inManual && (strings.HasPrefix(strings.TrimSpace(line), "ja")) {
			return true
		}
	}
	return false
}
