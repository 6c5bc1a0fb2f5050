package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseSubtitles loads a subtitle file, dispatching on extension.
// offset shifts all timings; results are clamped at zero.
func ParseSubtitles(path string, offset time.Duration) ([]SentenceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	var units []SentenceUnit
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt":
		units, err = parseSRT(text)
	case ".ass", ".ssa":
		units, err = parseASS(text)
	default:
		return nil, fmt.Errorf("source: unsupported subtitle format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	out := units[:0]
	for _, u := range units {
		u.Start = clampZero(u.Start + offset)
		u.End = clampZero(u.End + offset)
		if usableSentence(u.Text) {
			out = append(out, u)
		}
	}
	return out, nil
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

var srtTimingRe = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// parseSRT handles SubRip and the near-identical WebVTT timing lines.
func parseSRT(text string) ([]SentenceUnit, error) {
	var units []SentenceUnit
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *SentenceUnit
	var lines []string
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(lines, "　")
		if cur.Text != "" {
			units = append(units, *cur)
		}
		cur, lines = nil, nil
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if m := srtTimingRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &SentenceUnit{
				Start: srtTime(m[1], m[2], m[3], m[4]),
				End:   srtTime(m[5], m[6], m[7], m[8]),
				Timed: true,
			}
			continue
		}
		if line == "" {
			flush()
			continue
		}
		if cur != nil {
			lines = append(lines, stripHTMLTags(line))
		}
	}
	flush()
	return units, sc.Err()
}

func srtTime(h, m, s, ms string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mss, _ := strconv.Atoi(ms)
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second + time.Duration(mss)*time.Millisecond
}

var (
	assOverrideRe = regexp.MustCompile(`\{[^}]*\}`)
	htmlTagsRe    = regexp.MustCompile(`<[^>]+>`)
)

func stripHTMLTags(s string) string {
	return htmlTagsRe.ReplaceAllString(s, "")
}

// parseASS reads Dialogue events out of an Advanced SubStation file.
// Override tags ({\...}) are stripped; \N line breaks become ideographic
// spaces so a multi-line cue stays one sentence unit.
func parseASS(text string) ([]SentenceUnit, error) {
	var units []SentenceUnit
	textIdx := 9 // default column of the Text field

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Format:") && strings.Contains(line, "Start") {
			cols := strings.Split(strings.TrimPrefix(line, "Format:"), ",")
			for i, c := range cols {
				if strings.TrimSpace(c) == "Text" {
					textIdx = i
				}
			}
			continue
		}
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		fields := strings.SplitN(strings.TrimPrefix(line, "Dialogue:"), ",", textIdx+1)
		if len(fields) <= textIdx {
			continue
		}
		start, err1 := assTime(strings.TrimSpace(fields[1]))
		end, err2 := assTime(strings.TrimSpace(fields[2]))
		if err1 != nil || err2 != nil {
			continue
		}
		body := assOverrideRe.ReplaceAllString(fields[textIdx], "")
		body = strings.ReplaceAll(body, `\N`, "　")
		body = strings.ReplaceAll(body, `\n`, "　")
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		units = append(units, SentenceUnit{Text: body, Start: start, End: end, Timed: true})
	}
	return units, sc.Err()
}

// assTime parses H:MM:SS.cc (centiseconds).
func assTime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("source: bad ass timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(secs*float64(time.Second)), nil
}
