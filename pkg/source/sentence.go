// Package source turns subtitle files, e-books, plain text, web articles and
// online video into the sentence units the mining pipeline consumes.
package source

import (
	"strings"
	"time"

	"github.com/shiromaru/tangomine/pkg/kana"
)

// SentenceUnit is one minable sentence. Timed units carry subtitle timing
// usable for media clipping; prose units have Timed false.
type SentenceUnit struct {
	Text  string
	Start time.Duration
	End   time.Duration
	Timed bool
}

// Minimum sentence length in runes; shorter fragments carry no context.
const minSentenceLen = 5

// SplitSentences breaks prose into sentence units on Japanese terminators and
// newlines, dropping fragments too short or not Japanese at all.
func SplitSentences(text string) []SentenceUnit {
	var units []SentenceUnit
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if !usableSentence(s) {
			return
		}
		units = append(units, SentenceUnit{Text: s})
	}

	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' {
			flush()
		}
	}
	flush()
	return units
}

// usableSentence rejects fragments with no mining value: too short, or with
// no Japanese characters at all.
func usableSentence(s string) bool {
	if len([]rune(s)) < minSentenceLen {
		return false
	}
	return !kana.IsASCII(s)
}

// SliceRange keeps only the units whose 1-based index falls in [from, to].
// Zero bounds mean unbounded on that side.
func SliceRange(units []SentenceUnit, from, to int) []SentenceUnit {
	if from <= 0 {
		from = 1
	}
	if to <= 0 || to > len(units) {
		to = len(units)
	}
	if from > to {
		return nil
	}
	return units[from-1 : to]
}
