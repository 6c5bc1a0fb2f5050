// Package furigana aligns written Japanese with its kana reading and renders
// the alignment as Anki bracket furigana or ruby-annotated sentence HTML.
package furigana

import (
	"html"
	"sort"
	"strings"

	"github.com/shiromaru/tangomine/pkg/kana"
	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

// Segment pairs a run of written characters with the reading chunk it maps
// to. Reading is empty for kana runs, which need no annotation.
type Segment struct {
	Text    string
	Reading string
}

// Align walks written left to right and carves reading into chunks.
//
// Kana in written consumes one matching rune from the reading pointer. A run
// of non-kana (kanji) takes everything up to the next occurrence, strictly
// past the pointer, of the kana that follows the run in written. A trailing
// kanji run, or a run whose anchor kana cannot be found, absorbs the rest of
// the reading.
//
// The concatenation of all segment texts is always exactly written.
func Align(written, reading string) []Segment {
	w := []rune(written)
	r := []rune(reading)

	var segs []Segment
	wi, ri := 0, 0

	for wi < len(w) {
		ch := w[wi]

		if kana.IsKana(ch) {
			if ri < len(r) && r[ri] == ch {
				ri++
			}
			segs = append(segs, Segment{Text: string(ch)})
			wi++
			continue
		}

		runStart := wi
		for wi < len(w) && !kana.IsKana(w[wi]) {
			wi++
		}
		run := string(w[runStart:wi])

		if wi < len(w) {
			anchor := w[wi]
			found := indexRune(r, anchor, ri+1) // reading consumes at least one mora
			if found == -1 {
				segs = append(segs, Segment{Text: run, Reading: string(r[ri:])})
				ri = len(r)
			} else {
				segs = append(segs, Segment{Text: run, Reading: string(r[ri:found])})
				ri = found
			}
		} else {
			segs = append(segs, Segment{Text: run, Reading: string(r[ri:])})
			ri = len(r)
		}
	}
	return segs
}

func indexRune(rs []rune, target rune, from int) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == target {
			return i
		}
	}
	return -1
}

// CorrectSurfaceReading re-derives the surface reading when the canonical
// lemma reading differs from the tokenizer's own lemma reading (two valid
// readings of one written form). Only the stem differs between readings, so
// the tokenizer stem prefix is swapped for the canonical stem.
//
// Example, 言う with surface 言った:
//
//	canonical いう → stem い (tail=1: う)
//	tokenizer ゆう → stem ゆ
//	surface ゆった → いった
//
// Falls back to the tokenizer surface reading whenever the correction is not
// safe to apply.
func CorrectSurfaceReading(surface, lemma, tokSurfaceReading, tokLemmaReading, canonicalLemmaReading string) string {
	if canonicalLemmaReading == "" || tokLemmaReading == "" {
		return tokSurfaceReading
	}
	if tokLemmaReading == canonicalLemmaReading {
		return tokSurfaceReading
	}

	tail := kana.TailKanaLen(lemma)
	tokStemLen := len([]rune(tokLemmaReading)) - tail
	canonStemLen := len([]rune(canonicalLemmaReading)) - tail
	if tokStemLen <= 0 || canonStemLen <= 0 {
		return tokSurfaceReading
	}

	wrongStem := string([]rune(tokLemmaReading)[:tokStemLen])
	correctStem := string([]rune(canonicalLemmaReading)[:canonStemLen])

	if !strings.HasPrefix(tokSurfaceReading, wrongStem) {
		return tokSurfaceReading
	}
	return correctStem + strings.TrimPrefix(tokSurfaceReading, wrongStem)
}

// Expression formats written+reading in Anki bracket format, one bracket per
// kanji run: 食べる/たべる → 食[た]べる. Pure-kana input is returned as is.
func Expression(written, reading string) string {
	if !kana.HasKanji(written) {
		return written
	}
	var b strings.Builder
	for _, seg := range Align(written, reading) {
		b.WriteString(seg.Text)
		if seg.Reading != "" {
			b.WriteString("[")
			b.WriteString(seg.Reading)
			b.WriteString("]")
		}
	}
	return b.String()
}

// SentenceHTML rebuilds the sentence as HTML with <ruby> annotations on every
// token except the target lemma, which is wrapped in <b> so the learner has
// to recall its reading themselves (it still carries ruby when it contains
// kanji, matching the card layout).
//
// Tokens are processed in ascending start order; a token starting before the
// write cursor overlaps an already-emitted one and is skipped, so output is
// monotonic and never duplicates sentence text.
func SentenceHTML(sentence string, tokens []tokenizer.Token, targetLemma string) string {
	sorted := make([]tokenizer.Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	runes := []rune(sentence)
	var b strings.Builder
	pos := 0

	for _, tok := range sorted {
		if tok.Start < pos {
			continue
		}
		if tok.Start > pos {
			b.WriteString(html.EscapeString(string(runes[pos:tok.Start])))
		}

		switch {
		case kana.HasKanji(tok.Surface):
			ruby := rubyHTML(tok.Surface, tok.Reading)
			if tok.Lemma == targetLemma {
				b.WriteString("<b>" + ruby + "</b>")
			} else {
				b.WriteString(ruby)
			}
		case tok.Lemma == targetLemma:
			b.WriteString("<b>" + html.EscapeString(tok.Surface) + "</b>")
		default:
			b.WriteString(html.EscapeString(tok.Surface))
		}
		pos = tok.End
	}

	if pos < len(runes) {
		b.WriteString(html.EscapeString(string(runes[pos:])))
	}
	return b.String()
}

func rubyHTML(written, reading string) string {
	var b strings.Builder
	for _, seg := range Align(written, reading) {
		if seg.Reading != "" {
			b.WriteString("<ruby>")
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString("<rt>")
			b.WriteString(html.EscapeString(seg.Reading))
			b.WriteString("</rt></ruby>")
		} else {
			b.WriteString(html.EscapeString(seg.Text))
		}
	}
	return b.String()
}
