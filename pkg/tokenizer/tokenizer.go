// Package tokenizer wraps kagome with the IPA dictionary and exposes tokens
// in the shape the mining pipeline works with: surface, lemma, hiragana
// readings for both, part-of-speech and the rune span inside the sentence.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/shiromaru/tangomine/pkg/kana"
)

// Token is a single analyzed unit of text.
type Token struct {
	Surface      string // as it appears in the sentence (e.g. "行っ")
	Lemma        string // dictionary form (e.g. "行く")
	Reading      string // hiragana reading of the surface form
	LemmaReading string // hiragana reading of the lemma form
	POS          string // main part-of-speech category (e.g. "動詞")
	POSSub       string // first sub-category (e.g. "固有名詞")
	Start        int    // rune index into the sentence, inclusive
	End          int    // rune index into the sentence, exclusive
}

// Analyzer tokenizes Japanese text. Construction loads the IPA dictionary and
// is expensive; create one Analyzer per process and share it. Tokenize is
// safe for concurrent use.
type Analyzer struct {
	t *kagome.Tokenizer

	mu            sync.Mutex
	lemmaReadings map[string]string
}

// New creates an Analyzer backed by the embedded IPA dictionary.
func New() (*Analyzer, error) {
	t, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t, lemmaReadings: make(map[string]string)}, nil
}

// Tokenize breaks text into tokens. Whitespace-only tokens are dropped;
// span gaps are handled by callers that reassemble the sentence.
func (a *Analyzer) Tokenize(text string) []Token {
	var out []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == kagome.DUMMY {
			continue
		}
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}

		// IPA features: 0 POS, 1..3 sub-POS, 4 conj type, 5 conj form,
		// 6 base form, 7 reading, 8 pronunciation.
		f := tok.Features()

		lemma := tok.Surface
		if len(f) > 6 && f[6] != "*" {
			lemma = f[6]
		}
		reading := ""
		if len(f) > 7 && f[7] != "*" {
			reading = kana.ToHiragana(f[7])
		}
		pos, sub := "", ""
		if len(f) > 0 {
			pos = f[0]
		}
		if len(f) > 1 && f[1] != "*" {
			sub = f[1]
		}

		lemmaReading := reading
		if lemma != tok.Surface {
			lemmaReading = a.lemmaReading(lemma, reading)
		}

		out = append(out, Token{
			Surface:      tok.Surface,
			Lemma:        lemma,
			Reading:      reading,
			LemmaReading: lemmaReading,
			POS:          pos,
			POSSub:       sub,
			Start:        tok.Start,
			End:          tok.End,
		})
	}
	return out
}

// lemmaReading re-tokenizes the lemma to obtain its reading. Memoized: the
// same lemma shows up across many sentences and the lookup is not free.
func (a *Analyzer) lemmaReading(lemma, fallback string) string {
	a.mu.Lock()
	r, ok := a.lemmaReadings[lemma]
	a.mu.Unlock()
	if ok {
		if r == "" {
			return fallback
		}
		return r
	}

	var b strings.Builder
	for _, tok := range a.t.Tokenize(lemma) {
		if tok.Class == kagome.DUMMY {
			continue
		}
		f := tok.Features()
		if len(f) > 7 && f[7] != "*" {
			b.WriteString(f[7])
		}
	}
	r = kana.ToHiragana(b.String())

	a.mu.Lock()
	a.lemmaReadings[lemma] = r
	a.mu.Unlock()

	if r == "" {
		return fallback
	}
	return r
}
