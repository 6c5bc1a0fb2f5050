package mining

import (
	"log/slog"

	"github.com/shiromaru/tangomine/pkg/furigana"
	"github.com/shiromaru/tangomine/pkg/kana"
	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

// BestReading resolves the canonical pronunciation of a lemma: every
// dictionary reading plus the tokenizer's own, deduplicated in encounter
// order, decided by frequency. Falls back to the tokenizer reading when the
// frequency store knows none of the candidates.
func BestReading(dict DictStore, freq FreqStore, lemma, tokReading string, log *slog.Logger) string {
	tokReading = kana.ToHiragana(tokReading)

	readings, err := dict.Readings(lemma)
	if err != nil && log != nil {
		log.Warn("dictionary readings lookup failed", "lemma", lemma, "err", err)
	}

	seen := make(map[string]struct{}, len(readings)+1)
	var candidates []string
	for _, r := range append(readings, tokReading) {
		r = kana.ToHiragana(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		candidates = append(candidates, r)
	}

	if best, ok := freq.BestReading(candidates); ok {
		return best
	}
	return tokReading
}

// CorrectTokens applies canonical-reading correction to every token of a
// sentence so its furigana reflects the chosen readings instead of raw
// tokenizer output. Returns a corrected copy; the input is not mutated.
func CorrectTokens(dict DictStore, freq FreqStore, tokens []tokenizer.Token, log *slog.Logger) []tokenizer.Token {
	out := make([]tokenizer.Token, len(tokens))
	copy(out, tokens)
	for i, tok := range out {
		if !kana.HasKanji(tok.Lemma) {
			continue
		}
		canonical := BestReading(dict, freq, tok.Lemma, tok.LemmaReading, log)
		if canonical == tok.LemmaReading {
			continue
		}
		out[i].Reading = furigana.CorrectSurfaceReading(
			tok.Surface, tok.Lemma, tok.Reading, tok.LemmaReading, canonical)
		out[i].LemmaReading = canonical
	}
	return out
}
