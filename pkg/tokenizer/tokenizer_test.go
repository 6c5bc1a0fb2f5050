package tokenizer

import "testing"

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New()
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	return a
}

func TestTokenizeBasicSentence(t *testing.T) {
	a := newAnalyzer(t)
	text := "彼女は学校に行った。"
	tokens := a.Tokenize(text)
	if len(tokens) == 0 {
		t.Fatal("expected tokens, got none")
	}

	byLemma := make(map[string]Token)
	for _, tok := range tokens {
		byLemma[tok.Lemma] = tok
	}

	school, ok := byLemma["学校"]
	if !ok {
		t.Fatalf("学校 not found in tokens: %+v", tokens)
	}
	if school.Reading != "がっこう" {
		t.Errorf("学校 reading = %q, want がっこう", school.Reading)
	}
	if school.POS != "名詞" {
		t.Errorf("学校 POS = %q, want 名詞", school.POS)
	}

	iku, ok := byLemma["行く"]
	if !ok {
		t.Fatalf("行く not found in tokens: %+v", tokens)
	}
	if iku.Surface != "行っ" {
		t.Errorf("行く surface = %q, want 行っ", iku.Surface)
	}
	if iku.LemmaReading != "いく" {
		t.Errorf("行く lemma reading = %q, want いく", iku.LemmaReading)
	}
}

func TestTokenizeSpansReconstructSentence(t *testing.T) {
	a := newAnalyzer(t)
	text := "彼女は学校に行った。"
	runes := []rune(text)
	for _, tok := range a.Tokenize(text) {
		if tok.Start < 0 || tok.End > len(runes) || tok.Start >= tok.End {
			t.Fatalf("bad span [%d,%d) for %q", tok.Start, tok.End, tok.Surface)
		}
		if got := string(runes[tok.Start:tok.End]); got != tok.Surface {
			t.Errorf("span [%d,%d) = %q, want surface %q", tok.Start, tok.End, got, tok.Surface)
		}
	}
}

func TestReadingsAreHiragana(t *testing.T) {
	a := newAnalyzer(t)
	for _, tok := range a.Tokenize("食べる") {
		for _, r := range tok.Reading {
			if r >= 0x30A1 && r <= 0x30F6 {
				t.Errorf("reading %q of %q contains katakana", tok.Reading, tok.Surface)
			}
		}
	}
}
