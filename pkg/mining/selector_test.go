package mining

import (
	"context"
	"testing"

	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

func TestSelectPrefersFewestOtherUnknowns(t *testing.T) {
	// 学校 appears in two sentences; the second carries fewer other
	// unknown words and must win.
	busy := "学校で珍しい言葉を覚えた。"
	busyTokens := []tokenizer.Token{
		tok("学校", "学校", "がっこう", "がっこう", "名詞", 0),
		tok("で", "で", "で", "で", "助詞", 2),
		tok("珍しい", "珍しい", "めずらしい", "めずらしい", "形容詞", 3),
		tok("言葉", "言葉", "ことば", "ことば", "名詞", 6),
		tok("を", "を", "を", "を", "助詞", 8),
		tok("覚え", "覚える", "おぼえ", "おぼえる", "動詞", 9),
		tok("た", "た", "た", "た", "助動詞", 11),
		tok("。", "。", "", "", "記号", 12),
	}
	simple, simpleTokens := schoolSentence()

	toks := &fakeTokens{byText: map[string][]tokenizer.Token{
		busy:   busyTokens,
		simple: simpleTokens,
	}}
	// 彼女 and 行く are known, so the simple sentence has zero other
	// unknowns; the busy one has three.
	sel := &Selector{Tokens: toks, Known: newFakeKnown("彼女", "行く")}

	cands := &Candidates{
		ByLemma: map[string][]Occurrence{
			"学校": {
				{Sentence: unit(busy), Token: busyTokens[0], Rank: 500},
				{Sentence: unit(simple), Token: simpleTokens[2], Rank: 500},
			},
		},
		Order: []string{"学校"},
	}

	chosen, err := sel.Select(context.Background(), cands)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if got := chosen["学校"].Sentence.Text; got != simple {
		t.Errorf("chose %q, want %q", got, simple)
	}
}

func TestSelectTieKeepsFirstOccurrence(t *testing.T) {
	first := "学校に行く。"
	second := "学校へ帰る。"
	firstTokens := []tokenizer.Token{
		tok("学校", "学校", "がっこう", "がっこう", "名詞", 0),
		tok("に", "に", "に", "に", "助詞", 2),
		tok("行く", "行く", "いく", "いく", "動詞", 3),
		tok("。", "。", "", "", "記号", 5),
	}
	secondTokens := []tokenizer.Token{
		tok("学校", "学校", "がっこう", "がっこう", "名詞", 0),
		tok("へ", "へ", "へ", "へ", "助詞", 2),
		tok("帰る", "帰る", "かえる", "かえる", "動詞", 3),
		tok("。", "。", "", "", "記号", 5),
	}

	toks := &fakeTokens{byText: map[string][]tokenizer.Token{
		first:  firstTokens,
		second: secondTokens,
	}}
	// Both sentences carry exactly one other unknown word.
	sel := &Selector{Tokens: toks, Known: newFakeKnown()}

	cands := &Candidates{
		ByLemma: map[string][]Occurrence{
			"学校": {
				{Sentence: unit(first), Token: firstTokens[0], Rank: 500},
				{Sentence: unit(second), Token: secondTokens[0], Rank: 500},
			},
		},
		Order: []string{"学校"},
	}

	for i := 0; i < 5; i++ {
		chosen, err := sel.Select(context.Background(), cands)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if got := chosen["学校"].Sentence.Text; got != first {
			t.Fatalf("run %d: chose %q, want first occurrence %q", i, got, first)
		}
	}
}

func TestBestReadingPrefersMostFrequent(t *testing.T) {
	dict := &fakeDict{readings: map[string][]string{"言う": {"いう", "ゆう"}}}
	freq := fakeFreq{"いう": 80, "ゆう": 3000}

	if got := BestReading(dict, freq, "言う", "ゆう", nil); got != "いう" {
		t.Errorf("got %q, want いう", got)
	}
}

func TestBestReadingFallsBackToTokenizer(t *testing.T) {
	dict := &fakeDict{readings: map[string][]string{}}
	freq := fakeFreq{}

	if got := BestReading(dict, freq, "言う", "ゆう", nil); got != "ゆう" {
		t.Errorf("got %q, want tokenizer reading ゆう", got)
	}
}

func TestCorrectTokensRewritesSurfaceReading(t *testing.T) {
	dict := &fakeDict{readings: map[string][]string{"言う": {"いう", "ゆう"}}}
	freq := fakeFreq{"いう": 80, "ゆう": 3000}

	in := []tokenizer.Token{tok("言った", "言う", "ゆった", "ゆう", "動詞", 0)}
	out := CorrectTokens(dict, freq, in, nil)
	if out[0].Reading != "いった" {
		t.Errorf("corrected reading = %q, want いった", out[0].Reading)
	}
	if in[0].Reading != "ゆった" {
		t.Error("input slice was mutated")
	}
}
