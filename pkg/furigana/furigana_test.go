package furigana

import (
	"strings"
	"testing"

	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

func TestAlignConcatenationProperty(t *testing.T) {
	pairs := [][2]string{
		{"食べる", "たべる"},
		{"学校", "がっこう"},
		{"お疲れ様", "おつかれさま"},
		{"言う", "いう"},
		{"取り扱い", "とりあつかい"},
		{"ひらがな", "ひらがな"},
	}
	for _, p := range pairs {
		segs := Align(p[0], p[1])
		var b strings.Builder
		for _, s := range segs {
			b.WriteString(s.Text)
		}
		if b.String() != p[0] {
			t.Errorf("Align(%q, %q): segments concatenate to %q", p[0], p[1], b.String())
		}
	}
}

func TestAlignSplitsOnAnchorKana(t *testing.T) {
	segs := Align("お疲れ様", "おつかれさま")
	want := []Segment{
		{Text: "お"},
		{Text: "疲", Reading: "つか"},
		{Text: "れ"},
		{Text: "様", Reading: "さま"},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d: %v", len(segs), len(want), segs)
	}
	for i, s := range segs {
		if s != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestAlignTrailingKanjiAbsorbsReading(t *testing.T) {
	segs := Align("学校", "がっこう")
	if len(segs) != 1 || segs[0].Text != "学校" || segs[0].Reading != "がっこう" {
		t.Fatalf("unexpected segments: %v", segs)
	}
}

func TestCorrectSurfaceReadingNoop(t *testing.T) {
	got := CorrectSurfaceReading("食べた", "食べる", "たべた", "たべる", "たべる")
	if got != "たべた" {
		t.Errorf("expected no-op, got %q", got)
	}
}

func TestCorrectSurfaceReadingSwapsStem(t *testing.T) {
	// 言う read ゆう by the tokenizer but canonically いう: the conjugated
	// surface reading must swap its stem.
	got := CorrectSurfaceReading("言った", "言う", "ゆった", "ゆう", "いう")
	if got != "いった" {
		t.Errorf("got %q, want いった", got)
	}
}

func TestCorrectSurfaceReadingSafetyFallbacks(t *testing.T) {
	// Canonical reading shorter than the kana tail: abort.
	if got := CorrectSurfaceReading("言った", "言う", "ゆった", "ゆう", "う"); got != "ゆった" {
		t.Errorf("short canonical: got %q, want ゆった", got)
	}
	// Surface reading does not start with the tokenizer stem: abort.
	if got := CorrectSurfaceReading("言った", "言う", "いった", "ゆう", "いう"); got != "いった" {
		t.Errorf("stem mismatch: got %q, want いった", got)
	}
	// Empty canonical reading: abort.
	if got := CorrectSurfaceReading("言った", "言う", "ゆった", "ゆう", ""); got != "ゆった" {
		t.Errorf("empty canonical: got %q, want ゆった", got)
	}
}

func TestExpression(t *testing.T) {
	if got := Expression("食べる", "たべる"); got != "食[た]べる" {
		t.Errorf("got %q, want 食[た]べる", got)
	}
	if got := Expression("お疲れ様", "おつかれさま"); got != "お疲[つか]れ様[さま]" {
		t.Errorf("got %q, want お疲[つか]れ様[さま]", got)
	}
	// Pure kana needs no brackets.
	if got := Expression("ひらがな", "ひらがな"); got != "ひらがな" {
		t.Errorf("got %q, want ひらがな", got)
	}
}

func sentenceTokens() []tokenizer.Token {
	return []tokenizer.Token{
		{Surface: "彼女", Lemma: "彼女", Reading: "かのじょ", Start: 0, End: 2},
		{Surface: "は", Lemma: "は", Reading: "は", Start: 2, End: 3},
		{Surface: "学校", Lemma: "学校", Reading: "がっこう", Start: 3, End: 5},
		{Surface: "に", Lemma: "に", Reading: "に", Start: 5, End: 6},
		{Surface: "行っ", Lemma: "行く", Reading: "いっ", Start: 6, End: 8},
		{Surface: "た", Lemma: "た", Reading: "た", Start: 8, End: 9},
		{Surface: "。", Lemma: "。", Reading: "", Start: 9, End: 10},
	}
}

func TestSentenceHTMLBoldsTarget(t *testing.T) {
	got := SentenceHTML("彼女は学校に行った。", sentenceTokens(), "学校")
	want := "<ruby>彼女<rt>かのじょ</rt></ruby>は" +
		"<b><ruby>学校<rt>がっこう</rt></ruby></b>に" +
		"<ruby>行<rt>い</rt></ruby>った。"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestSentenceHTMLSkipsOverlappingTokens(t *testing.T) {
	tokens := sentenceTokens()
	// An overlapping span starting inside an already-emitted token.
	tokens = append(tokens, tokenizer.Token{
		Surface: "女は", Lemma: "女", Reading: "おんな", Start: 1, End: 3,
	})
	got := SentenceHTML("彼女は学校に行った。", tokens, "学校")
	if strings.Contains(got, "おんな") {
		t.Errorf("overlapping token was rendered: %q", got)
	}
	if !strings.Contains(got, "がっこう") {
		t.Errorf("target token missing: %q", got)
	}
}
