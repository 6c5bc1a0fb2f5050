package mining

import (
	"sync"

	"github.com/shiromaru/tangomine/pkg/source"
	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

// Shared fakes for the pipeline tests.

type fakeTokens struct {
	byText map[string][]tokenizer.Token
}

func (f *fakeTokens) Tokenize(text string) []tokenizer.Token { return f.byText[text] }

type fakeDict struct {
	defs     map[string]string
	readings map[string][]string
}

func (f *fakeDict) Lookup(term, reading string) (string, error) { return f.defs[term], nil }

func (f *fakeDict) Readings(term string) ([]string, error) { return f.readings[term], nil }

func (f *fakeDict) ExistBatch(terms []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, t := range terms {
		if _, ok := f.defs[t]; ok {
			out[t] = true
		}
	}
	return out, nil
}

const rankUnknown = 999999

type fakeFreq map[string]int

func (f fakeFreq) Rank(term string) int {
	if r, ok := f[term]; ok {
		return r
	}
	return rankUnknown
}

func (f fakeFreq) BestReading(candidates []string) (string, bool) {
	best, bestRank := "", rankUnknown
	for _, c := range candidates {
		if r, ok := f[c]; ok && r < bestRank {
			best, bestRank = c, r
		}
	}
	return best, best != ""
}

type fakeKnown struct {
	mu    sync.Mutex
	words map[string]struct{}
}

func newFakeKnown(words ...string) *fakeKnown {
	k := &fakeKnown{words: make(map[string]struct{})}
	for _, w := range words {
		k.words[w] = struct{}{}
	}
	return k
}

func (k *fakeKnown) Contains(expr string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.words[expr]
	return ok
}

func (k *fakeKnown) Add(expr string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.words[expr] = struct{}{}
}

func tok(surface, lemma, reading, lemmaReading, pos string, start int) tokenizer.Token {
	return tokenizer.Token{
		Surface:      surface,
		Lemma:        lemma,
		Reading:      reading,
		LemmaReading: lemmaReading,
		POS:          pos,
		Start:        start,
		End:          start + len([]rune(surface)),
	}
}

// schoolSentence is 彼女は学校に行った。 tokenized the way the pipeline sees it.
func schoolSentence() (string, []tokenizer.Token) {
	text := "彼女は学校に行った。"
	return text, []tokenizer.Token{
		tok("彼女", "彼女", "かのじょ", "かのじょ", "名詞", 0),
		tok("は", "は", "は", "は", "助詞", 2),
		tok("学校", "学校", "がっこう", "がっこう", "名詞", 3),
		tok("に", "に", "に", "に", "助詞", 5),
		tok("行っ", "行く", "いっ", "いく", "動詞", 6),
		tok("た", "た", "た", "た", "助動詞", 8),
		tok("。", "。", "", "", "記号", 9),
	}
}

func unit(text string) source.SentenceUnit { return source.SentenceUnit{Text: text} }
