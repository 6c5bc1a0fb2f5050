// Package mining implements the flashcard mining pipeline: candidate
// collection over sentence units, best-sentence selection, canonical reading
// resolution, concurrent card assembly and the batched commit to the
// flashcard backend.
package mining

import (
	"context"
	"log/slog"

	"github.com/shiromaru/tangomine/pkg/kana"
	"github.com/shiromaru/tangomine/pkg/source"
	"github.com/shiromaru/tangomine/pkg/tokenizer"
)

// Tokenizer is the token source. Must be initialized once; Tokenize is a pure
// function of its input.
type Tokenizer interface {
	Tokenize(text string) []tokenizer.Token
}

// DictStore is the dictionary lookup contract the pipeline consumes.
type DictStore interface {
	Lookup(term, reading string) (string, error)
	Readings(term string) ([]string, error)
	ExistBatch(terms []string) (map[string]bool, error)
}

// FreqStore is the popularity rank contract. Rank returns a sentinel
// "infinite" value for unknown terms.
type FreqStore interface {
	Rank(term string) int
	BestReading(candidates []string) (string, bool)
}

// KnownSet is the shared known-vocabulary membership gate.
type KnownSet interface {
	Contains(expr string) bool
	Add(expr string)
}

// DuplicatePolicy controls whether already-learned lemmas are mined again.
type DuplicatePolicy int

const (
	SkipKnown DuplicatePolicy = iota
	AllowKnown
)

// Occurrence is one sighting of a lemma inside a sentence.
type Occurrence struct {
	Sentence source.SentenceUnit
	Token    tokenizer.Token
	Rank     int
}

// Candidates groups every surviving occurrence per lemma, plus the lemmas
// rejected as too rare or undefined, for reporting.
type Candidates struct {
	ByLemma map[string][]Occurrence
	Order   []string // lemma encounter order
	TooRare map[string]struct{}
}

// grammarPOS is the fixed grammar-only part-of-speech set. Tokens in these
// categories carry no vocabulary value.
var grammarPOS = map[string]bool{
	"助詞":   true,
	"助動詞":  true,
	"接続詞":  true,
	"感動詞":  true,
	"記号":   true,
	"補助記号": true,
	"空白":   true,
	"フィラー": true,
}

// lightVerbs are extremely common verbs and auxiliaries that slip past the
// part-of-speech filter.
var lightVerbs = map[string]bool{
	"する": true, "いる": true, "ある": true, "なる": true,
	"です": true, "ます": true, "くる": true, "くれる": true,
	"もらう": true, "あげる": true, "ない": true,
}

// SkipToken is the content-free token rejection predicate. Checks run in a
// fixed order; the first match wins.
func SkipToken(tok tokenizer.Token) bool {
	if !kana.HasKanji(tok.Lemma) {
		return true
	}
	if tok.POSSub == "固有名詞" {
		return true
	}
	if kana.IsASCII(tok.Surface) {
		return true
	}
	if grammarPOS[tok.POS] {
		return true
	}
	if len([]rune(tok.Lemma)) < 2 {
		return true
	}
	if lightVerbs[tok.Lemma] {
		return true
	}
	return false
}

// Collector scans sentence units for minable vocabulary.
type Collector struct {
	Tokens    Tokenizer
	Dict      DictStore
	Freq      FreqStore
	Known     KnownSet
	Threshold int // maximum acceptable frequency rank
	Policy    DuplicatePolicy
	Log       *slog.Logger
}

// Collect walks every sentence and groups surviving tokens per lemma.
// Dictionary or frequency store trouble degrades that filter dimension
// instead of aborting the scan. Cancellation is checked between sentences.
func (c *Collector) Collect(ctx context.Context, units []source.SentenceUnit) (*Candidates, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}

	out := &Candidates{
		ByLemma: make(map[string][]Occurrence),
		TooRare: make(map[string]struct{}),
	}
	// Dictionary existence is memoized across sentences; the same lemmas
	// recur constantly and the batch query is not free.
	existsCache := make(map[string]bool)

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		tokens := c.Tokens.Tokenize(unit.Text)

		type scored struct {
			tok  tokenizer.Token
			rank int
		}
		var survivors []scored
		var needLookup []string
		for _, tok := range tokens {
			if SkipToken(tok) {
				continue
			}
			if c.Policy == SkipKnown && c.Known.Contains(tok.Lemma) {
				continue
			}
			rank := c.Freq.Rank(tok.Lemma)
			if rank > c.Threshold {
				out.TooRare[tok.Lemma] = struct{}{}
				continue
			}
			survivors = append(survivors, scored{tok: tok, rank: rank})
			if _, seen := existsCache[tok.Lemma]; !seen {
				needLookup = append(needLookup, tok.Lemma)
			}
		}

		if len(needLookup) > 0 {
			found, err := c.Dict.ExistBatch(needLookup)
			if err != nil {
				// Degraded dictionary: nothing passes the existence gate.
				log.Warn("dictionary existence check failed", "err", err)
				found = map[string]bool{}
			}
			for _, lemma := range needLookup {
				existsCache[lemma] = found[lemma]
			}
		}

		for _, s := range survivors {
			lemma := s.tok.Lemma
			if !existsCache[lemma] {
				// No definition means no card, regardless of frequency.
				out.TooRare[lemma] = struct{}{}
				continue
			}
			if _, ok := out.ByLemma[lemma]; !ok {
				out.Order = append(out.Order, lemma)
			}
			out.ByLemma[lemma] = append(out.ByLemma[lemma], Occurrence{
				Sentence: unit,
				Token:    s.tok,
				Rank:     s.rank,
			})
		}
	}
	return out, nil
}
