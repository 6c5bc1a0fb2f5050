package mining

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Selection is the chosen occurrence for one lemma, enriched with the
// resolved canonical reading.
type Selection struct {
	Lemma       string
	Occurrence  Occurrence
	Reading     string
	Rank        int
	SourceLabel string
}

// Selector picks, per lemma, the occurrence whose sentence contains the
// fewest other unknown words: one new concept per card.
type Selector struct {
	Tokens Tokenizer
	Known  KnownSet
}

// Select scores every occurrence of every lemma and returns the argmin per
// lemma. Ties keep the first-encountered occurrence. Lemmas are scored in
// parallel; scoring is a pure function of sentence text so no shared state
// is touched.
func (s *Selector) Select(ctx context.Context, cands *Candidates) (map[string]Occurrence, error) {
	chosen := make(map[string]Occurrence, len(cands.ByLemma))
	results := make([]Occurrence, len(cands.Order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, lemma := range cands.Order {
		i, lemma := i, lemma
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.best(lemma, cands.ByLemma[lemma])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, lemma := range cands.Order {
		chosen[lemma] = results[i]
	}
	return chosen, nil
}

// best is a stable argmin over the occurrence list.
func (s *Selector) best(lemma string, occs []Occurrence) Occurrence {
	winner := occs[0]
	winnerScore := s.score(lemma, occs[0])
	for _, occ := range occs[1:] {
		if sc := s.score(lemma, occ); sc < winnerScore {
			winner, winnerScore = occ, sc
		}
	}
	return winner
}

// score counts other unknown words in the occurrence's sentence.
func (s *Selector) score(lemma string, occ Occurrence) int {
	n := 0
	for _, tok := range s.Tokens.Tokenize(occ.Sentence.Text) {
		if SkipToken(tok) {
			continue
		}
		if tok.Lemma == lemma {
			continue
		}
		if s.Known.Contains(tok.Lemma) {
			continue
		}
		n++
	}
	return n
}
