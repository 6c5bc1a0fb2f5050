package mining

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/shiromaru/tangomine/pkg/anki"
	"github.com/shiromaru/tangomine/pkg/source"
)

// ErrNotInScan is returned by AddOne for a lemma the last scan did not
// select. A user-facing condition: run a scan first.
var ErrNotInScan = errors.New("mining: word not in the last scan, run a scan first")

// ScanReport is what a scan hands back for review before committing.
type ScanReport struct {
	Selections []Selection
	TooRare    []string
}

// Runner drives a full mining pass: scan, assemble, commit. One background
// run at a time; the scan's selections are kept for the add-one path.
type Runner struct {
	Tokens    Tokenizer
	Dict      DictStore
	Freq      FreqStore
	Known     *anki.KnownWords
	Client    *anki.Client
	Clipper   Clipper
	WordAudio AudioFetcher
	Threshold int
	Policy    DuplicatePolicy
	PadMS     int64
	TempDir   string
	Workers   int
	Deck      string
	Model     string
	Tags      []string
	Log       *slog.Logger

	mu        sync.Mutex
	lastScan  map[string]Selection
	lastMedia string
	lastLabel string
}

// Scan collects candidates from the units, selects the best sentence per
// lemma and resolves canonical readings. The known-word cache is refreshed
// synchronously first so the duplicate picture is as fresh as the backend
// allows. Selections are ordered by ascending frequency rank.
func (r *Runner) Scan(ctx context.Context, units []source.SentenceUnit, mediaPath, sourceLabel string) (*ScanReport, error) {
	log := r.logger()

	res := r.Known.Refresh(ctx)
	log.Info("known-word refresh before scan", "outcome", res.Outcome.String(), "words", res.Size)

	collector := &Collector{
		Tokens:    r.Tokens,
		Dict:      r.Dict,
		Freq:      r.Freq,
		Known:     r.Known,
		Threshold: r.Threshold,
		Policy:    r.Policy,
		Log:       log,
	}
	cands, err := collector.Collect(ctx, units)
	if err != nil {
		return nil, err
	}

	selector := &Selector{Tokens: r.Tokens, Known: r.Known}
	chosen, err := selector.Select(ctx, cands)
	if err != nil {
		return nil, err
	}

	selections := make([]Selection, 0, len(chosen))
	byLemma := make(map[string]Selection, len(chosen))
	for _, lemma := range cands.Order {
		occ := chosen[lemma]
		sel := Selection{
			Lemma:       lemma,
			Occurrence:  occ,
			Reading:     BestReading(r.Dict, r.Freq, lemma, occ.Token.LemmaReading, log),
			Rank:        occ.Rank,
			SourceLabel: sourceLabel,
		}
		selections = append(selections, sel)
		byLemma[lemma] = sel
	}
	sort.SliceStable(selections, func(i, j int) bool {
		return selections[i].Rank < selections[j].Rank
	})

	tooRare := make([]string, 0, len(cands.TooRare))
	for lemma := range cands.TooRare {
		tooRare = append(tooRare, lemma)
	}
	sort.Strings(tooRare)

	r.mu.Lock()
	r.lastScan = byLemma
	r.lastMedia = mediaPath
	r.lastLabel = sourceLabel
	r.mu.Unlock()

	log.Info("scan complete", "candidates", len(selections), "too_rare", len(tooRare))
	return &ScanReport{Selections: selections, TooRare: tooRare}, nil
}

// Mine assembles and commits the given selections in one batch.
func (r *Runner) Mine(ctx context.Context, sels []Selection, mediaPath string) (CommitResult, error) {
	log := r.logger()

	existing, err := r.fetchExisting(ctx)
	if err != nil {
		log.Warn("destination media listing unavailable", "err", err)
		existing = map[string]bool{}
	}

	sink, err := r.chooseSink(ctx)
	if err != nil {
		return CommitResult{}, err
	}

	assembler := &Assembler{
		Tokens:    r.Tokens,
		Dict:      r.Dict,
		Freq:      r.Freq,
		Clipper:   r.Clipper,
		WordAudio: r.WordAudio,
		Sink:      sink,
		Existing:  existing,
		MediaPath: mediaPath,
		PadMS:     r.PadMS,
		TempDir:   r.TempDir,
		Workers:   r.Workers,
		Log:       log,
	}
	records, cancelled := assembler.Assemble(ctx, sels)
	if cancelled != nil {
		return CommitResult{}, cancelled
	}

	committer := &Committer{
		Backend: r.Client,
		Known:   r.Known,
		Deck:    r.Deck,
		Model:   r.Model,
		Tags:    r.Tags,
		Log:     log,
	}
	return committer.Commit(ctx, records)
}

// MineAll runs a scan followed by a commit of everything it selected.
func (r *Runner) MineAll(ctx context.Context, units []source.SentenceUnit, mediaPath, sourceLabel string) (CommitResult, error) {
	report, err := r.Scan(ctx, units, mediaPath, sourceLabel)
	if err != nil {
		return CommitResult{}, err
	}
	return r.Mine(ctx, report.Selections, mediaPath)
}

// AddOne commits a single lemma out of the last scan's selections.
func (r *Runner) AddOne(ctx context.Context, lemma string) (bool, error) {
	r.mu.Lock()
	sel, ok := r.lastScan[lemma]
	mediaPath := r.lastMedia
	r.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotInScan, lemma)
	}

	log := r.logger()
	existing, err := r.fetchExisting(ctx)
	if err != nil {
		existing = map[string]bool{}
	}
	sink, err := r.chooseSink(ctx)
	if err != nil {
		return false, err
	}

	assembler := &Assembler{
		Tokens:    r.Tokens,
		Dict:      r.Dict,
		Freq:      r.Freq,
		Clipper:   r.Clipper,
		WordAudio: r.WordAudio,
		Sink:      sink,
		Existing:  existing,
		MediaPath: mediaPath,
		PadMS:     r.PadMS,
		TempDir:   r.TempDir,
		Workers:   r.Workers,
		Log:       log,
	}
	records, cancelled := assembler.Assemble(ctx, []Selection{sel})
	if cancelled != nil {
		return false, cancelled
	}

	committer := &Committer{
		Backend: r.Client,
		Known:   r.Known,
		Deck:    r.Deck,
		Model:   r.Model,
		Tags:    r.Tags,
		Log:     log,
	}
	return committer.CommitOne(ctx, records[0])
}

// fetchExisting lists already-materialized artifacts at the destination so
// assembly can reference them without re-extracting.
func (r *Runner) fetchExisting(ctx context.Context) (map[string]bool, error) {
	names, err := r.Client.MediaFileNames(ctx, "tangomine_*")
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}
	return existing, nil
}

// chooseSink picks the destination-writing strategy once per run: direct
// filesystem writes when the backend's media directory is locally reachable,
// queued RPC uploads otherwise.
func (r *Runner) chooseSink(ctx context.Context) (MediaSink, error) {
	if dir, err := r.Client.MediaDirPath(ctx); err == nil && dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return &DirectSink{Dir: dir}, nil
		}
	}
	return NewUploadSink(ctx, r.Client, r.Workers, r.logger()), nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
