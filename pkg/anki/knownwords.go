package anki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Target names one collection the known-word set is mined from: a note type
// and the field within it that holds the vocabulary expression.
type Target struct {
	NoteType string `yaml:"note_type"`
	Field    string `yaml:"field"`
}

// CacheRecord is the persisted mirror of the remote vocabulary.
type CacheRecord struct {
	Words        []string `json:"words"`
	NoteCount    int      `json:"note_count"`
	MaxNoteID    int64    `json:"max_note_id"`
	CacheVersion int      `json:"cache_version"`
}

const (
	cacheVersion = 1

	// Count drift below this is treated as noise and skips reconciliation.
	unchangedDelta = 5

	// A record older than this is stale: still returned immediately, but
	// always refreshed in the background.
	cacheMaxAge = 2 * time.Hour
)

// RefreshOutcome says which reconciliation path a refresh took.
type RefreshOutcome int

const (
	RefreshUnchanged RefreshOutcome = iota
	RefreshIncremental
	RefreshFull
	RefreshAborted // backend unreachable; cached set stays authoritative
)

func (o RefreshOutcome) String() string {
	switch o {
	case RefreshUnchanged:
		return "unchanged"
	case RefreshIncremental:
		return "incremental"
	case RefreshFull:
		return "full"
	case RefreshAborted:
		return "aborted"
	}
	return "unknown"
}

// RefreshResult is delivered on the channel returned by StartRefresh.
type RefreshResult struct {
	Outcome RefreshOutcome
	Size    int // set size after the refresh
}

var (
	rubyTextRe     = regexp.MustCompile(`(?si)<r[tp]\b[^>]*>.*?</r[tp]>`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	readingBracket = regexp.MustCompile(`\[[^\]]+\]`)
)

// extractExpression turns a stored field value into the canonical expression
// string: ruby annotations, HTML tags and bracket furigana stripped,
// whitespace trimmed.
func extractExpression(value string) string {
	plain := rubyTextRe.ReplaceAllString(value, "")
	plain = htmlTagRe.ReplaceAllString(plain, "")
	plain = readingBracket.ReplaceAllString(plain, "")
	return strings.TrimSpace(plain)
}

// KnownWords is the process-wide known-vocabulary cache: an in-memory set
// mirroring the remote store, a persisted record for fast starts, and a
// single-flight reconciliation loop keeping the two aligned.
//
// Membership reads never touch the network. The set is eventually consistent
// with the backend; staleness costs precision (a re-mined duplicate the
// backend will reject anyway), never correctness.
type KnownWords struct {
	client  *Client
	targets []Target
	path    string
	log     *slog.Logger

	mu        sync.RWMutex
	words     map[string]struct{}
	noteCount int
	maxNoteID int64

	loadOnce sync.Once
	flight   singleflight.Group
}

// NewKnownWords creates the cache service. cachePath is the persisted JSON
// record location; its directory is created on first save.
func NewKnownWords(client *Client, targets []Target, cachePath string, log *slog.Logger) *KnownWords {
	if log == nil {
		log = slog.Default()
	}
	return &KnownWords{
		client:  client,
		targets: targets,
		path:    cachePath,
		log:     log,
		words:   make(map[string]struct{}),
	}
}

// Load reads the persisted record once. Absent or corrupt records degrade to
// an empty set. Returns the loaded set size.
func (k *KnownWords) Load() int {
	k.loadOnce.Do(func() {
		rec, err := readRecord(k.path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				k.log.Warn("known-words cache unreadable, starting cold", "path", k.path, "err", err)
			}
			return
		}
		words := make(map[string]struct{}, len(rec.Words))
		for _, w := range rec.Words {
			words[w] = struct{}{}
		}
		k.mu.Lock()
		k.words = words
		k.noteCount = rec.NoteCount
		k.maxNoteID = rec.MaxNoteID
		k.mu.Unlock()

		if info, err := os.Stat(k.path); err == nil {
			if age := time.Since(info.ModTime()); age > cacheMaxAge {
				k.log.Info("known-words cache is stale", "age", age)
			}
		}
		k.log.Info("known-words cache loaded", "words", len(words), "note_count", rec.NoteCount)
	})
	return k.Len()
}

// Contains reports whether the expression is already learned.
func (k *KnownWords) Contains(expr string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.words[expr]
	return ok
}

// Add records a newly committed expression.
func (k *KnownWords) Add(expr string) {
	k.mu.Lock()
	k.words[expr] = struct{}{}
	k.mu.Unlock()
}

// Len returns the current set size.
func (k *KnownWords) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.words)
}

// Words returns a sorted copy of the set.
func (k *KnownWords) Words() []string {
	k.mu.RLock()
	out := make([]string, 0, len(k.words))
	for w := range k.words {
		out = append(out, w)
	}
	k.mu.RUnlock()
	sort.Strings(out)
	return out
}

// StartRefresh launches a reconciliation in the background and returns a
// one-shot channel delivering its result. The fast path for callers: use the
// already-loaded set immediately, pick up the improved set later.
func (k *KnownWords) StartRefresh(ctx context.Context) <-chan RefreshResult {
	done := make(chan RefreshResult, 1)
	go func() {
		done <- k.Refresh(ctx)
		close(done)
	}()
	return done
}

// Refresh reconciles the cache with the backend synchronously. Concurrent
// callers share one in-flight reconciliation instead of duplicating it.
func (k *KnownWords) Refresh(ctx context.Context) RefreshResult {
	v, _, _ := k.flight.Do("reconcile", func() (interface{}, error) {
		return k.reconcile(ctx), nil
	})
	return v.(RefreshResult)
}

// targetIDs is one target's current remote membership.
type targetIDs struct {
	target Target
	ids    []int64
}

// reconcile decides between the Unchanged, Incremental and Full paths and
// persists the record after any successful member fetch.
func (k *KnownWords) reconcile(ctx context.Context) RefreshResult {
	counts, err := k.fetchIDs(ctx)
	if err != nil {
		// Unreachable backend is not an application error; the previously
		// returned set stays authoritative.
		k.log.Warn("known-words refresh aborted", "err", err)
		return RefreshResult{Outcome: RefreshAborted, Size: k.Len()}
	}

	currentCount := 0
	var currentMax int64
	for _, tc := range counts {
		currentCount += len(tc.ids)
		for _, id := range tc.ids {
			if id > currentMax {
				currentMax = id
			}
		}
	}

	k.mu.RLock()
	cachedCount := k.noteCount
	cachedMax := k.maxNoteID
	cachedSize := len(k.words)
	k.mu.RUnlock()

	delta := currentCount - cachedCount

	if delta > -unchangedDelta && delta < unchangedDelta && cachedSize > 0 {
		k.log.Debug("known-words unchanged", "count", currentCount)
		return RefreshResult{Outcome: RefreshUnchanged, Size: cachedSize}
	}

	if delta > 0 && cachedSize > 0 && cachedMax > 0 {
		if err := k.mergeAbove(ctx, counts, cachedMax); err != nil {
			k.log.Warn("incremental known-words refresh aborted", "err", err)
			return RefreshResult{Outcome: RefreshAborted, Size: k.Len()}
		}
		k.finish(currentCount, currentMax)
		return RefreshResult{Outcome: RefreshIncremental, Size: k.Len()}
	}

	// Deletions happened or there is no valid baseline: rebuild from scratch.
	fresh, err := k.fetchAll(ctx, counts)
	if err != nil {
		k.log.Warn("full known-words refresh aborted", "err", err)
		return RefreshResult{Outcome: RefreshAborted, Size: k.Len()}
	}
	k.mu.Lock()
	k.words = fresh
	k.mu.Unlock()
	k.finish(currentCount, currentMax)
	return RefreshResult{Outcome: RefreshFull, Size: k.Len()}
}

// fetchIDs queries current membership of every target concurrently.
func (k *KnownWords) fetchIDs(ctx context.Context) ([]targetIDs, error) {
	out := make([]targetIDs, len(k.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range k.targets {
		i, t := i, t
		g.Go(func() error {
			ids, err := k.client.FindNotes(gctx, fmt.Sprintf("note:%q", t.NoteType))
			if err != nil {
				return err
			}
			out[i] = targetIDs{target: t, ids: ids}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeAbove fetches only notes above the high-water mark and merges their
// expressions into the existing set.
func (k *KnownWords) mergeAbove(ctx context.Context, counts []targetIDs, mark int64) error {
	for _, tc := range counts {
		var newIDs []int64
		for _, id := range tc.ids {
			if id > mark {
				newIDs = append(newIDs, id)
			}
		}
		if len(newIDs) == 0 {
			continue
		}
		notes, err := k.client.NotesInfo(ctx, newIDs)
		if err != nil {
			return err
		}
		k.mu.Lock()
		for _, n := range notes {
			if expr := extractExpression(n.Fields[tc.target.Field].Value); expr != "" {
				k.words[expr] = struct{}{}
			}
		}
		k.mu.Unlock()
	}
	return nil
}

// fetchAll re-fetches every target from scratch, one concurrent fetch per
// target collection.
func (k *KnownWords) fetchAll(ctx context.Context, counts []targetIDs) (map[string]struct{}, error) {
	var mu sync.Mutex
	fresh := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	for _, tc := range counts {
		tc := tc
		g.Go(func() error {
			notes, err := k.client.NotesInfo(gctx, tc.ids)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, n := range notes {
				if expr := extractExpression(n.Fields[tc.target.Field].Value); expr != "" {
					fresh[expr] = struct{}{}
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// finish updates the baseline counters and persists the record.
func (k *KnownWords) finish(count int, maxID int64) {
	k.mu.Lock()
	k.noteCount = count
	k.maxNoteID = maxID
	k.mu.Unlock()

	if err := k.save(); err != nil {
		k.log.Warn("known-words cache save failed", "err", err)
	} else {
		k.log.Info("known-words cache saved", "words", k.Len(), "note_count", count)
	}
}

func (k *KnownWords) save() error {
	k.mu.RLock()
	rec := CacheRecord{
		Words:        make([]string, 0, len(k.words)),
		NoteCount:    k.noteCount,
		MaxNoteID:    k.maxNoteID,
		CacheVersion: cacheVersion,
	}
	for w := range k.words {
		rec.Words = append(rec.Words, w)
	}
	k.mu.RUnlock()
	sort.Strings(rec.Words)
	return writeRecord(k.path, rec)
}

// Clear removes the persisted record and empties the in-memory set.
func (k *KnownWords) Clear() error {
	k.mu.Lock()
	k.words = make(map[string]struct{})
	k.noteCount = 0
	k.maxNoteID = 0
	k.mu.Unlock()
	err := os.Remove(k.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func readRecord(path string) (CacheRecord, error) {
	var rec CacheRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse cache record: %w", err)
	}
	if rec.CacheVersion != cacheVersion {
		return CacheRecord{}, fmt.Errorf("cache record version %d, want %d", rec.CacheVersion, cacheVersion)
	}
	return rec, nil
}

func writeRecord(path string, rec CacheRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
