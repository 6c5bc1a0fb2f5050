package mining

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shiromaru/tangomine/pkg/anki"
)

// NoteAdder is the bulk-insert operation Batch Commit consumes. Outcomes are
// positionally aligned with the submitted notes; nil marks a rejected
// duplicate.
type NoteAdder interface {
	AddNotes(ctx context.Context, notes []anki.Note) ([]*int64, error)
	AddNote(ctx context.Context, n anki.Note) (int64, error)
}

// CommitResult summarizes one batch commit.
type CommitResult struct {
	Added      int
	Duplicates int
}

// Committer turns assembled records into notes and writes them in one bulk
// call.
type Committer struct {
	Backend NoteAdder
	Known   KnownSet
	Deck    string
	Model   string
	Tags    []string
	Log     *slog.Logger
}

func (c *Committer) note(rec *Record) anki.Note {
	return anki.Note{
		Deck:   c.Deck,
		Model:  c.Model,
		Fields: rec.Fields.Map(),
		Tags:   c.Tags,
	}
}

// Commit sends the whole batch in a single remote call and reconciles the
// positional outcomes into the known-word set: accepted lemmas are added
// immediately, rejected duplicates are logged and never mutate the set.
// A transport failure is a run-level error; the call is not retried.
func (c *Committer) Commit(ctx context.Context, records []*Record) (CommitResult, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	var res CommitResult
	if len(records) == 0 {
		return res, nil
	}

	notes := make([]anki.Note, len(records))
	for i, rec := range records {
		notes[i] = c.note(rec)
	}

	outcomes, err := c.Backend.AddNotes(ctx, notes)
	if err != nil {
		return res, err
	}

	for i, id := range outcomes {
		if id == nil {
			log.Info("duplicate skipped", "lemma", records[i].Lemma)
			res.Duplicates++
			continue
		}
		c.Known.Add(records[i].Lemma)
		res.Added++
	}
	log.Info("batch committed", "added", res.Added, "duplicates", res.Duplicates)
	return res, nil
}

// CommitOne inserts a single record, used by the add-one path. A duplicate
// rejection is reported as such without touching the known-word set.
func (c *Committer) CommitOne(ctx context.Context, rec *Record) (added bool, err error) {
	_, err = c.Backend.AddNote(ctx, c.note(rec))
	if errors.Is(err, anki.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.Known.Add(rec.Lemma)
	return true, nil
}
