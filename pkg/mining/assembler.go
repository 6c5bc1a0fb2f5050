package mining

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shiromaru/tangomine/pkg/furigana"
	"github.com/shiromaru/tangomine/pkg/media"
)

// Clipper extracts clip/frame artifacts out of a local media file.
type Clipper interface {
	Extract(ctx context.Context, req media.Request) error
}

// AudioFetcher obtains a pronunciation clip for a single word.
type AudioFetcher interface {
	Fetch(ctx context.Context, lemma, reading string) (string, error)
}

// ClipKey derives the deterministic artifact key for a subtitle-timed clip.
// Same media and time window, same key, across runs.
func ClipKey(mediaPath string, startMS, endMS int64) string {
	h := fnv.New64a()
	h.Write([]byte(mediaPath))
	return fmt.Sprintf("tangomine_%x_%d-%d", h.Sum64(), startMS, endMS)
}

// WordAudioKey derives the artifact key for a word pronunciation clip.
func WordAudioKey(lemma, reading string) string {
	return fmt.Sprintf("tangomine_word_%s_%s", lemma, reading)
}

func soundRef(name string) string { return "[sound:" + name + "]" }
func imageRef(name string) string { return `<img src="` + name + `">` }

// Assembler builds complete card records and runs their asset tasks on a
// bounded worker pool.
type Assembler struct {
	Tokens    Tokenizer
	Dict      DictStore
	Freq      FreqStore
	Clipper   Clipper
	WordAudio AudioFetcher // nil disables word pronunciation
	Sink      MediaSink
	Existing  map[string]bool // pre-fetched destination artifact names
	MediaPath string          // clip source; "" when the run is not media-backed
	PadMS     int64
	TempDir   string
	Workers   int
	Log       *slog.Logger
}

// Assemble produces one record per selection. Asset extraction and fetching
// run concurrently; the call blocks at the batch boundary until every task
// has drained. Cancellation stops new candidates from being scheduled but
// already-enqueued tasks still drain. Individual asset failures leave their
// field
// blank and never fail the batch.
func (a *Assembler) Assemble(ctx context.Context, sels []Selection) ([]*Record, error) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 8
	}

	pool := NewWorkerPool(workers, workers*4)
	pool.Start(ctx)

	records := make([]*Record, 0, len(sels))
	var cancelled error
	for _, sel := range sels {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		rec := a.buildRecord(sel, log)
		a.scheduleAssets(pool, sel, rec, log)
		records = append(records, rec)
	}

	// Batch boundary: wait for extractions, then for uploads.
	pool.Close()
	a.Sink.Flush()
	return records, cancelled
}

// buildRecord fills the static text fields from the selection.
func (a *Assembler) buildRecord(sel Selection, log *slog.Logger) *Record {
	tokens := CorrectTokens(a.Dict, a.Freq, a.Tokens.Tokenize(sel.Occurrence.Sentence.Text), log)

	def, err := a.Dict.Lookup(sel.Lemma, sel.Reading)
	if err != nil {
		log.Warn("definition lookup failed", "lemma", sel.Lemma, "err", err)
	}

	return &Record{
		Lemma: sel.Lemma,
		Fields: NoteFields{
			Expression:         sel.Lemma,
			ExpressionFurigana: furigana.Expression(sel.Lemma, sel.Reading),
			ExpressionReading:  sel.Reading,
			MainDefinition:     def,
			Sentence:           furigana.SentenceHTML(sel.Occurrence.Sentence.Text, tokens, sel.Lemma),
			Frequency:          FormatRank(sel.Rank),
			FreqSort:           FormatRank(sel.Rank),
			MiscInfo:           sel.SourceLabel,
		},
	}
}

// scheduleAssets references already-materialized artifacts by name and
// enqueues extraction/fetch tasks for the rest. Each task owns a disjoint
// field of the record.
func (a *Assembler) scheduleAssets(pool *WorkerPool, sel Selection, rec *Record, log *slog.Logger) {
	if sel.Occurrence.Sentence.Timed && a.MediaPath != "" {
		startMS := sel.Occurrence.Sentence.Start.Milliseconds()
		endMS := sel.Occurrence.Sentence.End.Milliseconds()
		key := ClipKey(a.MediaPath, startMS, endMS)
		audioName := key + ".mp3"
		frameName := key + ".jpg"
		wantFrame := media.HasVideoTrack(a.MediaPath)

		needAudio := !a.Existing[audioName]
		needFrame := wantFrame && !a.Existing[frameName]

		if !needAudio {
			rec.Fields.SentenceAudio = soundRef(audioName)
		}
		if wantFrame && !needFrame {
			rec.Fields.Picture = imageRef(frameName)
		}

		if needAudio || needFrame {
			a.submit(pool, log, "clip", sel.Lemma, func(ctx context.Context) error {
				return a.extractClip(ctx, rec, startMS, endMS, audioName, frameName, needAudio, needFrame)
			})
		}
	}

	if a.WordAudio != nil {
		waName := WordAudioKey(sel.Lemma, sel.Reading) + ".mp3"
		if a.Existing[waName] {
			rec.Fields.ExpressionAudio = soundRef(waName)
			return
		}
		lemma, reading := sel.Lemma, sel.Reading
		a.submit(pool, log, "word audio", sel.Lemma, func(ctx context.Context) error {
			local, err := a.WordAudio.Fetch(ctx, lemma, reading)
			if err != nil {
				return err
			}
			return a.Sink.Store(waName, local, func() {
				rec.Fields.ExpressionAudio = soundRef(waName)
			})
		})
	}
}

// submit wraps a task with failure logging; a failed task leaves its field
// blank and the batch continues.
func (a *Assembler) submit(pool *WorkerPool, log *slog.Logger, kind, lemma string, job Job) {
	err := pool.Submit(func(ctx context.Context) error {
		if err := job(ctx); err != nil {
			log.Warn("asset task failed", "kind", kind, "lemma", lemma, "err", err)
			return err
		}
		return nil
	})
	if err != nil {
		log.Warn("asset task rejected", "kind", kind, "lemma", lemma, "err", err)
	}
}

// extractClip runs one transcoder invocation producing the needed artifacts,
// then hands them to the sink.
func (a *Assembler) extractClip(ctx context.Context, rec *Record, startMS, endMS int64, audioName, frameName string, needAudio, needFrame bool) error {
	tmpBase := filepath.Join(a.TempDir, "clip_"+uuid.NewString())
	req := media.Request{
		Source:  a.MediaPath,
		StartMS: startMS,
		EndMS:   endMS,
		PadMS:   a.PadMS,
	}
	if needAudio {
		req.AudioOut = tmpBase + ".mp3"
	} else {
		// The transcoder always clips audio; extract to a throwaway path.
		req.AudioOut = tmpBase + "_discard.mp3"
		defer os.Remove(req.AudioOut)
	}
	if needFrame {
		req.FrameOut = tmpBase + ".jpg"
	}

	if err := a.Clipper.Extract(ctx, req); err != nil {
		return err
	}

	if needAudio {
		if err := a.Sink.Store(audioName, req.AudioOut, func() {
			rec.Fields.SentenceAudio = soundRef(audioName)
		}); err != nil {
			return err
		}
	}
	if needFrame {
		if err := a.Sink.Store(frameName, req.FrameOut, func() {
			rec.Fields.Picture = imageRef(frameName)
		}); err != nil {
			return err
		}
	}
	return nil
}
