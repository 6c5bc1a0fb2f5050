package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shiromaru/tangomine/pkg/db"
	"github.com/shiromaru/tangomine/pkg/kana"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (term TEXT, reading TEXT, definition TEXT);
CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// Import indexes jmdict-simplified entries into a fresh sqlite database at
// dbPath. Each entry yields one row per (written form, reading) pair; kana-only
// words are indexed under their kana text so Lookup still resolves them.
// Returns the number of rows written.
func Import(dbPath string, entries []JMdictEntry) (int, error) {
	conn, err := db.OpenWrite(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if _, err := conn.Exec(`DROP TABLE IF EXISTS entries`); err != nil {
		return 0, err
	}
	if _, err := conn.Exec(schema); err != nil {
		return 0, fmt.Errorf("init schema: %w", err)
	}

	bw := db.NewBatchWriter(conn, 2000, 500*time.Millisecond)
	rows := 0
	for _, e := range entries {
		def := formatDefinition(e)
		if def == "" {
			continue
		}

		terms := make([]string, 0, len(e.Kanji))
		for _, k := range e.Kanji {
			terms = append(terms, k.Text)
		}
		if len(terms) == 0 {
			for _, k := range e.Kana {
				terms = append(terms, k.Text)
			}
		}

		readings := make([]string, 0, len(e.Kana))
		for _, k := range e.Kana {
			readings = append(readings, kana.ToHiragana(k.Text))
		}
		if len(readings) == 0 {
			readings = append(readings, "")
		}

		for _, term := range terms {
			for _, reading := range readings {
				t, r, d := term, reading, def
				err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
					_, err := tx.Exec(
						`INSERT INTO entries (term, reading, definition) VALUES (?, ?, ?)`,
						t, r, d,
					)
					return err
				})
				if err != nil {
					_ = bw.Close()
					return rows, err
				}
				rows++
			}
		}
	}
	if err := bw.Close(); err != nil {
		return rows, err
	}

	// Index after all inserts; faster than maintaining it per row.
	if _, err := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_term ON entries (term)`); err != nil {
		return rows, fmt.Errorf("create index: %w", err)
	}
	return rows, nil
}
