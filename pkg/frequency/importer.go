package frequency

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"time"

	"github.com/shiromaru/tangomine/pkg/db"
)

var termMetaBankRe = regexp.MustCompile(`term_meta_bank_\d+\.json$`)

// Import indexes a Yomitan frequency dictionary zip into a sqlite database at
// dbPath. Duplicate terms keep their minimum (most common) rank. Returns the
// number of terms written.
func Import(zipPath, dbPath string) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer zr.Close()

	conn, err := db.OpenWrite(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if _, err := conn.Exec(`DROP TABLE IF EXISTS frequency`); err != nil {
		return 0, err
	}
	if _, err := conn.Exec(`CREATE TABLE frequency (term TEXT, rank INTEGER)`); err != nil {
		return 0, fmt.Errorf("init schema: %w", err)
	}

	var names []string
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		if termMetaBankRe.MatchString(f.Name) {
			names = append(names, f.Name)
			files[f.Name] = f
		}
	}
	sort.Strings(names)

	ranks := make(map[string]int)
	for _, name := range names {
		if err := readBank(files[name], ranks); err != nil {
			return 0, fmt.Errorf("index %s: %w", name, err)
		}
	}

	bw := db.NewBatchWriter(conn, 2000, 500*time.Millisecond)
	for term, rank := range ranks {
		t, r := term, rank
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO frequency (term, rank) VALUES (?, ?)`, t, r)
			return err
		})
		if err != nil {
			_ = bw.Close()
			return 0, err
		}
	}
	if err := bw.Close(); err != nil {
		return 0, err
	}

	if _, err := conn.Exec(`CREATE INDEX idx_term_freq ON frequency (term)`); err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}
	return len(ranks), nil
}

// readBank parses one term_meta_bank file. Entries are triples of
// [term, "freq", meta]; meta carries the rank either directly, under
// "value", or nested under "frequency".
func readBank(f *zip.File, ranks map[string]int) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	for _, raw := range entries {
		var entry []json.RawMessage
		if err := json.Unmarshal(raw, &entry); err != nil || len(entry) < 3 {
			continue
		}
		var term, entryType string
		if json.Unmarshal(entry[0], &term) != nil || json.Unmarshal(entry[1], &entryType) != nil {
			continue
		}
		if entryType != "freq" {
			continue
		}
		rank, ok := extractRank(entry[2])
		if !ok {
			continue
		}
		if prev, seen := ranks[term]; !seen || rank < prev {
			ranks[term] = rank
		}
	}
	return nil
}

func extractRank(raw json.RawMessage) (int, bool) {
	// Bare number.
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), true
	}

	var meta struct {
		Value     *float64        `json:"value"`
		Frequency json.RawMessage `json:"frequency"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, false
	}
	if len(meta.Frequency) > 0 {
		if r, ok := extractRank(meta.Frequency); ok {
			return r, true
		}
	}
	if meta.Value != nil {
		return int(*meta.Value), true
	}
	return 0, false
}
