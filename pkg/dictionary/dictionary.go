// Package dictionary is the sqlite-backed dictionary store: definition HTML
// keyed by (term, reading), canonical readings per term, and a batchable
// existence check. The store is built once from a JMdict-simplified JSON file
// by the importer and opened read-only afterwards.
package dictionary

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shiromaru/tangomine/pkg/db"
	"github.com/shiromaru/tangomine/pkg/kana"
)

// Store wraps the dictionary sqlite database. Safe for concurrent reads.
type Store struct {
	conn *sql.DB
}

// Open opens an indexed dictionary database.
func Open(path string) (*Store, error) {
	conn, err := db.OpenRead(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Len returns the number of indexed (term, reading) rows.
func (s *Store) Len() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// Lookup returns the definition HTML for (term, reading). When no row matches
// that exact reading it falls back to any entry for the term; a word that is
// in the dictionary under a different reading still gets a definition.
// Returns "" when the term is unknown.
func (s *Store) Lookup(term, reading string) (string, error) {
	reading = kana.ToHiragana(reading)
	var def string
	err := s.conn.QueryRow(
		`SELECT definition FROM entries WHERE term = ? AND reading = ? LIMIT 1`,
		term, reading,
	).Scan(&def)
	if err == sql.ErrNoRows {
		err = s.conn.QueryRow(
			`SELECT definition FROM entries WHERE term = ? LIMIT 1`, term,
		).Scan(&def)
	}
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", term, err)
	}
	return def, nil
}

// Readings returns every reading recorded for term, hiragana-normalized, in
// rowid order so the importer's encounter order is preserved.
func (s *Store) Readings(term string) ([]string, error) {
	rows, err := s.conn.Query(
		`SELECT DISTINCT reading FROM entries WHERE term = ? ORDER BY rowid`, term,
	)
	if err != nil {
		return nil, fmt.Errorf("readings %s: %w", term, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExistBatch reports which of the given terms have at least one entry.
func (s *Store) ExistBatch(terms []string) (map[string]bool, error) {
	exists := make(map[string]bool, len(terms))
	const chunk = 500
	for i := 0; i < len(terms); i += chunk {
		end := i + chunk
		if end > len(terms) {
			end = len(terms)
		}
		part := terms[i:end]

		placeholders := strings.Repeat("?,", len(part))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]interface{}, len(part))
		for j, t := range part {
			args[j] = t
		}

		rows, err := s.conn.Query(
			`SELECT DISTINCT term FROM entries WHERE term IN (`+placeholders+`)`, args...,
		)
		if err != nil {
			return nil, fmt.Errorf("exist batch: %w", err)
		}
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				rows.Close()
				return nil, err
			}
			exists[t] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return exists, nil
}
