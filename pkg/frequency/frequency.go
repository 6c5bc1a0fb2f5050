// Package frequency is the sqlite-backed word popularity store built from a
// Yomitan frequency dictionary zip. Lower rank means more common; terms the
// dictionary does not know get RankUnknown.
package frequency

import (
	"database/sql"

	"github.com/shiromaru/tangomine/pkg/db"
)

// RankUnknown is the sentinel rank for terms absent from the store.
const RankUnknown = 999999

// Store wraps the frequency sqlite database. Safe for concurrent reads.
type Store struct {
	conn *sql.DB
}

// Open opens an indexed frequency database.
func Open(path string) (*Store, error) {
	conn, err := db.OpenRead(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Len returns the number of indexed terms.
func (s *Store) Len() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM frequency`).Scan(&n)
	return n, err
}

// Rank returns the popularity rank of term, or RankUnknown when absent.
// A nil store behaves as an empty one so a missing frequency dictionary
// degrades instead of crashing the scan.
func (s *Store) Rank(term string) int {
	if s == nil {
		return RankUnknown
	}
	var rank int
	err := s.conn.QueryRow(`SELECT rank FROM frequency WHERE term = ?`, term).Scan(&rank)
	if err != nil {
		return RankUnknown
	}
	return rank
}

// BestReading returns the candidate with the lowest rank. Candidates absent
// from the store never win; ok is false when none of them is known.
func (s *Store) BestReading(candidates []string) (string, bool) {
	if s == nil {
		return "", false
	}
	best := ""
	bestRank := RankUnknown
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if r := s.Rank(c); r < bestRank {
			best, bestRank = c, r
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
