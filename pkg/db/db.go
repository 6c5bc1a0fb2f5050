// Package db opens the sqlite files backing the dictionary and frequency
// stores and provides a batched transaction writer used while indexing them.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenRead opens an existing sqlite database with read-optimised pragmas.
func OpenRead(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-32000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	return conn, nil
}

// OpenWrite opens a sqlite database with write-optimised pragmas for bulk
// indexing. Durability is relaxed; the index can always be rebuilt from the
// source archive.
func OpenWrite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=OFF",
		"PRAGMA cache_size=-64000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	return conn, nil
}
