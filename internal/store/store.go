// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists opportunities, collection runs, and the PSC
// reference table in SQLite.
// Implements: prd001-collection (R4, R5);
//
//	prd004-deduplication (R3);
//	docs/ARCHITECTURE § Storage.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "opportunities.db"

// Store manages the opportunity SQLite database.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewStore opens or creates the opportunity database at
// dataDir/opportunities.db, creating the schema if it does not exist.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BeginTx, so concurrent
	// collectors queue on the busy handler instead of failing mid-upsert.
	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS opportunities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			solicitation_number TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT,
			posted_date TEXT,
			response_deadline TEXT,
			award_date TEXT,
			agency TEXT,
			office TEXT,
			contact_name TEXT,
			contact_email TEXT,
			contact_phone TEXT,
			psc_code TEXT,
			psc_name TEXT,
			naics_code TEXT,
			naics_name TEXT,
			nsn TEXT,
			fsc TEXT,
			sin TEXT,
			opportunity_type TEXT,
			set_aside TEXT,
			contract_value REAL,
			place_of_performance TEXT,
			source_platform TEXT NOT NULL,
			source_url TEXT,
			source_id TEXT,
			is_product_related INTEGER NOT NULL DEFAULT 0,
			matched_keywords TEXT,
			relevance_score REAL,
			status TEXT NOT NULL DEFAULT 'active',
			is_duplicate INTEGER NOT NULL DEFAULT 0,
			master_id INTEGER REFERENCES opportunities(id),
			duplicate_info TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			last_sync_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_posted_date ON opportunities(posted_date)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_platform ON opportunities(source_platform)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_dedupe ON opportunities(is_duplicate, status)`,
		`CREATE TABLE IF NOT EXISTS collection_runs (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			status TEXT NOT NULL,
			total_fetched INTEGER NOT NULL DEFAULT 0,
			new_records INTEGER NOT NULL DEFAULT 0,
			updated_records INTEGER NOT NULL DEFAULT 0,
			duplicates_found INTEGER NOT NULL DEFAULT 0,
			errors_count INTEGER NOT NULL DEFAULT 0,
			error_messages TEXT,
			filters_applied TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			processing_seconds REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_platform ON collection_runs(platform, started_at)`,
		`CREATE TABLE IF NOT EXISTS psc_codes (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			full_name TEXT,
			parent_code TEXT,
			is_product_code INTEGER NOT NULL DEFAULT 0,
			keywords TEXT,
			status TEXT NOT NULL DEFAULT 'active'
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	return nil
}
