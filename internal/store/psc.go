// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// SeedPSCCodes loads Product Service Code reference entries from a YAML
// file and upserts them into the psc_codes table. The file holds a list
// of PSCCode entries.
func (s *Store) SeedPSCCodes(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PSC seed file %s: %w", path, err)
	}

	var codes []types.PSCCode
	if err := yaml.Unmarshal(data, &codes); err != nil {
		return 0, fmt.Errorf("parsing PSC seed file %s: %w", path, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO psc_codes (code, name, full_name, parent_code, is_product_code, keywords, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
			name=excluded.name, full_name=excluded.full_name,
			parent_code=excluded.parent_code, is_product_code=excluded.is_product_code,
			keywords=excluded.keywords, status=excluded.status`)
	if err != nil {
		return 0, fmt.Errorf("preparing PSC upsert: %w", err)
	}
	defer stmt.Close()

	for _, code := range codes {
		status := code.Status
		if status == "" {
			status = "active"
		}
		keywordsJSON, _ := json.Marshal(code.Keywords)
		if _, err := stmt.ExecContext(ctx,
			code.Code, code.Name, code.FullName, code.ParentCode,
			code.IsProductCode, string(keywordsJSON), status,
		); err != nil {
			return 0, fmt.Errorf("upserting PSC code %s: %w", code.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(codes), nil
}

// LookupPSC returns the reference entry for code, or nil when the table
// has no such code.
func (s *Store) LookupPSC(ctx context.Context, code string) (*types.PSCCode, error) {
	var entry types.PSCCode
	var fullName, parentCode, keywordsJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, full_name, parent_code, is_product_code, keywords, status
		 FROM psc_codes WHERE code = ?`, code,
	).Scan(&entry.Code, &entry.Name, &fullName, &parentCode,
		&entry.IsProductCode, &keywordsJSON, &entry.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up PSC code %s: %w", code, err)
	}

	entry.FullName = fullName.String
	entry.ParentCode = parentCode.String
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		_ = json.Unmarshal([]byte(keywordsJSON.String), &entry.Keywords)
	}
	return &entry, nil
}

// ProductPSCCodes returns all active product-class codes, ordered by code.
func (s *Store) ProductPSCCodes(ctx context.Context) ([]types.PSCCode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, full_name, parent_code, is_product_code, keywords, status
		 FROM psc_codes
		 WHERE is_product_code = 1 AND status = 'active'
		 ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("querying product PSC codes: %w", err)
	}
	defer rows.Close()

	var out []types.PSCCode
	for rows.Next() {
		var entry types.PSCCode
		var fullName, parentCode, keywordsJSON sql.NullString
		if err := rows.Scan(&entry.Code, &entry.Name, &fullName, &parentCode,
			&entry.IsProductCode, &keywordsJSON, &entry.Status); err != nil {
			return nil, fmt.Errorf("scanning PSC code: %w", err)
		}
		entry.FullName = fullName.String
		entry.ParentCode = parentCode.String
		if keywordsJSON.Valid && keywordsJSON.String != "" {
			_ = json.Unmarshal([]byte(keywordsJSON.String), &entry.Keywords)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
