// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/opportunity-engine/internal/dedupe"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// ErrNotFound reports a lookup that matched no rows.
var ErrNotFound = errors.New("opportunity not found")

const opportunityColumns = `id, solicitation_number, title, description,
	posted_date, response_deadline, award_date,
	agency, office, contact_name, contact_email, contact_phone,
	psc_code, psc_name, naics_code, naics_name, nsn, fsc, sin,
	opportunity_type, set_aside, contract_value, place_of_performance,
	source_platform, source_url, source_id,
	is_product_related, matched_keywords, relevance_score,
	status, is_duplicate, master_id, duplicate_info,
	created_at, updated_at, last_sync_at`

// Upsert inserts op keyed by solicitation number. A new record gets all
// fields written; a re-observed record only refreshes last_sync_at, so
// standardization and duplicate markings survive re-collection. A lost
// insert race on the natural key counts as re-observed. Reports whether
// the record was new, and backfills op.ID either way.
func (s *Store) Upsert(ctx context.Context, op *types.Opportunity) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM opportunities WHERE solicitation_number = ?`,
		op.SolicitationNumber,
	).Scan(&existingID)

	switch {
	case err == nil:
		if err := refreshSync(ctx, tx, existingID, nowStr); err != nil {
			return false, fmt.Errorf("refreshing sync time for %s: %w", op.SolicitationNumber, err)
		}
		op.ID = existingID
		op.LastSyncAt = &now
		return false, tx.Commit()

	case errors.Is(err, sql.ErrNoRows):
		// Fall through to insert.

	default:
		return false, fmt.Errorf("looking up %s: %w", op.SolicitationNumber, err)
	}

	keywordsJSON, _ := json.Marshal(op.MatchedKeywords)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO opportunities (
			solicitation_number, title, description,
			posted_date, response_deadline, award_date,
			agency, office, contact_name, contact_email, contact_phone,
			psc_code, psc_name, naics_code, naics_name, nsn, fsc, sin,
			opportunity_type, set_aside, contract_value, place_of_performance,
			source_platform, source_url, source_id,
			is_product_related, matched_keywords, relevance_score,
			status, is_duplicate, created_at, updated_at, last_sync_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		op.SolicitationNumber, op.Title, op.Description,
		timeOrNull(op.PostedDate), timeOrNull(op.ResponseDeadline), timeOrNull(op.AwardDate),
		op.Agency, op.Office, op.ContactName, op.ContactEmail, op.ContactPhone,
		op.PSCCode, op.PSCName, op.NAICSCode, op.NAICSName, op.NSN, op.FSC, op.SIN,
		op.OpportunityType, op.SetAside, op.ContractValue, op.PlaceOfPerformance,
		op.SourcePlatform, op.SourceURL, op.SourceID,
		op.IsProductRelated, string(keywordsJSON), op.RelevanceScore,
		string(statusOrActive(op.Status)), nowStr, nowStr, nowStr,
	)
	if isUniqueConstraint(err) {
		// Lost an insert race on the natural key: another collector wrote
		// the same solicitation number between our lookup and insert. The
		// record exists now, so take the refresh-only path.
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM opportunities WHERE solicitation_number = ?`,
			op.SolicitationNumber,
		).Scan(&existingID); err != nil {
			return false, fmt.Errorf("looking up %s after insert conflict: %w", op.SolicitationNumber, err)
		}
		if err := refreshSync(ctx, tx, existingID, nowStr); err != nil {
			return false, fmt.Errorf("refreshing sync time for %s: %w", op.SolicitationNumber, err)
		}
		op.ID = existingID
		op.LastSyncAt = &now
		return false, tx.Commit()
	}
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", op.SolicitationNumber, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("reading new row id: %w", err)
	}
	op.ID = id
	op.CreatedAt = now
	op.UpdatedAt = now
	op.LastSyncAt = &now

	return true, tx.Commit()
}

func refreshSync(ctx context.Context, tx *sql.Tx, id int64, nowStr string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE opportunities SET last_sync_at = ? WHERE id = ?`,
		nowStr, id,
	)
	return err
}

// isUniqueConstraint reports whether err is a SQLite unique-constraint
// violation, the signature of two connectors racing on one key.
func isUniqueConstraint(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Get returns the opportunity with the given row ID.
func (s *Store) Get(ctx context.Context, id int64) (*types.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = ?`, id)
	op, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity %d: %w", id, ErrNotFound)
	}
	return op, err
}

// GetByKey returns the opportunity with the given solicitation number.
func (s *Store) GetByKey(ctx context.Context, key string) (*types.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE solicitation_number = ?`, key)
	op, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity %s: %w", key, ErrNotFound)
	}
	return op, err
}

// RecentNonDuplicates returns up to limit non-duplicate active records
// created after cutoff, newest-first. This is the target set for a
// deduplication batch.
func (s *Store) RecentNonDuplicates(ctx context.Context, limit int, cutoff time.Time) ([]types.Opportunity, error) {
	query := s.sb.Select(opportunityColumns).
		From("opportunities").
		Where(sq.Eq{"is_duplicate": 0, "status": string(types.StatusActive)}).
		Where(sq.GtOrEq{"created_at": cutoff.UTC().Format(time.RFC3339)}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	return s.queryOpportunities(ctx, query)
}

// CandidatesInWindow returns non-duplicate active records whose posted
// date falls within windowDays of the target's, pre-filtered to records
// sharing the target's agency or classification code, capped at cap
// rows. The target itself is excluded.
func (s *Store) CandidatesInWindow(ctx context.Context, target *types.Opportunity, windowDays, cap int) ([]types.Opportunity, error) {
	query := s.sb.Select(opportunityColumns).
		From("opportunities").
		Where(sq.Eq{"is_duplicate": 0, "status": string(types.StatusActive)}).
		Where(sq.NotEq{"id": target.ID}).
		Limit(uint64(cap))

	if target.PostedDate != nil {
		window := time.Duration(windowDays) * 24 * time.Hour
		query = query.Where(sq.And{
			sq.GtOrEq{"posted_date": target.PostedDate.Add(-window).UTC().Format(time.RFC3339)},
			sq.LtOrEq{"posted_date": target.PostedDate.Add(window).UTC().Format(time.RFC3339)},
		})
	}

	// Narrow the scan to plausible pairs; the scorer makes the real call.
	var prefilter sq.Or
	if target.Agency != "" {
		prefilter = append(prefilter, sq.Like{"agency": "%" + target.Agency + "%"})
	}
	if target.PSCCode != "" {
		prefilter = append(prefilter, sq.Eq{"psc_code": target.PSCCode})
	}
	if len(prefilter) > 0 {
		query = query.Where(prefilter)
	}

	return s.queryOpportunities(ctx, query)
}

// MarkDuplicate links the record dupID to masterID with an audit trail.
// It re-checks both rows inside the transaction so concurrent or stale
// callers cannot create double markings or duplicate chains: marking an
// already-marked record fails with dedupe.ErrAlreadyDuplicate, demoting
// a record that other duplicates point at fails with
// dedupe.ErrRecordIsMaster, and pointing at a master that is itself a
// duplicate fails with dedupe.ErrMasterIsDuplicate.
func (s *Store) MarkDuplicate(ctx context.Context, dupID, masterID int64, score float64, masterKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var dupIsDup bool
	if err := tx.QueryRowContext(ctx,
		`SELECT is_duplicate FROM opportunities WHERE id = ?`, dupID,
	).Scan(&dupIsDup); err != nil {
		return fmt.Errorf("checking record %d: %w", dupID, err)
	}
	if dupIsDup {
		return dedupe.ErrAlreadyDuplicate
	}

	var hasChildren bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM opportunities WHERE master_id = ?)`, dupID,
	).Scan(&hasChildren); err != nil {
		return fmt.Errorf("checking children of %d: %w", dupID, err)
	}
	if hasChildren {
		return dedupe.ErrRecordIsMaster
	}

	var masterIsDup bool
	if err := tx.QueryRowContext(ctx,
		`SELECT is_duplicate FROM opportunities WHERE id = ?`, masterID,
	).Scan(&masterIsDup); err != nil {
		return fmt.Errorf("checking master %d: %w", masterID, err)
	}
	if masterIsDup {
		return dedupe.ErrMasterIsDuplicate
	}

	info := types.DuplicateInfo{
		SimilarityScore:          score,
		MarkedAt:                 time.Now().UTC(),
		MasterSolicitationNumber: masterKey,
	}
	infoJSON, _ := json.Marshal(info)

	_, err = tx.ExecContext(ctx,
		`UPDATE opportunities
		 SET is_duplicate = 1, master_id = ?, duplicate_info = ?, updated_at = ?
		 WHERE id = ?`,
		masterID, string(infoJSON), time.Now().UTC().Format(time.RFC3339), dupID,
	)
	if err != nil {
		return fmt.Errorf("marking %d duplicate of %d: %w", dupID, masterID, err)
	}

	return tx.Commit()
}

// ActiveBatch returns up to limit active non-duplicate records ordered
// by row ID, starting after afterID. Callers page through the table by
// passing the last seen ID.
func (s *Store) ActiveBatch(ctx context.Context, afterID int64, limit int) ([]types.Opportunity, error) {
	query := s.sb.Select(opportunityColumns).
		From("opportunities").
		Where(sq.Eq{"is_duplicate": 0, "status": string(types.StatusActive)}).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit))

	return s.queryOpportunities(ctx, query)
}

// SaveStandardized writes back the fields the standardization pass
// mutates.
func (s *Store) SaveStandardized(ctx context.Context, op *types.Opportunity) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE opportunities
		 SET title = ?, agency = ?, psc_code = ?, fsc = ?, updated_at = ?
		 WHERE id = ?`,
		op.Title, op.Agency, op.PSCCode, op.FSC,
		time.Now().UTC().Format(time.RFC3339), op.ID,
	)
	if err != nil {
		return fmt.Errorf("saving standardized fields for %s: %w", op.SolicitationNumber, err)
	}
	return nil
}

// DeleteInactiveBefore removes closed, awarded, and cancelled records
// last updated before cutoff. Records still referenced as a duplicate
// master are kept so audit links stay resolvable.
func (s *Store) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM opportunities
		 WHERE status != ? AND updated_at < ?
		   AND id NOT IN (SELECT master_id FROM opportunities WHERE master_id IS NOT NULL)`,
		string(types.StatusActive), cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting inactive records: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the opportunity table for status reporting.
type Stats struct {
	Total          int
	Active         int
	Duplicates     int
	ProductRelated int
	ByPlatform     map[string]int
}

// Stats counts records overall and per source platform.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByPlatform: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
			coalesce(sum(status = 'active'), 0),
			coalesce(sum(is_duplicate), 0),
			coalesce(sum(is_product_related), 0)
		 FROM opportunities`,
	).Scan(&stats.Total, &stats.Active, &stats.Duplicates, &stats.ProductRelated)
	if err != nil {
		return Stats{}, fmt.Errorf("counting opportunities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_platform, count(*) FROM opportunities GROUP BY source_platform`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting by platform: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning platform count: %w", err)
		}
		stats.ByPlatform[platform] = n
	}
	return stats, rows.Err()
}

func (s *Store) queryOpportunities(ctx context.Context, query sq.SelectBuilder) ([]types.Opportunity, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var out []types.Opportunity
	for rows.Next() {
		op, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (*types.Opportunity, error) {
	var op types.Opportunity
	var (
		description, agency, office, contactName, contactEmail, contactPhone sql.NullString
		pscCode, pscName, naicsCode, naicsName, nsn, fsc, sin                sql.NullString
		oppType, setAside, placeOfPerf, sourceURL, sourceID                  sql.NullString
		postedDate, responseDeadline, awardDate, lastSyncAt                  sql.NullString
		keywordsJSON, infoJSON                                               sql.NullString
		contractValue, relevanceScore                                        sql.NullFloat64
		masterID                                                             sql.NullInt64
		status, createdAt, updatedAt                                         string
	)

	err := row.Scan(
		&op.ID, &op.SolicitationNumber, &op.Title, &description,
		&postedDate, &responseDeadline, &awardDate,
		&agency, &office, &contactName, &contactEmail, &contactPhone,
		&pscCode, &pscName, &naicsCode, &naicsName, &nsn, &fsc, &sin,
		&oppType, &setAside, &contractValue, &placeOfPerf,
		&op.SourcePlatform, &sourceURL, &sourceID,
		&op.IsProductRelated, &keywordsJSON, &relevanceScore,
		&status, &op.IsDuplicate, &masterID, &infoJSON,
		&createdAt, &updatedAt, &lastSyncAt,
	)
	if err != nil {
		return nil, err
	}

	op.Description = description.String
	op.Agency = agency.String
	op.Office = office.String
	op.ContactName = contactName.String
	op.ContactEmail = contactEmail.String
	op.ContactPhone = contactPhone.String
	op.PSCCode = pscCode.String
	op.PSCName = pscName.String
	op.NAICSCode = naicsCode.String
	op.NAICSName = naicsName.String
	op.NSN = nsn.String
	op.FSC = fsc.String
	op.SIN = sin.String
	op.OpportunityType = oppType.String
	op.SetAside = setAside.String
	op.ContractValue = contractValue.Float64
	op.PlaceOfPerformance = placeOfPerf.String
	op.SourceURL = sourceURL.String
	op.SourceID = sourceID.String
	op.RelevanceScore = relevanceScore.Float64
	op.Status = types.OpportunityStatus(status)

	op.PostedDate = parseTimePtr(postedDate)
	op.ResponseDeadline = parseTimePtr(responseDeadline)
	op.AwardDate = parseTimePtr(awardDate)
	op.LastSyncAt = parseTimePtr(lastSyncAt)
	op.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	op.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if masterID.Valid {
		op.MasterID = &masterID.Int64
	}
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		_ = json.Unmarshal([]byte(keywordsJSON.String), &op.MatchedKeywords)
	}
	if infoJSON.Valid && infoJSON.String != "" {
		var info types.DuplicateInfo
		if json.Unmarshal([]byte(infoJSON.String), &info) == nil {
			op.DuplicateInfo = &info
		}
	}

	return &op, nil
}

func timeOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func statusOrActive(status types.OpportunityStatus) types.OpportunityStatus {
	if status == "" {
		return types.StatusActive
	}
	return status
}
