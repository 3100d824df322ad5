// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the opportunity-engine pipeline.
// Implements: prd001-collection (Opportunity, RawPosting, CollectionRun);
//
//	prd002-classification (PSCCode);
//	prd004-deduplication (DuplicateInfo).
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import "time"

// OpportunityStatus tracks the lifecycle of a posting.
type OpportunityStatus string

const (
	StatusActive    OpportunityStatus = "active"
	StatusClosed    OpportunityStatus = "closed"
	StatusAwarded   OpportunityStatus = "awarded"
	StatusCancelled OpportunityStatus = "cancelled"
)

// Opportunity is the canonical procurement posting, normalized across source
// platforms. The solicitation number is the natural key: unique across all
// non-duplicate records and immutable once assigned.
type Opportunity struct {
	// ID is the storage row identifier, zero until persisted.
	ID int64 `json:"id" yaml:"id"`

	// SolicitationNumber is the source-provided solicitation identifier.
	SolicitationNumber string `json:"solicitation_number" yaml:"solicitation_number"`

	// Title is the posting title, possibly standardized after ingestion.
	Title string `json:"title" yaml:"title"`

	// Description is the full posting body text.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// PostedDate, ResponseDeadline, and AwardDate are nil when the source
	// omitted them or the value could not be parsed.
	PostedDate       *time.Time `json:"posted_date,omitempty" yaml:"posted_date,omitempty"`
	ResponseDeadline *time.Time `json:"response_deadline,omitempty" yaml:"response_deadline,omitempty"`
	AwardDate        *time.Time `json:"award_date,omitempty" yaml:"award_date,omitempty"`

	// Agency and office information.
	Agency       string `json:"agency,omitempty" yaml:"agency,omitempty"`
	Office       string `json:"office,omitempty" yaml:"office,omitempty"`
	ContactName  string `json:"contact_name,omitempty" yaml:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty" yaml:"contact_phone,omitempty"`

	// Classification codes. Each is an opaque code string validated per
	// taxonomy: PSC (SAM.gov), NAICS, NSN and FSC (DIBBS), SIN (GSA eBuy).
	PSCCode   string `json:"psc_code,omitempty" yaml:"psc_code,omitempty"`
	PSCName   string `json:"psc_name,omitempty" yaml:"psc_name,omitempty"`
	NAICSCode string `json:"naics_code,omitempty" yaml:"naics_code,omitempty"`
	NAICSName string `json:"naics_name,omitempty" yaml:"naics_name,omitempty"`
	NSN       string `json:"nsn,omitempty" yaml:"nsn,omitempty"`
	FSC       string `json:"fsc,omitempty" yaml:"fsc,omitempty"`
	SIN       string `json:"sin,omitempty" yaml:"sin,omitempty"`

	// Opportunity details.
	OpportunityType    string  `json:"opportunity_type,omitempty" yaml:"opportunity_type,omitempty"`
	SetAside           string  `json:"set_aside,omitempty" yaml:"set_aside,omitempty"`
	ContractValue      float64 `json:"contract_value,omitempty" yaml:"contract_value,omitempty"`
	PlaceOfPerformance string  `json:"place_of_performance,omitempty" yaml:"place_of_performance,omitempty"`

	// Source provenance.
	SourcePlatform string `json:"source_platform" yaml:"source_platform"`
	SourceURL      string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	SourceID       string `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// Derived classification results.
	IsProductRelated bool     `json:"is_product_related" yaml:"is_product_related"`
	MatchedKeywords  []string `json:"matched_keywords,omitempty" yaml:"matched_keywords,omitempty"`
	RelevanceScore   float64  `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// Duplicate bookkeeping. MasterID is a weak reference by row ID; it is
	// set exactly when IsDuplicate is true and always points at a record
	// that is itself not a duplicate (no chains).
	Status      OpportunityStatus `json:"status" yaml:"status"`
	IsDuplicate bool              `json:"is_duplicate" yaml:"is_duplicate"`
	MasterID    *int64            `json:"master_id,omitempty" yaml:"master_id,omitempty"`

	// DuplicateInfo carries audit metadata written when the record is
	// marked as a duplicate of another.
	DuplicateInfo *DuplicateInfo `json:"duplicate_info,omitempty" yaml:"duplicate_info,omitempty"`

	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty" yaml:"last_sync_at,omitempty"`
}

// DuplicateInfo is the audit trail attached to a record when it is marked
// as a duplicate.
type DuplicateInfo struct {
	// SimilarityScore is the score that triggered the duplicate marking.
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// MarkedAt is when the duplicate link was written.
	MarkedAt time.Time `json:"marked_at" yaml:"marked_at"`

	// MasterSolicitationNumber is the natural key of the elected master.
	MasterSolicitationNumber string `json:"master_solicitation_number" yaml:"master_solicitation_number"`
}

// PSCCode is a Product Service Code reference entry. The table is
// read-mostly: the pipeline consults it but never mutates it.
type PSCCode struct {
	Code          string   `json:"code" yaml:"code"`
	Name          string   `json:"name" yaml:"name"`
	FullName      string   `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	ParentCode    string   `json:"parent_code,omitempty" yaml:"parent_code,omitempty"`
	IsProductCode bool     `json:"is_product_code" yaml:"is_product_code"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Status        string   `json:"status" yaml:"status"`
}
