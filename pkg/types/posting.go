// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RawPosting is a posting as fetched from a source platform, before
// validation, classification, or standardization. Date fields stay as
// source strings; parsing happens in the orchestrator so a malformed date
// costs only that field, not the record.
type RawPosting struct {
	SolicitationNumber string `json:"solicitation_number" yaml:"solicitation_number"`
	Title              string `json:"title" yaml:"title"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`

	PostedDate       string `json:"posted_date,omitempty" yaml:"posted_date,omitempty"`
	ResponseDeadline string `json:"response_deadline,omitempty" yaml:"response_deadline,omitempty"`
	AwardDate        string `json:"award_date,omitempty" yaml:"award_date,omitempty"`

	Agency       string `json:"agency,omitempty" yaml:"agency,omitempty"`
	Office       string `json:"office,omitempty" yaml:"office,omitempty"`
	ContactName  string `json:"contact_name,omitempty" yaml:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty" yaml:"contact_phone,omitempty"`

	ClassificationCode string `json:"classification_code,omitempty" yaml:"classification_code,omitempty"`
	NAICSCode          string `json:"naics_code,omitempty" yaml:"naics_code,omitempty"`
	NSN                string `json:"nsn,omitempty" yaml:"nsn,omitempty"`
	FSC                string `json:"fsc,omitempty" yaml:"fsc,omitempty"`
	SIN                string `json:"sin,omitempty" yaml:"sin,omitempty"`

	NoticeType string `json:"notice_type,omitempty" yaml:"notice_type,omitempty"`
	SetAside   string `json:"set_aside,omitempty" yaml:"set_aside,omitempty"`

	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	SourceID  string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
}

// FetchFilters bounds a connector fetch: a posted-date window, optional
// classification codes and notice types, and the page size for paginated
// sources.
type FetchFilters struct {
	DateFrom time.Time `json:"date_from" yaml:"date_from"`
	DateTo   time.Time `json:"date_to" yaml:"date_to"`

	// ClassificationCodes restricts results to these PSC codes when the
	// source supports server-side filtering.
	ClassificationCodes []string `json:"classification_codes,omitempty" yaml:"classification_codes,omitempty"`

	// NoticeTypes are source notice-type codes (SAM.gov: "o" solicitation,
	// "k" combined synopsis/solicitation).
	NoticeTypes []string `json:"notice_types,omitempty" yaml:"notice_types,omitempty"`

	PageSize int `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}
