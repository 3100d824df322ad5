// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/opportunity-engine/internal/httputil"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// samAPIBase is the SAM.gov opportunities search endpoint. Declared as a
// var so tests can substitute an httptest server.
var samAPIBase = "https://api.sam.gov/opportunities/v2/search"

// samDateFormat is the MM/DD/YYYY format the SAM.gov API requires for
// postedFrom/postedTo.
const samDateFormat = "01/02/2006"

// SAMConnector fetches postings from the SAM.gov opportunities API (R2.1).
type SAMConnector struct {
	Client    *http.Client
	APIKey    string
	UserAgent string

	// OrgFilter restricts results to one organization type. The GSA eBuy
	// connector reuses this client with OrgFilter set.
	OrgFilter string

	platform string
}

// NewSAMConnector builds the SAM.gov connector.
func NewSAMConnector(client *http.Client, cfg types.CollectConfig) *SAMConnector {
	return &SAMConnector{
		Client:    client,
		APIKey:    cfg.SAMAPIKey,
		UserAgent: cfg.UserAgent,
		platform:  "SAM",
	}
}

// Platform returns the source platform identifier.
func (c *SAMConnector) Platform() string { return c.platform }

// Fetch pages through the SAM.gov API for the filter window and returns
// all postings. Pagination uses limit/offset against the reported total.
func (c *SAMConnector) Fetch(ctx context.Context, filters types.FetchFilters) ([]types.RawPosting, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("SAM.gov API key not configured")
	}

	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	var postings []types.RawPosting
	offset := 0

	for {
		page, total, err := c.fetchPage(ctx, filters, pageSize, offset)
		if err != nil {
			return nil, err
		}
		postings = append(postings, page...)

		offset += len(page)
		if offset >= total || len(page) == 0 {
			break
		}
	}

	return postings, nil
}

func (c *SAMConnector) fetchPage(ctx context.Context, filters types.FetchFilters, limit, offset int) ([]types.RawPosting, int, error) {
	params := url.Values{}
	params.Set("api_key", c.APIKey)
	params.Set("postedFrom", filters.DateFrom.Format(samDateFormat))
	params.Set("postedTo", filters.DateTo.Format(samDateFormat))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if len(filters.NoticeTypes) > 0 {
		params.Set("ptype", strings.Join(filters.NoticeTypes, ","))
	}
	if len(filters.ClassificationCodes) > 0 {
		params.Set("ccode", strings.Join(filters.ClassificationCodes, ","))
	}
	if c.OrgFilter != "" {
		params.Set("organizationName", c.OrgFilter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, samAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("SAM.gov API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("SAM.gov API returned HTTP %d", resp.StatusCode)
	}

	var payload samResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("parsing SAM.gov response: %w", err)
	}

	postings := make([]types.RawPosting, 0, len(payload.OpportunitiesData))
	for _, item := range payload.OpportunitiesData {
		postings = append(postings, item.toRawPosting())
	}
	return postings, payload.TotalRecords, nil
}

// samResponse mirrors the SAM.gov opportunities v2 search payload.
type samResponse struct {
	TotalRecords      int              `json:"totalRecords"`
	OpportunitiesData []samOpportunity `json:"opportunitiesData"`
}

type samOpportunity struct {
	NoticeID           string       `json:"noticeId"`
	SolicitationNumber string       `json:"solicitationNumber"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	FullParentPathName string       `json:"fullParentPathName"`
	PostedDate         string       `json:"postedDate"`
	ResponseDeadLine   string       `json:"responseDeadLine"`
	Type               string       `json:"type"`
	NAICSCode          string       `json:"naicsCode"`
	ClassificationCode string       `json:"classificationCode"`
	TypeOfSetAside     string       `json:"typeOfSetAside"`
	UILink             string       `json:"uiLink"`
	PointOfContact     []samContact `json:"pointOfContact"`
	OfficeAddress      *samOffice   `json:"officeAddress"`
}

type samContact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type samOffice struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// toRawPosting maps a SAM.gov payload item onto the platform-neutral
// posting. fullParentPathName is "AGENCY.SUB OFFICE.OFFICE"; the first
// segment is the agency, the last the office.
func (o samOpportunity) toRawPosting() types.RawPosting {
	raw := types.RawPosting{
		SolicitationNumber: o.SolicitationNumber,
		Title:              o.Title,
		Description:        o.Description,
		PostedDate:         o.PostedDate,
		ResponseDeadline:   o.ResponseDeadLine,
		ClassificationCode: o.ClassificationCode,
		NAICSCode:          o.NAICSCode,
		NoticeType:         o.Type,
		SetAside:           o.TypeOfSetAside,
		SourceURL:          o.UILink,
		SourceID:           o.NoticeID,
	}

	if o.FullParentPathName != "" {
		segments := strings.Split(o.FullParentPathName, ".")
		raw.Agency = strings.TrimSpace(segments[0])
		if len(segments) > 1 {
			raw.Office = strings.TrimSpace(segments[len(segments)-1])
		}
	}

	if len(o.PointOfContact) > 0 {
		raw.ContactName = o.PointOfContact[0].FullName
		raw.ContactEmail = o.PointOfContact[0].Email
		raw.ContactPhone = o.PointOfContact[0].Phone
	}

	return raw
}
