// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/opportunity-engine/internal/httputil"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// dibbsBaseURL is the DLA DIBBS RFQ listing page. Declared as a var so
// tests can substitute an httptest server.
var dibbsBaseURL = "https://www.dibbs.bsm.dla.mil/RFQ/RfqRecs.aspx"

// dibbsAgency is the agency attributed to every DIBBS posting; the
// listing page carries no agency column.
const dibbsAgency = "Defense Logistics Agency"

// DIBBSConnector scrapes the DLA DIBBS RFQ listing (R2.3). DIBBS has no
// JSON API; postings come from the HTML results table.
type DIBBSConnector struct {
	Client    *http.Client
	UserAgent string
}

// NewDIBBSConnector builds the DIBBS connector.
func NewDIBBSConnector(client *http.Client, cfg types.CollectConfig) *DIBBSConnector {
	return &DIBBSConnector{Client: client, UserAgent: cfg.UserAgent}
}

// Platform returns the source platform identifier.
func (c *DIBBSConnector) Platform() string { return "DIBBS" }

// Fetch downloads the RFQ listing page and extracts one posting per
// table row: solicitation number, NSN/FSC, nomenclature, posted and
// return-by dates.
func (c *DIBBSConnector) Fetch(ctx context.Context, filters types.FetchFilters) ([]types.RawPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dibbsBaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("DIBBS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DIBBS returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing DIBBS listing: %w", err)
	}

	var postings []types.RawPosting
	doc.Find("table.results tr, table#ctl00_cph1_grdRfqSearch tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return // header or spacer row
		}

		raw := types.RawPosting{
			SolicitationNumber: cellText(cells, 0),
			NSN:                cellText(cells, 1),
			Title:              cellText(cells, 2),
			PostedDate:         cellText(cells, 3),
			ResponseDeadline:   cellText(cells, 4),
			Agency:             dibbsAgency,
		}
		if raw.SolicitationNumber == "" {
			return
		}

		// The first four digits of an NSN are the FSC, which doubles as
		// the classification code for product-range checks.
		if len(raw.NSN) >= 4 {
			raw.FSC = raw.NSN[:4]
			raw.ClassificationCode = raw.FSC
		}

		if href, ok := row.Find("a").First().Attr("href"); ok {
			raw.SourceURL = resolveDIBBSLink(href)
		}
		raw.SourceID = raw.SolicitationNumber

		postings = append(postings, raw)
	})

	return postings, nil
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

func resolveDIBBSLink(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base := dibbsBaseURL[:strings.LastIndex(dibbsBaseURL, "/")+1]
	return base + strings.TrimPrefix(href, "/")
}
