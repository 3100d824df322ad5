// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"net/http"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// NewGSAEBuyConnector builds the GSA eBuy connector. GSA postings are
// served through the SAM.gov opportunities API filtered to the GSA
// organization, so the connector is the SAM client with an org filter
// and its own platform identity (R2.2).
func NewGSAEBuyConnector(client *http.Client, cfg types.CollectConfig) *SAMConnector {
	return &SAMConnector{
		Client:    client,
		APIKey:    cfg.SAMAPIKey,
		UserAgent: cfg.UserAgent,
		OrgFilter: "GENERAL SERVICES ADMINISTRATION",
		platform:  "GSA_EBUY",
	}
}
