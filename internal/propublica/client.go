// Package propublica is a thin client for the ProPublica Nonprofit
// Explorer API, the filings source for OPO financial data. Calls are issued
// one at a time with a fixed pause between them; the pause is a rate-limit
// contract with the publisher, not a concurrency primitive.
package propublica

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "opodata/internal/errors"
)

// Client accesses the nonprofit-filings search and fetch endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a filings API client. requestDelay is the fixed
// inter-request pause; zero disables pacing (tests).
func NewClient(baseURL string, requestDelay time.Duration, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With(slog.String("component", "propublica_client")),
	}
}

// Organization is one search result or fetched filer.
type Organization struct {
	EIN        json.Number `json:"ein"`
	Name       string      `json:"name"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	CareOfName string      `json:"careofname"`
}

// Filing is one year of filed figures for an organization.
type Filing struct {
	TaxPeriodYear       int      `json:"tax_prd_yr"`
	TotalRevenue        *float64 `json:"totrevenue"`
	TotalExpenses       *float64 `json:"totfuncexpns"`
	TotalAssetsEnd      *float64 `json:"totassetsend"`
	OfficerCompensation *float64 `json:"compnsatncurrofcr"`
}

type searchResponse struct {
	Organizations []Organization `json:"organizations"`
}

// OrganizationDetail is the full fetch response for one EIN.
type OrganizationDetail struct {
	Organization Organization `json:"organization"`
	Filings      []Filing     `json:"filings_with_data"`
}

// SearchOrganizations runs a fuzzy name search and returns the candidate
// filers in API ranking order.
func (c *Client) SearchOrganizations(ctx context.Context, query string) ([]Organization, error) {
	u := fmt.Sprintf("%s/search.json?q=%s", c.baseURL, url.QueryEscape(query))

	var resp searchResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, apperrors.NewNetworkError("filings search failed", err).
			WithContext("query", query)
	}

	c.logger.DebugContext(ctx, "filings search complete",
		slog.String("query", query),
		slog.Int("candidates", len(resp.Organizations)))

	return resp.Organizations, nil
}

// Organization fetches the filer and its filings history for one EIN.
func (c *Client) Organization(ctx context.Context, ein string) (*OrganizationDetail, error) {
	u := fmt.Sprintf("%s/organizations/%s.json", c.baseURL, url.PathEscape(ein))

	var detail OrganizationDetail
	if err := c.get(ctx, u, &detail); err != nil {
		return nil, apperrors.NewNetworkError("filings fetch failed", err).
			WithContext("ein", ein)
	}

	return &detail, nil
}

// get issues one paced GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// LatestFiling returns the filing with the most recent tax period year, or
// nil when the organization has no usable filings.
func (d *OrganizationDetail) LatestFiling() *Filing {
	var latest *Filing
	for i := range d.Filings {
		f := &d.Filings[i]
		if latest == nil || f.TaxPeriodYear > latest.TaxPeriodYear {
			latest = f
		}
	}
	return latest
}
