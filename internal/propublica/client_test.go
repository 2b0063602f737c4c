package propublica

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0, 5*time.Second, slog.Default())
}

func TestSearchOrganizations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "gift of hope", r.URL.Query().Get("q"))
		w.Write([]byte(`{"organizations":[
			{"ein":362883000,"name":"Gift of Hope Organ & Tissue Donor Network","city":"Itasca","state":"IL"},
			{"ein":111111111,"name":"Gift of Hope Foundation"}
		]}`))
	})

	orgs, err := client.SearchOrganizations(context.Background(), "gift of hope")
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "Gift of Hope Organ & Tissue Donor Network", orgs[0].Name)
	assert.Equal(t, "362883000", orgs[0].EIN.String())
}

func TestOrganization(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/362883000.json", r.URL.Path)
		w.Write([]byte(`{
			"organization":{"ein":362883000,"name":"Gift of Hope","careofname":"Jane Doe"},
			"filings_with_data":[
				{"tax_prd_yr":2019,"totrevenue":80000000,"totfuncexpns":70000000},
				{"tax_prd_yr":2021,"totrevenue":95000000,"totfuncexpns":88000000,"totassetsend":120000000,"compnsatncurrofcr":610000},
				{"tax_prd_yr":2020,"totrevenue":90000000}
			]
		}`))
	})

	detail, err := client.Organization(context.Background(), "362883000")
	require.NoError(t, err)
	assert.Equal(t, "Gift of Hope", detail.Organization.Name)
	require.Len(t, detail.Filings, 3)

	latest := detail.LatestFiling()
	require.NotNil(t, latest)
	assert.Equal(t, 2021, latest.TaxPeriodYear)
	require.NotNil(t, latest.TotalRevenue)
	assert.InDelta(t, 95000000, *latest.TotalRevenue, 0.1)
	require.NotNil(t, latest.OfficerCompensation)
	assert.InDelta(t, 610000, *latest.OfficerCompensation, 0.1)
}

func TestLatestFilingEmpty(t *testing.T) {
	detail := &OrganizationDetail{}
	assert.Nil(t, detail.LatestFiling())
}

func TestNonOKStatusIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.SearchOrganizations(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRequestPacing(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"organizations":[]}`))
	}))
	defer srv.Close()

	delay := 50 * time.Millisecond
	client := NewClient(srv.URL, delay, 5*time.Second, slog.Default())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.SearchOrganizations(context.Background(), "q")
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Equal(t, 3, calls)
	// First call is immediate; the next two each wait out the fixed delay.
	assert.GreaterOrEqual(t, elapsed, 2*delay)
}
