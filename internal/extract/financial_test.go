package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opodata/internal/propublica"
	"opodata/pkg/contracts/domain"
)

type fakeFilingsAPI struct {
	searchResults map[string][]propublica.Organization
	organizations map[string]*propublica.OrganizationDetail
	searchQueries []string
	fetchedEINs   []string
}

func (f *fakeFilingsAPI) SearchOrganizations(_ context.Context, query string) ([]propublica.Organization, error) {
	f.searchQueries = append(f.searchQueries, query)
	if f.searchResults == nil {
		return nil, nil
	}
	return f.searchResults[query], nil
}

func (f *fakeFilingsAPI) Organization(_ context.Context, ein string) (*propublica.OrganizationDetail, error) {
	f.fetchedEINs = append(f.fetchedEINs, ein)
	detail, ok := f.organizations[ein]
	if !ok {
		return nil, errors.New("not found")
	}
	return detail, nil
}

func name(s string) *string { return &s }

func detailWithFilings(orgName, careOf string, filings ...propublica.Filing) *propublica.OrganizationDetail {
	return &propublica.OrganizationDetail{
		Organization: propublica.Organization{Name: orgName, CareOfName: careOf},
		Filings:      filings,
	}
}

func TestFinancialExtract_CuratedTableWinsOverSearch(t *testing.T) {
	api := &fakeFilingsAPI{
		organizations: map[string]*propublica.OrganizationDetail{
			// ALOB's curated EIN.
			"630959585": detailWithFilings("LEGACY OF HOPE", "% JANE SMITH",
				propublica.Filing{TaxPeriodYear: 2021, TotalRevenue: fp(42000000), TotalExpenses: fp(39000000), TotalAssetsEnd: fp(61000000), OfficerCompensation: fp(510000)},
				propublica.Filing{TaxPeriodYear: 2019, TotalRevenue: fp(35000000)},
			),
		},
	}

	opos, err := NewFinancialExtractor(api, nil).Extract(context.Background(), []domain.OPO{
		{DSACode: "ALOB", Name: name("Legacy of Hope")},
	})
	require.NoError(t, err)
	require.Len(t, opos, 1)
	assert.Empty(t, api.searchQueries, "curated codes never hit search")

	got := opos[0]
	require.NotNil(t, got.EIN)
	assert.Equal(t, "630959585", *got.EIN)

	require.NotNil(t, got.Financials)
	assert.Equal(t, 42000000.0, *got.Financials.Revenue, "the most recent filing wins")
	assert.Equal(t, 39000000.0, *got.Financials.Expenses)
	assert.Equal(t, 61000000.0, *got.Financials.Assets)
	assert.Equal(t, 510000.0, *got.Financials.CEOCompensation)
	require.NotNil(t, got.Financials.OACPerOrgan, "curated acquisition cost rides along")
	assert.Equal(t, 34200.0, *got.Financials.OACPerOrgan)
	require.NotNil(t, got.Financials.TaxYear)
	assert.Equal(t, 2021, *got.Financials.TaxYear)

	require.NotNil(t, got.Leadership)
	require.NotNil(t, got.Leadership.CEO)
	assert.Equal(t, "JANE SMITH", *got.Leadership.CEO, "care-of prefix is stripped")
	require.NotNil(t, got.Leadership.BoardIndependenceDisclosed)
	assert.True(t, *got.Leadership.BoardIndependenceDisclosed)
}

func TestFinancialExtract_SearchPrefersNameMatch(t *testing.T) {
	api := &fakeFilingsAPI{
		searchResults: map[string][]propublica.Organization{
			"Center for Donation": {
				{EIN: json.Number("111111111"), Name: "UNRELATED FOUNDATION"},
				{EIN: json.Number("222222222"), Name: "CENTER FOR DONATION AND TRANSPLANT"},
			},
		},
		organizations: map[string]*propublica.OrganizationDetail{
			"222222222": detailWithFilings("CENTER FOR DONATION AND TRANSPLANT", "",
				propublica.Filing{TaxPeriodYear: 2020, TotalRevenue: fp(9000000)}),
		},
	}

	opos, err := NewFinancialExtractor(api, nil).Extract(context.Background(), []domain.OPO{
		{DSACode: "NEDS", Name: name("Center for Donation")},
	})
	require.NoError(t, err)
	require.Len(t, opos, 1)
	assert.Equal(t, []string{"222222222"}, api.fetchedEINs)
	assert.Nil(t, opos[0].Leadership, "no governance fields disclosed")
}

func TestFinancialExtract_SearchFallsBackToFirstResult(t *testing.T) {
	api := &fakeFilingsAPI{
		searchResults: map[string][]propublica.Organization{
			"Mid-America Transplant": {
				{EIN: json.Number("333333333"), Name: "SOMETHING ELSE ENTIRELY"},
				{EIN: json.Number("444444444"), Name: "ANOTHER NONPROFIT"},
			},
		},
		organizations: map[string]*propublica.OrganizationDetail{
			"333333333": detailWithFilings("SOMETHING ELSE ENTIRELY", "",
				propublica.Filing{TaxPeriodYear: 2021}),
		},
	}

	opos, err := NewFinancialExtractor(api, nil).Extract(context.Background(), []domain.OPO{
		{DSACode: "MOMA", Name: name("Mid-America Transplant")},
	})
	require.NoError(t, err)
	require.Len(t, opos, 1)
	assert.Equal(t, []string{"333333333"}, api.fetchedEINs)
}

func TestFinancialExtract_DropsRecordWithoutFilings(t *testing.T) {
	api := &fakeFilingsAPI{
		organizations: map[string]*propublica.OrganizationDetail{
			// AZOB's curated EIN resolves, but the filer has no filing data.
			"742187189": detailWithFilings("DONOR NETWORK OF ARIZONA", ""),
		},
	}

	opos, err := NewFinancialExtractor(api, nil).Extract(context.Background(), []domain.OPO{
		{DSACode: "AZOB", Name: name("Donor Network of Arizona")},
	})
	require.NoError(t, err)
	assert.Empty(t, opos)
}

func TestFinancialExtract_NoEINResolved(t *testing.T) {
	api := &fakeFilingsAPI{}

	opos, err := NewFinancialExtractor(api, nil).Extract(context.Background(), []domain.OPO{
		// Hospital-based OPO: no curated row, no search hits, no name at all.
		{DSACode: "PATF"},
		{DSACode: "VATB", Name: name("LifeNet Health")},
	})
	require.NoError(t, err)
	assert.Empty(t, opos)
	assert.Equal(t, []string{"LifeNet Health"}, api.searchQueries, "a record without a name never searches")
}

func TestCleanOfficerName(t *testing.T) {
	assert.Equal(t, "JANE SMITH", cleanOfficerName("% JANE SMITH"))
	assert.Equal(t, "JOHN DOE", cleanOfficerName("C/O JOHN DOE"))
	assert.Equal(t, "MARY MAJOR", cleanOfficerName("  MARY MAJOR  "))
	assert.Equal(t, "", cleanOfficerName(""))
}
