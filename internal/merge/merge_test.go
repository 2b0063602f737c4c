package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opodata/pkg/contracts/domain"
)

func strp(s string) *string   { return &s }
func nump(f float64) *float64 { return &f }
func intp(i int) *int         { return &i }
func boolp(b bool) *bool      { return &b }

func TestMerge_EnrichmentWinsPerLeafField(t *testing.T) {
	base := []domain.OPO{{
		DSACode: "ALOB",
		Name:    strp("Alabama Organ Center"),
		Location: &domain.Location{
			City:  strp("Birmingham"),
			State: strp("AL"),
		},
		Metrics: &domain.Metrics{
			DonationRate: nump(30.1),
			Rank:         intp(12),
		},
	}}
	enr := Enrichments{
		HRSA: []domain.OPO{{
			DSACode: "ALOB",
			Metrics: &domain.Metrics{
				DonationRate: nump(33.7),
			},
		}},
	}

	result := NewEngine(nil).Merge(base, enr)
	require.Len(t, result.OPOs, 1)
	got := result.OPOs[0]

	// The supplied leaf is replaced; sibling leaves and untouched sections
	// keep their base values.
	require.NotNil(t, got.Metrics.DonationRate)
	assert.Equal(t, 33.7, *got.Metrics.DonationRate)
	require.NotNil(t, got.Metrics.Rank)
	assert.Equal(t, 12, *got.Metrics.Rank)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Alabama Organ Center", *got.Name)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Birmingham", *got.Location.City)
}

func TestMerge_NilEnrichmentLeafNeverErasesBase(t *testing.T) {
	base := []domain.OPO{{
		DSACode: "TXGC",
		Metrics: &domain.Metrics{ConversionRate: nump(71.5)},
	}}
	enr := Enrichments{
		SRTR: []domain.OPO{{
			DSACode: "TXGC",
			Metrics: &domain.Metrics{ObservedExpectedRatio: nump(0.94)},
		}},
	}

	result := NewEngine(nil).Merge(base, enr)
	got := result.OPOs[0]

	require.NotNil(t, got.Metrics.ConversionRate)
	assert.Equal(t, 71.5, *got.Metrics.ConversionRate)
	require.NotNil(t, got.Metrics.ObservedExpectedRatio)
	assert.Equal(t, 0.94, *got.Metrics.ObservedExpectedRatio)
}

func TestMerge_UnknownEnrichmentCodeIsDropped(t *testing.T) {
	base := []domain.OPO{{DSACode: "MNOP"}}
	enr := Enrichments{
		Propublica: []domain.OPO{
			{DSACode: "ZZZZ", EIN: strp("123456789")},
		},
	}

	result := NewEngine(nil).Merge(base, enr)

	require.Len(t, result.OPOs, 1)
	assert.Equal(t, "MNOP", result.OPOs[0].DSACode)
	assert.Equal(t, 0, result.Coverage[domain.SourcePropublica].Count)
}

func TestMerge_OutputSortedByDSACode(t *testing.T) {
	base := []domain.OPO{
		{DSACode: "TXGC"},
		{DSACode: "ALOB"},
		{DSACode: "MNOP"},
	}

	result := NewEngine(nil).Merge(base, Enrichments{})

	codes := make([]string, 0, len(result.OPOs))
	for _, opo := range result.OPOs {
		codes = append(codes, opo.DSACode)
	}
	assert.Equal(t, []string{"ALOB", "MNOP", "TXGC"}, codes)
}

func TestMerge_AssignsDeterministicOPOID(t *testing.T) {
	base := []domain.OPO{{DSACode: "NYRT"}}

	first := NewEngine(nil).Merge(base, Enrichments{})
	second := NewEngine(nil).Merge(base, Enrichments{})

	require.NotEmpty(t, first.OPOs[0].OPOID)
	assert.Equal(t, first.OPOs[0].OPOID, second.OPOs[0].OPOID)
}

func TestMerge_TransplantCentersReplaceWholesale(t *testing.T) {
	base := []domain.OPO{{
		DSACode: "FLWC",
		Relationships: &domain.Relationships{
			TransplantCenters: []domain.TransplantCenter{
				{Name: "Old General", Code: "OLDG"},
				{Name: "Old Memorial", Code: "OLDM"},
			},
		},
	}}
	enr := Enrichments{
		HRSA: []domain.OPO{{
			DSACode: "FLWC",
			Relationships: &domain.Relationships{
				TransplantCenters: []domain.TransplantCenter{
					{Name: "Tampa General", Code: "FLTG"},
				},
			},
		}},
	}

	result := NewEngine(nil).Merge(base, enr)
	got := result.OPOs[0]

	require.NotNil(t, got.Relationships)
	require.Len(t, got.Relationships.TransplantCenters, 1)
	assert.Equal(t, "FLTG", got.Relationships.TransplantCenters[0].Code)
}

func TestMerge_EmptyCenterListKeepsBaseAffiliations(t *testing.T) {
	base := []domain.OPO{{
		DSACode: "FLWC",
		Relationships: &domain.Relationships{
			TransplantCenters: []domain.TransplantCenter{{Name: "Tampa General", Code: "FLTG"}},
		},
	}}
	enr := Enrichments{
		HRSA: []domain.OPO{{DSACode: "FLWC", Metrics: &domain.Metrics{Rank: intp(3)}}},
	}

	result := NewEngine(nil).Merge(base, enr)
	got := result.OPOs[0]

	require.NotNil(t, got.Relationships)
	assert.Len(t, got.Relationships.TransplantCenters, 1)
}

func TestMerge_TierSourceOrderPrecedence(t *testing.T) {
	// The assessment workbook and the multi-year summary can disagree on the
	// current tier. The summary is applied last and must win.
	base := []domain.OPO{{DSACode: "CADN"}}
	enr := Enrichments{
		HRSA: []domain.OPO{{
			DSACode:   "CADN",
			CMSStatus: &domain.CMSStatus{Tier: intp(1), CycleYear: intp(2022), AtRisk: boolp(false)},
		}},
		CMSTier: []domain.OPO{{
			DSACode:   "CADN",
			CMSStatus: &domain.CMSStatus{Tier: intp(3), CycleYear: intp(2021), AtRisk: boolp(true)},
		}},
	}

	result := NewEngine(nil).Merge(base, enr)
	got := result.OPOs[0]

	require.NotNil(t, got.CMSStatus)
	require.NotNil(t, got.CMSStatus.Tier)
	assert.Equal(t, 3, *got.CMSStatus.Tier)
	require.NotNil(t, got.CMSStatus.AtRisk)
	assert.True(t, *got.CMSStatus.AtRisk)
}

func TestMerge_CoverageStats(t *testing.T) {
	base := []domain.OPO{
		{DSACode: "ALOB"},
		{DSACode: "AZOB"},
		{DSACode: "CADN"},
	}
	enr := Enrichments{
		Propublica: []domain.OPO{
			{DSACode: "ALOB", EIN: strp("630769425")},
			{DSACode: "AZOB", EIN: strp("860506629")},
		},
		SRTR: []domain.OPO{
			{DSACode: "CADN", Metrics: &domain.Metrics{ObservedExpectedRatio: nump(1.02)}},
		},
	}

	result := NewEngine(nil).Merge(base, enr)

	assert.Equal(t, domain.SourceCoverage{Count: 2, Pct: "67%"}, result.Coverage[domain.SourcePropublica])
	assert.Equal(t, domain.SourceCoverage{Count: 1, Pct: "33%"}, result.Coverage[domain.SourceSRTR])
	assert.Equal(t, domain.SourceCoverage{Count: 0, Pct: "0%"}, result.Coverage[domain.SourceHRSA])
	assert.Equal(t, domain.SourceCoverage{Count: 0, Pct: "0%"}, result.Coverage[domain.SourceCMSTier])
}

func TestMerge_DoesNotMutateBaseRecords(t *testing.T) {
	baseMetrics := &domain.Metrics{DonationRate: nump(30.0)}
	base := []domain.OPO{{DSACode: "OHOV", Metrics: baseMetrics}}
	enr := Enrichments{
		HRSA: []domain.OPO{{
			DSACode: "OHOV",
			Metrics: &domain.Metrics{DonationRate: nump(41.0)},
		}},
	}

	NewEngine(nil).Merge(base, enr)

	assert.Equal(t, 30.0, *baseMetrics.DonationRate)
}

func TestBuildEnvelope(t *testing.T) {
	result := Result{
		OPOs: []domain.OPO{{DSACode: "ALOB"}},
		Coverage: map[string]domain.SourceCoverage{
			domain.SourceHRSA: {Count: 1, Pct: "100%"},
		},
	}

	envelope := BuildEnvelope(result)

	assert.Equal(t, domain.SourceMerged, envelope.Metadata.Source)
	assert.Equal(t, 1, envelope.Metadata.Count)
	assert.NotEmpty(t, envelope.Metadata.GeneratedAt)
	assert.Equal(t, result.Coverage, envelope.Metadata.Sources)
}

func TestPrecedenceRuleNamesUnique(t *testing.T) {
	seen := make(map[string]bool, len(precedenceRules))
	for _, rule := range precedenceRules {
		require.NotEmpty(t, rule.name)
		assert.False(t, seen[rule.name], "duplicate rule %q", rule.name)
		seen[rule.name] = true
	}
}

func TestCoveragePct(t *testing.T) {
	tests := []struct {
		name  string
		count int
		total int
		want  string
	}{
		{"empty universe", 0, 0, "0%"},
		{"full coverage", 57, 57, "100%"},
		{"rounds to nearest", 1, 3, "33%"},
		{"rounds up", 2, 3, "67%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coveragePct(tt.count, tt.total))
		})
	}
}
