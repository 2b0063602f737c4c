package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opodata/internal/workbook"
)

func utilizationFixture(t *testing.T) []byte {
	t.Helper()

	return buildWorkbookBytes(t, []workbook.Sheet{
		{Name: "Notes", Rows: [][]string{{"methodology text, no table"}}},
		{Name: "Heart Utilization", Rows: [][]string{
			{"Region", "", "DSA", "Transplanted", "Not Transplanted", "Observed", "Expected", "Recovery Rate"},
			{"South", "", "ALOB", "3", "1", "10", "8", "55.5"},
			{"West", "", "WALC", "120", "", "40", "0", "61.2"},
		}},
		{Name: "Kidney Utilization", Rows: [][]string{
			{"DSA", "Transplanted", "Not Transplanted"},
			{"ALOB", "0", "0"},
		}},
		{Name: "Summary", Rows: [][]string{
			{"DSA", "O/E Ratio"},
			{"ALOB", "0.94"},
		}},
	})
}

func TestUtilizationExtract(t *testing.T) {
	opos, err := NewUtilizationExtractor(nil).Extract(utilizationFixture(t))
	require.NoError(t, err)
	require.Len(t, opos, 2)

	// Sorted by code.
	alob, walc := opos[0], opos[1]
	assert.Equal(t, "ALOB", alob.DSACode)
	assert.Equal(t, "WALC", walc.DSACode)

	require.NotNil(t, alob.Metrics)
	require.NotNil(t, alob.Metrics.ObservedExpectedRatio)
	assert.Equal(t, 0.94, *alob.Metrics.ObservedExpectedRatio)

	require.NotNil(t, alob.Metrics.DiscardRates)
	require.NotNil(t, alob.Metrics.DiscardRates.Heart)
	assert.Equal(t, 25.0, *alob.Metrics.DiscardRates.Heart)
	require.NotNil(t, alob.Metrics.DiscardRates.Kidney)
	assert.Equal(t, 0.0, *alob.Metrics.DiscardRates.Kidney, "zero recovered organs is a zero rate")
	assert.Nil(t, alob.Metrics.DiscardRates.Liver)
	assert.Nil(t, alob.Metrics.DiscardRates.Lung)

	require.NotNil(t, alob.Metrics.ObservedExpectedByOrgan)
	require.NotNil(t, alob.Metrics.ObservedExpectedByOrgan.Heart)
	assert.Equal(t, 1.25, *alob.Metrics.ObservedExpectedByOrgan.Heart)

	require.NotNil(t, alob.Metrics.RecoveryRate)
	assert.Equal(t, 55.5, *alob.Metrics.RecoveryRate.Heart)

	// WALC: a blank operand makes the rate unknown, and a zero expected
	// value yields no ratio.
	require.NotNil(t, walc.Metrics)
	assert.Nil(t, walc.Metrics.DiscardRates)
	assert.Nil(t, walc.Metrics.ObservedExpectedByOrgan)
	require.NotNil(t, walc.Metrics.RecoveryRate)
	assert.Equal(t, 61.2, *walc.Metrics.RecoveryRate.Heart)
	assert.Nil(t, walc.Metrics.ObservedExpectedRatio)
}

func TestBuildTables_IdentifierColumnNotAtZero(t *testing.T) {
	data := buildWorkbookBytes(t, []workbook.Sheet{
		{Name: "Liver Utilization", Rows: [][]string{
			{"", "", "DSA", "Transplanted"},
			{"", "", "TXGC", "42"},
		}},
	})
	wb, err := workbook.Load(data)
	require.NoError(t, err)

	tables := NewUtilizationExtractor(nil).BuildTables(wb)

	require.Contains(t, tables, "TXGC")
	pairs := tables["TXGC"]["Liver Utilization"]
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{Key: "Transplanted", Value: "42"}, pairs[0])
}

func TestBuildTables_SkipsSheetWithIdentifierInFirstRow(t *testing.T) {
	// An identifier-shaped token in the very first row has no header row
	// above it, so the sheet cannot be keyed.
	data := buildWorkbookBytes(t, []workbook.Sheet{
		{Name: "Lung Utilization", Rows: [][]string{
			{"ALOB", "7"},
		}},
	})
	wb, err := workbook.Load(data)
	require.NoError(t, err)

	tables := NewUtilizationExtractor(nil).BuildTables(wb)
	assert.Empty(t, tables)
}

func TestDiscardRate(t *testing.T) {
	tests := []struct {
		name            string
		notTransplanted *float64
		transplanted    *float64
		want            *float64
	}{
		{"unknown not-transplanted", nil, fp(3), nil},
		{"unknown transplanted", fp(1), nil, nil},
		{"zero total", fp(0), fp(0), fp(0)},
		{"quarter discarded", fp(1), fp(3), fp(25.0)},
		{"rounds to two decimals", fp(1), fp(2), fp(33.33)},
		{"all discarded", fp(5), fp(0), fp(100.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscardRate(tt.notTransplanted, tt.transplanted)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}
