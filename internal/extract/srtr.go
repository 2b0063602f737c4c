package extract

import (
	"log/slog"
	"math"
	"regexp"
	"sort"

	"opodata/internal/workbook"
	"opodata/pkg/contracts/domain"
)

// UtilizationExtractor reads the SRTR per-organ utilization workbook. The
// workbook's sheet set varies by release and the identifier column is not
// anchored to column 0, so extraction is two-phase: first scan every sheet
// for an identifier-shaped column and collect each row as key/value pairs
// under (identifier, sheet); then derive the metrics by looking up
// (sheet-name pattern, column-name pattern) coordinates in that structure.
type UtilizationExtractor struct {
	logger *slog.Logger
}

// NewUtilizationExtractor creates the per-organ utilization extractor.
func NewUtilizationExtractor(logger *slog.Logger) *UtilizationExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &UtilizationExtractor{logger: logger.With(slog.String("component", "utilization_extractor"))}
}

// Pair is one (column header, cell value) observation from a sheet row.
type Pair struct {
	Key   string
	Value string
}

// Tables maps identifier → sheet name → that identifier's row, flattened
// to header/value pairs.
type Tables map[string]map[string][]Pair

var (
	organSheetPatterns = map[string]*regexp.Regexp{
		"heart":  regexp.MustCompile(`(?i)^heart`),
		"kidney": regexp.MustCompile(`(?i)^kidney`),
		"liver":  regexp.MustCompile(`(?i)^liver`),
		"lung":   regexp.MustCompile(`(?i)^lung`),
	}
	utilSummaryPattern = regexp.MustCompile(`(?i)summary`)

	keyTransplanted    = regexp.MustCompile(`(?i)^transplanted$`)
	keyNotTransplanted = regexp.MustCompile(`(?i)^not\s+transplanted$`)
	keyObserved        = regexp.MustCompile(`(?i)^observed$`)
	keyExpected        = regexp.MustCompile(`(?i)^expected$`)
	keyRecoveryRate    = regexp.MustCompile(`(?i)recovery\s*rate`)
	keyOERatio         = regexp.MustCompile(`(?i)o[/:]?e\s*ratio`)
)

// Extract builds the nested table structure and derives per-organ metrics
// from it. Sheets without an identifier-shaped column are skipped.
func (e *UtilizationExtractor) Extract(data []byte) ([]domain.OPO, error) {
	wb, err := workbook.Load(data)
	if err != nil {
		return nil, err
	}

	tables := e.BuildTables(wb)

	codes := make([]string, 0, len(tables))
	for code := range tables {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	opos := make([]domain.OPO, 0, len(codes))
	for _, code := range codes {
		sheets := tables[code]
		metrics := &domain.Metrics{
			ObservedExpectedRatio:   lookupNumber(sheets, utilSummaryPattern, keyOERatio),
			ObservedExpectedByOrgan: organRates(sheets, observedExpected),
			DiscardRates:            organRates(sheets, discardRate),
			RecoveryRate:            organRates(sheets, recoveryRate),
		}
		opos = append(opos, domain.OPO{DSACode: code, Metrics: metrics})
	}

	e.logger.Info("extracted per-organ utilization",
		slog.Int("sheets", len(wb.Sheets)),
		slog.Int("records", len(opos)))

	return opos, nil
}

// BuildTables scans every sheet for an identifier column anywhere in the
// probe window and collects each identifier row as header/value pairs. The
// row directly above the first identifier cell is the header row.
func (e *UtilizationExtractor) BuildTables(wb *workbook.Workbook) Tables {
	tables := make(Tables)

	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		idRow, idCol, ok := workbook.FindIdentifierColumn(sheet, 0, domain.IsValidDSACode)
		if !ok || idRow == 0 {
			e.logger.Debug("sheet has no identifier column under a header",
				slog.String("sheet", sheet.Name))
			continue
		}
		headerRow := idRow - 1

		for r := idRow; r < sheet.RowCount(); r++ {
			code := sheet.Cell(r, idCol)
			if !domain.IsValidDSACode(code) {
				continue
			}

			var pairs []Pair
			for c := 0; c < sheet.Width(); c++ {
				if c == idCol {
					continue
				}
				header := sheet.Cell(headerRow, c)
				if header == "" {
					continue
				}
				pairs = append(pairs, Pair{Key: header, Value: sheet.Cell(r, c)})
			}
			if len(pairs) == 0 {
				continue
			}

			if tables[code] == nil {
				tables[code] = make(map[string][]Pair)
			}
			tables[code][sheet.Name] = pairs
		}
	}

	return tables
}

// lookupNumber finds the first (sheet, column) pair matching both patterns
// and coerces its value. Sheet names iterate sorted so the lookup is
// deterministic across runs.
func lookupNumber(sheets map[string][]Pair, sheetPattern, keyPattern *regexp.Regexp) *float64 {
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !sheetPattern.MatchString(name) {
			continue
		}
		for _, pair := range sheets[name] {
			if keyPattern.MatchString(pair.Key) {
				return workbook.CoerceNumber(pair.Value)
			}
		}
	}
	return nil
}

// organRates derives one rate per organ sheet, nil-collapsing when no
// organ has a value.
func organRates(sheets map[string][]Pair, derive func(map[string][]Pair, *regexp.Regexp) *float64) *domain.OrganRates {
	rates := &domain.OrganRates{
		Heart:  derive(sheets, organSheetPatterns["heart"]),
		Kidney: derive(sheets, organSheetPatterns["kidney"]),
		Liver:  derive(sheets, organSheetPatterns["liver"]),
		Lung:   derive(sheets, organSheetPatterns["lung"]),
	}
	if rates.Heart == nil && rates.Kidney == nil && rates.Liver == nil && rates.Lung == nil {
		return nil
	}
	return rates
}

func discardRate(sheets map[string][]Pair, sheetPattern *regexp.Regexp) *float64 {
	nt := lookupNumber(sheets, sheetPattern, keyNotTransplanted)
	tx := lookupNumber(sheets, sheetPattern, keyTransplanted)
	return DiscardRate(nt, tx)
}

func observedExpected(sheets map[string][]Pair, sheetPattern *regexp.Regexp) *float64 {
	observed := lookupNumber(sheets, sheetPattern, keyObserved)
	expected := lookupNumber(sheets, sheetPattern, keyExpected)
	if observed == nil || expected == nil || *expected == 0 {
		return nil
	}
	ratio := round2(*observed / *expected)
	return &ratio
}

func recoveryRate(sheets map[string][]Pair, sheetPattern *regexp.Regexp) *float64 {
	return lookupNumber(sheets, sheetPattern, keyRecoveryRate)
}

// DiscardRate computes the share of recovered organs not ultimately
// transplanted, as a percentage rounded to two decimals. A zero total is a
// zero rate, not a division fault; an unknown operand makes the rate
// unknown.
func DiscardRate(notTransplanted, transplanted *float64) *float64 {
	if notTransplanted == nil || transplanted == nil {
		return nil
	}
	total := *notTransplanted + *transplanted
	if total == 0 {
		zero := 0.0
		return &zero
	}
	rate := round2(100 * *notTransplanted / total)
	return &rate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
