package extract

import (
	"log/slog"
	"regexp"

	"opodata/internal/workbook"
	"opodata/pkg/contracts/domain"
)

// SummaryYears is the fixed 5-year window the CMS summary workbook
// publishes, oldest first. The per-year column axis of the summary sheet
// carries exactly these literals.
var SummaryYears = []int{2017, 2018, 2019, 2020, 2021}

// The summary sheet stacks two header rows: the identifier-label row, then
// within this many rows the per-year column axis.
const yearAxisWindow = 3

var (
	summarySheetPattern  = regexp.MustCompile(`(?i)summary`)
	summaryHeaderPattern = regexp.MustCompile(`(?i)^(dsa|opo)\b`)
)

// SummaryExtractor reads the CMS multi-year performance summary workbook:
// per identifier row, three year-indexed mappings (tier, donation-rate
// category, transplant-rate category) over the fixed window.
//
// Column layout is pure offset arithmetic from the identifier column: one
// contiguous block of len(SummaryYears) columns per metric family, families
// in a fixed order, the first block starting immediately right of the
// identifier column. Reproduce the offsets exactly or columns silently
// misalign.
type SummaryExtractor struct {
	logger *slog.Logger
}

// NewSummaryExtractor creates the multi-year summary extractor.
func NewSummaryExtractor(logger *slog.Logger) *SummaryExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryExtractor{logger: logger.With(slog.String("component", "summary_extractor"))}
}

// family block order within the summary sheet.
const (
	familyTier = iota
	familyDonationRate
	familyTransplantRate
)

// Extract walks the summary workbook and returns the tier-history record
// set plus the partial OPO records feeding cms_status. A workbook without
// the summary table yields empty results.
func (e *SummaryExtractor) Extract(data []byte) ([]domain.TierRecord, []domain.OPO, error) {
	wb, err := workbook.Load(data)
	if err != nil {
		return nil, nil, err
	}

	loc := workbook.Locate(wb, workbook.ByNamePattern{Pattern: summarySheetPattern})
	if loc == nil {
		e.logger.Warn("summary sheet not found in workbook",
			slog.Any("sheets", wb.SheetNames()))
		return nil, nil, nil
	}
	sheet := wb.Sheet(loc.Sheet)

	headerRow, idCol, ok := workbook.ProbeSheet(sheet, summaryHeaderPattern, 0)
	if !ok {
		e.logger.Warn("identifier header not found in summary sheet",
			slog.String("sheet", sheet.Name))
		return nil, nil, nil
	}

	yearRow, yearCols, ok := workbook.FindYearRow(sheet, headerRow, yearAxisWindow, SummaryYears)
	if !ok {
		e.logger.Warn("year axis not found below identifier header",
			slog.String("sheet", sheet.Name),
			slog.Int("header_row", headerRow))
		return nil, nil, nil
	}

	dataStart := yearRow + 1
	if headerRow >= yearRow {
		dataStart = headerRow + 1
	}

	var records []domain.TierRecord
	var opos []domain.OPO
	for r := dataStart; r < sheet.RowCount(); r++ {
		code := sheet.Cell(r, idCol)
		if !domain.IsValidDSACode(code) {
			continue
		}

		rec := domain.TierRecord{
			DSACode:                code,
			TierHistory:            make(map[int]int),
			DonationRateCategory:   make(map[int]string),
			TransplantRateCategory: make(map[int]string),
		}

		for yi, year := range SummaryYears {
			if tier := workbook.LeadingDigit(sheet.Cell(r, familyCol(idCol, familyTier, yi))); tier != nil {
				rec.TierHistory[year] = *tier
			}
			if cat := workbook.CoerceString(sheet.Cell(r, familyCol(idCol, familyDonationRate, yi))); cat != nil {
				rec.DonationRateCategory[year] = *cat
			}
			if cat := workbook.CoerceString(sheet.Cell(r, familyCol(idCol, familyTransplantRate, yi))); cat != nil {
				rec.TransplantRateCategory[year] = *cat
			}
		}

		rec.LatestTier, rec.LatestTierYear = latestTier(rec.TierHistory)
		records = append(records, rec)

		if status := tierStatus(rec.LatestTier, rec.LatestTierYear); status != nil {
			opos = append(opos, domain.OPO{DSACode: code, CMSStatus: status})
		}
	}

	e.logger.Info("extracted multi-year summary",
		slog.String("sheet", sheet.Name),
		slog.Int("year_row", yearRow),
		slog.Int("years_found", len(yearCols)),
		slog.Int("records", len(records)))

	return records, opos, nil
}

// familyCol computes the column of one (metric family, year index) cell:
// the identifier column, plus one, plus a whole year-axis width per earlier
// family, plus the year index within the block.
func familyCol(idCol, family, yearIndex int) int {
	return idCol + 1 + family*len(SummaryYears) + yearIndex
}

// latestTier resolves the most recent year with a known tier, scanning the
// window right to left. Never left to right: an old tier must not shadow a
// recent gap.
func latestTier(history map[int]int) (*int, *int) {
	for i := len(SummaryYears) - 1; i >= 0; i-- {
		year := SummaryYears[i]
		if tier, ok := history[year]; ok {
			y := year
			t := tier
			return &t, &y
		}
	}
	return nil, nil
}
