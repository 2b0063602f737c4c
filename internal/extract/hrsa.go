package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"opodata/internal/workbook"
	"opodata/pkg/contracts/domain"
)

var (
	assessmentSheetPattern = regexp.MustCompile(`(?i)\d{4}\s*assessment`)
	centersSheetPattern    = regexp.MustCompile(`(?i)transplant\s*centers?`)
	centerNamePattern      = regexp.MustCompile(`(?i)center\s*name`)
	assessmentYearPattern  = regexp.MustCompile(`\d{4}`)
)

// Assessment sheet columns sit at fixed offsets from the identifier
// column. Header names on this sheet are inconsistent across releases, so
// offsets are the only reliable addressing; they are hard-coded to the
// observed layout and guarded by a fixture-backed regression test.
// TODO: revisit the offsets when the 2023 release lands; the publisher has
// reshuffled this sheet once before.
const (
	assessOffName           = 1
	assessOffDonationRate   = 2
	assessOffTransplantRate = 3
	assessOffConversionRate = 4
	assessOffOrgansPerDonor = 5
	assessOffShadowDeaths   = 6
	assessOffRank           = 7
	assessOffTier           = 8
	assessOffEligibleDeaths = 9  // four columns: white, black, hispanic, asian
	assessOffDemoRank       = 13 // four columns, same group order
)

// AssessmentExtractor reads the HRSA annual assessment workbook: one flat
// record per identifier from the most recent single-year assessment sheet,
// plus the transplant-center affiliations sheet.
type AssessmentExtractor struct {
	logger *slog.Logger
}

// NewAssessmentExtractor creates the latest-assessment extractor.
func NewAssessmentExtractor(logger *slog.Logger) *AssessmentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentExtractor{logger: logger.With(slog.String("component", "assessment_extractor"))}
}

// Extract returns partial records from the most recent assessment sheet.
// Sheet names embed the cycle year, so lexicographically last is most
// recent. A workbook without an assessment sheet yields an empty result.
func (e *AssessmentExtractor) Extract(data []byte) ([]domain.OPO, error) {
	wb, err := workbook.Load(data)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*domain.OPO)
	var order []string

	loc := workbook.Locate(wb, workbook.ByNamePattern{Pattern: assessmentSheetPattern})
	if loc == nil {
		e.logger.Warn("no assessment sheet found in workbook",
			slog.Any("sheets", wb.SheetNames()))
	} else {
		e.extractAssessment(wb.Sheet(loc.Sheet), byCode, &order)
	}

	if centersLoc := workbook.Locate(wb, workbook.ByNamePattern{Pattern: centersSheetPattern}); centersLoc != nil {
		e.extractCenters(wb.Sheet(centersLoc.Sheet), byCode, &order)
	}

	opos := make([]domain.OPO, 0, len(order))
	for _, code := range order {
		opos = append(opos, *byCode[code])
	}
	return opos, nil
}

func (e *AssessmentExtractor) extractAssessment(sheet *workbook.Sheet, byCode map[string]*domain.OPO, order *[]string) {
	idRow, idCol, ok := workbook.FindIdentifierColumn(sheet, 0, domain.IsValidDSACode)
	if !ok {
		e.logger.Warn("no identifier column in assessment sheet",
			slog.String("sheet", sheet.Name))
		return
	}

	cycleYear := workbook.CoerceInt(assessmentYearPattern.FindString(sheet.Name))

	count := 0
	for r := idRow; r < sheet.RowCount(); r++ {
		code := sheet.Cell(r, idCol)
		if !domain.IsValidDSACode(code) {
			continue
		}

		opo := record(byCode, order, code)
		opo.Name = workbook.CoerceString(sheet.Cell(r, idCol+assessOffName))
		opo.Metrics = &domain.Metrics{
			DonationRate:               workbook.CoerceNumber(sheet.Cell(r, idCol+assessOffDonationRate)),
			TransplantationRate:        workbook.CoerceNumber(sheet.Cell(r, idCol+assessOffTransplantRate)),
			ConversionRate:             workbook.CoerceNumber(sheet.Cell(r, idCol+assessOffConversionRate)),
			OrgansTransplantedPerDonor: workbook.CoerceNumber(sheet.Cell(r, idCol+assessOffOrgansPerDonor)),
			ShadowDeaths:               workbook.CoerceNumber(sheet.Cell(r, idCol+assessOffShadowDeaths)),
			Rank:                       workbook.CoerceInt(sheet.Cell(r, idCol+assessOffRank)),
		}
		opo.CMSStatus = tierStatus(workbook.LeadingDigit(sheet.Cell(r, idCol+assessOffTier)), cycleYear)
		opo.Demographics = demographics(sheet, r, idCol)
		count++
	}

	e.logger.Info("extracted latest assessment",
		slog.String("sheet", sheet.Name),
		slog.Int("identifier_col", idCol),
		slog.Int("records", count))
}

func demographics(sheet *workbook.Sheet, row, idCol int) *domain.Demographics {
	breakdown := func(off int) *domain.DemographicBreakdown {
		b := &domain.DemographicBreakdown{
			White:    workbook.CoerceNumber(sheet.Cell(row, idCol+off)),
			Black:    workbook.CoerceNumber(sheet.Cell(row, idCol+off+1)),
			Hispanic: workbook.CoerceNumber(sheet.Cell(row, idCol+off+2)),
			Asian:    workbook.CoerceNumber(sheet.Cell(row, idCol+off+3)),
		}
		if b.White == nil && b.Black == nil && b.Hispanic == nil && b.Asian == nil {
			return nil
		}
		return b
	}

	d := &domain.Demographics{
		EligibleDeaths:  breakdown(assessOffEligibleDeaths),
		DemographicRank: breakdown(assessOffDemoRank),
	}
	if d.EligibleDeaths == nil && d.DemographicRank == nil {
		return nil
	}
	return d
}

// extractCenters walks the affiliations sheet. Unlike the assessment sheet
// its headers are stable, so columns resolve by header name.
func (e *AssessmentExtractor) extractCenters(sheet *workbook.Sheet, byCode map[string]*domain.OPO, order *[]string) {
	headerRow, _, ok := workbook.ProbeSheet(sheet, centerNamePattern, 0)
	if !ok {
		e.logger.Warn("no header row in transplant centers sheet",
			slog.String("sheet", sheet.Name))
		return
	}

	cols := map[string]int{}
	for c := 0; c < sheet.Width(); c++ {
		header := strings.ToLower(sheet.Cell(headerRow, c))
		switch {
		case strings.HasPrefix(header, "dsa"):
			cols["dsa"] = c
		case strings.Contains(header, "center name"):
			cols["name"] = c
		case strings.Contains(header, "center code"):
			cols["code"] = c
		case header == "city":
			cols["city"] = c
		case strings.Contains(header, "services"):
			cols["services"] = c
		}
	}
	dsaCol, okDSA := cols["dsa"]
	nameCol, okName := cols["name"]
	if !okDSA || !okName {
		e.logger.Warn("transplant centers sheet missing required columns",
			slog.String("sheet", sheet.Name))
		return
	}

	seen := make(map[string]map[string]struct{})
	for r := headerRow + 1; r < sheet.RowCount(); r++ {
		code := sheet.Cell(r, dsaCol)
		if !domain.IsValidDSACode(code) {
			continue
		}

		center := domain.TransplantCenter{Name: sheet.Cell(r, nameCol)}
		if c, ok := cols["code"]; ok {
			center.Code = sheet.Cell(r, c)
		}
		if c, ok := cols["city"]; ok {
			center.City = workbook.CoerceString(sheet.Cell(r, c))
		}
		if c, ok := cols["services"]; ok {
			center.Services = splitServices(sheet.Cell(r, c))
		}
		if center.Name == "" && center.Code == "" {
			continue
		}

		if seen[code] == nil {
			seen[code] = make(map[string]struct{})
		}
		key := center.CenterKey()
		if _, dup := seen[code][key]; dup {
			continue
		}
		seen[code][key] = struct{}{}

		opo := record(byCode, order, code)
		if opo.Relationships == nil {
			opo.Relationships = &domain.Relationships{}
		}
		opo.Relationships.TransplantCenters = append(opo.Relationships.TransplantCenters, center)
	}
}

func splitServices(raw string) []string {
	var services []string
	for _, s := range strings.Split(raw, ";") {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	return services
}

// record returns the partial record for a code, creating it on first use
// and preserving first-seen order.
func record(byCode map[string]*domain.OPO, order *[]string, code string) *domain.OPO {
	if opo, ok := byCode[code]; ok {
		return opo
	}
	opo := &domain.OPO{DSACode: code}
	byCode[code] = opo
	*order = append(*order, code)
	return opo
}
