package extract

import (
	"context"
	"log/slog"
	"strings"

	"opodata/internal/identity"
	"opodata/internal/propublica"
	"opodata/pkg/contracts/domain"
)

// FilingsAPI is the slice of the filings client the financial extractor
// needs. Narrowed for tests.
type FilingsAPI interface {
	SearchOrganizations(ctx context.Context, query string) ([]propublica.Organization, error)
	Organization(ctx context.Context, ein string) (*propublica.OrganizationDetail, error)
}

// FinancialExtractor resolves each OPO's EIN and attaches figures from its
// most recent nonprofit filing. Resolution order: the curated static table
// first, then fuzzy name search against the filings API. An OPO whose EIN
// resolves but that has no filing data is dropped: financial data requires
// both. Hospital-based OPOs typically resolve no EIN at all and simply
// contribute no record.
type FinancialExtractor struct {
	api    FilingsAPI
	logger *slog.Logger
}

// NewFinancialExtractor creates the financial extractor.
func NewFinancialExtractor(api FilingsAPI, logger *slog.Logger) *FinancialExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinancialExtractor{
		api:    api,
		logger: logger.With(slog.String("component", "financial_extractor")),
	}
}

// Extract walks the base records sequentially (the client paces the calls)
// and returns the filings-backed partial records.
func (e *FinancialExtractor) Extract(ctx context.Context, base []domain.OPO) ([]domain.OPO, error) {
	opos := make([]domain.OPO, 0, len(base))

	for _, opo := range base {
		curated, _ := identity.CuratedEntryFor(opo.DSACode)

		ein := curated.EIN
		if ein == "" {
			ein = e.searchEIN(ctx, opo)
		}
		if ein == "" {
			e.logger.Debug("no EIN resolved",
				slog.String("dsa_code", opo.DSACode))
			continue
		}

		detail, err := e.api.Organization(ctx, ein)
		if err != nil {
			e.logger.Warn("filings fetch failed",
				slog.String("dsa_code", opo.DSACode),
				slog.String("ein", ein),
				slog.String("error", err.Error()))
			continue
		}

		filing := detail.LatestFiling()
		if filing == nil {
			// Resolved EIN but no filing data: drop the record.
			e.logger.Warn("organization has no usable filings",
				slog.String("dsa_code", opo.DSACode),
				slog.String("ein", ein))
			continue
		}

		record := domain.OPO{
			DSACode: opo.DSACode,
			EIN:     &ein,
			Financials: &domain.Financials{
				Revenue:         filing.TotalRevenue,
				Expenses:        filing.TotalExpenses,
				Assets:          filing.TotalAssetsEnd,
				CEOCompensation: filing.OfficerCompensation,
				OACPerOrgan:     curated.OACPerOrgan,
				TaxYear:         &filing.TaxPeriodYear,
			},
		}
		if leadership := leadershipFrom(detail.Organization, filing); leadership != nil {
			record.Leadership = leadership
		}

		opos = append(opos, record)
	}

	e.logger.Info("extracted financial records",
		slog.Int("base_records", len(base)),
		slog.Int("records", len(opos)))

	return opos, nil
}

// searchEIN resolves an EIN by fuzzy name search. A candidate wins when its
// normalized name contains or is contained by the query name; failing that,
// the first search result wins unconditionally.
func (e *FinancialExtractor) searchEIN(ctx context.Context, opo domain.OPO) string {
	if opo.Name == nil {
		return ""
	}
	query := *opo.Name

	candidates, err := e.api.SearchOrganizations(ctx, query)
	if err != nil {
		e.logger.Warn("filings search failed",
			slog.String("dsa_code", opo.DSACode),
			slog.String("query", query),
			slog.String("error", err.Error()))
		return ""
	}
	if len(candidates) == 0 {
		return ""
	}

	for _, cand := range candidates {
		if identity.MatchName(cand.Name, query) {
			return cand.EIN.String()
		}
	}
	return candidates[0].EIN.String()
}

// leadershipFrom extracts governance fields where the filing discloses
// them. The care-of name, when present, names the responsible officer.
func leadershipFrom(org propublica.Organization, filing *propublica.Filing) *domain.Leadership {
	var leadership domain.Leadership

	if name := cleanOfficerName(org.CareOfName); name != "" {
		leadership.CEO = &name
	}
	if filing.OfficerCompensation != nil {
		disclosed := true
		leadership.BoardIndependenceDisclosed = &disclosed
	}

	if leadership.CEO == nil && leadership.BoardIndependenceDisclosed == nil {
		return nil
	}
	return &leadership
}

func cleanOfficerName(raw string) string {
	name := strings.TrimSpace(raw)
	for _, prefix := range []string{"% ", "C/O ", "c/o "} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}
