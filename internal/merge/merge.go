package merge

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"opodata/internal/identity"
	"opodata/pkg/contracts/domain"
)

// Enrichments holds the partial record sets the engine folds into the base
// directory, one slice per enrichment source.
type Enrichments struct {
	Propublica []domain.OPO
	HRSA       []domain.OPO
	SRTR       []domain.OPO
	CMSTier    []domain.OPO
}

// bySource returns the enrichment slice for a source name.
func (e Enrichments) bySource(source string) []domain.OPO {
	switch source {
	case domain.SourcePropublica:
		return e.Propublica
	case domain.SourceHRSA:
		return e.HRSA
	case domain.SourceSRTR:
		return e.SRTR
	case domain.SourceCMSTier:
		return e.CMSTier
	}
	return nil
}

// Result is one merged dataset plus per-source coverage statistics.
type Result struct {
	OPOs     []domain.OPO
	Coverage map[string]domain.SourceCoverage
}

// Engine reconciles the base directory with the enrichment record sets.
// The base defines the universe: every base record appears in the output
// exactly once, and enrichment records whose code is absent from the base
// are dropped. Precedence is per leaf field, enrichment over base, applied
// in a fixed source order so the same inputs always merge identically.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a merge engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "merge_engine"))}
}

// Merge folds the enrichments into the base and returns the canonical
// dataset sorted by DSA code.
func (e *Engine) Merge(base []domain.OPO, enr Enrichments) Result {
	baseCodes := make(map[string]struct{}, len(base))
	for i := range base {
		baseCodes[base[i].DSACode] = struct{}{}
	}

	indexes := make(map[string]map[string]*domain.OPO, len(domain.EnrichmentSources))
	counts := make(map[string]int, len(domain.EnrichmentSources))
	for _, source := range domain.EnrichmentSources {
		records := enr.bySource(source)
		index := make(map[string]*domain.OPO, len(records))
		for i := range records {
			code := records[i].DSACode
			if _, inBase := baseCodes[code]; !inBase {
				e.logger.Warn("enrichment record has no base counterpart, dropping",
					slog.String("source", source),
					slog.String("dsa_code", code))
				continue
			}
			if _, dup := index[code]; dup {
				continue
			}
			index[code] = &records[i]
		}
		indexes[source] = index
	}

	merged := make([]domain.OPO, 0, len(base))
	for i := range base {
		opo := clone(base[i])

		for _, source := range domain.EnrichmentSources {
			src, ok := indexes[source][opo.DSACode]
			if !ok {
				continue
			}
			counts[source]++
			for _, rule := range precedenceRules {
				rule.apply(&opo, src)
			}
		}

		if opo.OPOID == "" {
			opo.OPOID = identity.DeriveOPOID(opo.DSACode)
		}
		merged = append(merged, opo)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].DSACode < merged[j].DSACode
	})

	coverage := make(map[string]domain.SourceCoverage, len(domain.EnrichmentSources))
	for _, source := range domain.EnrichmentSources {
		coverage[source] = domain.SourceCoverage{
			Count: counts[source],
			Pct:   coveragePct(counts[source], len(base)),
		}
	}

	e.logger.Info("merged dataset",
		slog.Int("base_records", len(base)),
		slog.Int("merged_records", len(merged)))

	return Result{OPOs: merged, Coverage: coverage}
}

// BuildEnvelope wraps a merge result in the output envelope.
func BuildEnvelope(result Result) domain.Envelope {
	envelope := domain.NewEnvelope(domain.SourceMerged, result.OPOs)
	envelope.Metadata.Sources = result.Coverage
	return envelope
}

func coveragePct(count, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(100*float64(count)/float64(total))))
}

// clone deep-copies a record so rule application never mutates the caller's
// base slice through shared nested pointers.
func clone(o domain.OPO) domain.OPO {
	out := o
	out.Name = cloneStr(o.Name)
	out.EIN = cloneStr(o.EIN)
	out.StatesServed = append([]string(nil), o.StatesServed...)
	out.Regions = append([]string(nil), o.Regions...)

	if o.Location != nil {
		out.Location = &domain.Location{
			State:   cloneStr(o.Location.State),
			City:    cloneStr(o.Location.City),
			Address: cloneStr(o.Location.Address),
			Phone:   cloneStr(o.Location.Phone),
			Region:  cloneStr(o.Location.Region),
		}
	}
	if o.CMSStatus != nil {
		out.CMSStatus = &domain.CMSStatus{
			Tier:      cloneInt(o.CMSStatus.Tier),
			CycleYear: cloneInt(o.CMSStatus.CycleYear),
			AtRisk:    cloneBool(o.CMSStatus.AtRisk),
		}
	}
	if o.Metrics != nil {
		out.Metrics = &domain.Metrics{
			DonationRate:               cloneNum(o.Metrics.DonationRate),
			TransplantationRate:        cloneNum(o.Metrics.TransplantationRate),
			ConversionRate:             cloneNum(o.Metrics.ConversionRate),
			OrgansTransplantedPerDonor: cloneNum(o.Metrics.OrgansTransplantedPerDonor),
			ObservedExpectedRatio:      cloneNum(o.Metrics.ObservedExpectedRatio),
			ObservedExpectedByOrgan:    cloneOrganRates(o.Metrics.ObservedExpectedByOrgan),
			DiscardRates:               cloneOrganRates(o.Metrics.DiscardRates),
			RecoveryRate:               cloneOrganRates(o.Metrics.RecoveryRate),
			ShadowDeaths:               cloneNum(o.Metrics.ShadowDeaths),
			Rank:                       cloneInt(o.Metrics.Rank),
		}
	}
	if o.Financials != nil {
		out.Financials = &domain.Financials{
			Revenue:         cloneNum(o.Financials.Revenue),
			Expenses:        cloneNum(o.Financials.Expenses),
			Assets:          cloneNum(o.Financials.Assets),
			CEOCompensation: cloneNum(o.Financials.CEOCompensation),
			OACPerOrgan:     cloneNum(o.Financials.OACPerOrgan),
			TaxYear:         cloneInt(o.Financials.TaxYear),
		}
	}
	if o.Leadership != nil {
		out.Leadership = &domain.Leadership{
			CEO:                        cloneStr(o.Leadership.CEO),
			BoardIndependenceDisclosed: cloneBool(o.Leadership.BoardIndependenceDisclosed),
		}
	}
	if o.Demographics != nil {
		out.Demographics = &domain.Demographics{
			EligibleDeaths:  cloneBreakdown(o.Demographics.EligibleDeaths),
			DemographicRank: cloneBreakdown(o.Demographics.DemographicRank),
		}
	}
	if o.Relationships != nil {
		centers := make([]domain.TransplantCenter, len(o.Relationships.TransplantCenters))
		for i, c := range o.Relationships.TransplantCenters {
			centers[i] = domain.TransplantCenter{
				Name:     c.Name,
				Code:     c.Code,
				City:     cloneStr(c.City),
				Services: append([]string(nil), c.Services...),
			}
		}
		out.Relationships = &domain.Relationships{TransplantCenters: centers}
	}
	return out
}

func cloneOrganRates(r *domain.OrganRates) *domain.OrganRates {
	if r == nil {
		return nil
	}
	return &domain.OrganRates{
		Heart:  cloneNum(r.Heart),
		Kidney: cloneNum(r.Kidney),
		Liver:  cloneNum(r.Liver),
		Lung:   cloneNum(r.Lung),
	}
}

func cloneBreakdown(b *domain.DemographicBreakdown) *domain.DemographicBreakdown {
	if b == nil {
		return nil
	}
	return &domain.DemographicBreakdown{
		White:    cloneNum(b.White),
		Black:    cloneNum(b.Black),
		Hispanic: cloneNum(b.Hispanic),
		Asian:    cloneNum(b.Asian),
	}
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneNum(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
