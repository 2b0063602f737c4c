package merge

import (
	"opodata/pkg/contracts/domain"
)

// fieldRule is one declarative precedence rule: copy a single leaf field
// from an enrichment record onto the merged record when the enrichment has
// a value. Precedence is applied per leaf, never as an all-or-nothing
// record replacement, so each rule is independently testable.
type fieldRule struct {
	name  string
	apply func(dst, src *domain.OPO)
}

func numRule(name string, get func(*domain.OPO) *float64, set func(*domain.OPO, *float64)) fieldRule {
	return fieldRule{name: name, apply: func(dst, src *domain.OPO) {
		if v := get(src); v != nil {
			set(dst, v)
		}
	}}
}

func strRule(name string, get func(*domain.OPO) *string, set func(*domain.OPO, *string)) fieldRule {
	return fieldRule{name: name, apply: func(dst, src *domain.OPO) {
		if v := get(src); v != nil {
			set(dst, v)
		}
	}}
}

func intRule(name string, get func(*domain.OPO) *int, set func(*domain.OPO, *int)) fieldRule {
	return fieldRule{name: name, apply: func(dst, src *domain.OPO) {
		if v := get(src); v != nil {
			set(dst, v)
		}
	}}
}

func boolRule(name string, get func(*domain.OPO) *bool, set func(*domain.OPO, *bool)) fieldRule {
	return fieldRule{name: name, apply: func(dst, src *domain.OPO) {
		if v := get(src); v != nil {
			set(dst, v)
		}
	}}
}

// Lazily created sub-structs: a merged record only grows a section once
// some source supplies a field inside it.

func loc(o *domain.OPO) *domain.Location {
	if o.Location == nil {
		o.Location = &domain.Location{}
	}
	return o.Location
}

func cms(o *domain.OPO) *domain.CMSStatus {
	if o.CMSStatus == nil {
		o.CMSStatus = &domain.CMSStatus{}
	}
	return o.CMSStatus
}

func met(o *domain.OPO) *domain.Metrics {
	if o.Metrics == nil {
		o.Metrics = &domain.Metrics{}
	}
	return o.Metrics
}

func fin(o *domain.OPO) *domain.Financials {
	if o.Financials == nil {
		o.Financials = &domain.Financials{}
	}
	return o.Financials
}

func lead(o *domain.OPO) *domain.Leadership {
	if o.Leadership == nil {
		o.Leadership = &domain.Leadership{}
	}
	return o.Leadership
}

func organ(get func(*domain.Metrics) **domain.OrganRates) func(*domain.OPO) *domain.OrganRates {
	return func(o *domain.OPO) *domain.OrganRates {
		m := met(o)
		p := get(m)
		if *p == nil {
			*p = &domain.OrganRates{}
		}
		return *p
	}
}

func demo(o *domain.OPO) *domain.Demographics {
	if o.Demographics == nil {
		o.Demographics = &domain.Demographics{}
	}
	return o.Demographics
}

func demoBreakdown(get func(*domain.Demographics) **domain.DemographicBreakdown) func(*domain.OPO) *domain.DemographicBreakdown {
	return func(o *domain.OPO) *domain.DemographicBreakdown {
		d := demo(o)
		p := get(d)
		if *p == nil {
			*p = &domain.DemographicBreakdown{}
		}
		return *p
	}
}

// organRules expands one per-organ rate family into its four leaf rules.
func organRules(prefix string, getSrc func(*domain.Metrics) *domain.OrganRates, ensure func(*domain.OPO) *domain.OrganRates) []fieldRule {
	leaf := func(organName string, get func(*domain.OrganRates) *float64, set func(*domain.OrganRates, *float64)) fieldRule {
		return numRule(prefix+"."+organName,
			func(o *domain.OPO) *float64 {
				if o.Metrics == nil {
					return nil
				}
				r := getSrc(o.Metrics)
				if r == nil {
					return nil
				}
				return get(r)
			},
			func(o *domain.OPO, v *float64) { set(ensure(o), v) },
		)
	}
	return []fieldRule{
		leaf("heart", func(r *domain.OrganRates) *float64 { return r.Heart }, func(r *domain.OrganRates, v *float64) { r.Heart = v }),
		leaf("kidney", func(r *domain.OrganRates) *float64 { return r.Kidney }, func(r *domain.OrganRates, v *float64) { r.Kidney = v }),
		leaf("liver", func(r *domain.OrganRates) *float64 { return r.Liver }, func(r *domain.OrganRates, v *float64) { r.Liver = v }),
		leaf("lung", func(r *domain.OrganRates) *float64 { return r.Lung }, func(r *domain.OrganRates, v *float64) { r.Lung = v }),
	}
}

// demoRules expands one demographic breakdown into its four leaf rules.
func demoRules(prefix string, getSrc func(*domain.Demographics) *domain.DemographicBreakdown, ensure func(*domain.OPO) *domain.DemographicBreakdown) []fieldRule {
	leaf := func(group string, get func(*domain.DemographicBreakdown) *float64, set func(*domain.DemographicBreakdown, *float64)) fieldRule {
		return numRule(prefix+"."+group,
			func(o *domain.OPO) *float64 {
				if o.Demographics == nil {
					return nil
				}
				b := getSrc(o.Demographics)
				if b == nil {
					return nil
				}
				return get(b)
			},
			func(o *domain.OPO, v *float64) { set(ensure(o), v) },
		)
	}
	return []fieldRule{
		leaf("white", func(b *domain.DemographicBreakdown) *float64 { return b.White }, func(b *domain.DemographicBreakdown, v *float64) { b.White = v }),
		leaf("black", func(b *domain.DemographicBreakdown) *float64 { return b.Black }, func(b *domain.DemographicBreakdown, v *float64) { b.Black = v }),
		leaf("hispanic", func(b *domain.DemographicBreakdown) *float64 { return b.Hispanic }, func(b *domain.DemographicBreakdown, v *float64) { b.Hispanic = v }),
		leaf("asian", func(b *domain.DemographicBreakdown) *float64 { return b.Asian }, func(b *domain.DemographicBreakdown, v *float64) { b.Asian = v }),
	}
}

// precedenceRules is the complete ordered rule list: every mergeable leaf
// field of the canonical record appears here exactly once. Two list-valued
// exceptions follow the scalar rules: states/regions and transplant-center
// affiliations replace wholesale when the enrichment list is non-empty.
var precedenceRules = buildRules()

func buildRules() []fieldRule {
	rules := []fieldRule{
		strRule("name",
			func(o *domain.OPO) *string { return o.Name },
			func(o *domain.OPO, v *string) { o.Name = v }),

		strRule("location.state",
			func(o *domain.OPO) *string { return locGet(o, func(l *domain.Location) *string { return l.State }) },
			func(o *domain.OPO, v *string) { loc(o).State = v }),
		strRule("location.city",
			func(o *domain.OPO) *string { return locGet(o, func(l *domain.Location) *string { return l.City }) },
			func(o *domain.OPO, v *string) { loc(o).City = v }),
		strRule("location.address",
			func(o *domain.OPO) *string { return locGet(o, func(l *domain.Location) *string { return l.Address }) },
			func(o *domain.OPO, v *string) { loc(o).Address = v }),
		strRule("location.phone",
			func(o *domain.OPO) *string { return locGet(o, func(l *domain.Location) *string { return l.Phone }) },
			func(o *domain.OPO, v *string) { loc(o).Phone = v }),
		strRule("location.region",
			func(o *domain.OPO) *string { return locGet(o, func(l *domain.Location) *string { return l.Region }) },
			func(o *domain.OPO, v *string) { loc(o).Region = v }),

		intRule("cms_status.tier",
			func(o *domain.OPO) *int { return cmsGet(o, func(c *domain.CMSStatus) *int { return c.Tier }) },
			func(o *domain.OPO, v *int) { cms(o).Tier = v }),
		intRule("cms_status.cycle_year",
			func(o *domain.OPO) *int { return cmsGet(o, func(c *domain.CMSStatus) *int { return c.CycleYear }) },
			func(o *domain.OPO, v *int) { cms(o).CycleYear = v }),
		boolRule("cms_status.at_risk",
			func(o *domain.OPO) *bool {
				if o.CMSStatus == nil {
					return nil
				}
				return o.CMSStatus.AtRisk
			},
			func(o *domain.OPO, v *bool) { cms(o).AtRisk = v }),

		numRule("metrics.donation_rate",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.DonationRate }) },
			func(o *domain.OPO, v *float64) { met(o).DonationRate = v }),
		numRule("metrics.transplantation_rate",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.TransplantationRate }) },
			func(o *domain.OPO, v *float64) { met(o).TransplantationRate = v }),
		numRule("metrics.conversion_rate",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.ConversionRate }) },
			func(o *domain.OPO, v *float64) { met(o).ConversionRate = v }),
		numRule("metrics.organs_transplanted_per_donor",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.OrgansTransplantedPerDonor }) },
			func(o *domain.OPO, v *float64) { met(o).OrgansTransplantedPerDonor = v }),
		numRule("metrics.observed_expected_ratio",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.ObservedExpectedRatio }) },
			func(o *domain.OPO, v *float64) { met(o).ObservedExpectedRatio = v }),
		numRule("metrics.shadow_deaths",
			func(o *domain.OPO) *float64 { return metGet(o, func(m *domain.Metrics) *float64 { return m.ShadowDeaths }) },
			func(o *domain.OPO, v *float64) { met(o).ShadowDeaths = v }),
		intRule("metrics.rank",
			func(o *domain.OPO) *int {
				if o.Metrics == nil {
					return nil
				}
				return o.Metrics.Rank
			},
			func(o *domain.OPO, v *int) { met(o).Rank = v }),
	}

	rules = append(rules, organRules("metrics.observed_expected_by_organ",
		func(m *domain.Metrics) *domain.OrganRates { return m.ObservedExpectedByOrgan },
		organ(func(m *domain.Metrics) **domain.OrganRates { return &m.ObservedExpectedByOrgan }))...)
	rules = append(rules, organRules("metrics.discard_rates",
		func(m *domain.Metrics) *domain.OrganRates { return m.DiscardRates },
		organ(func(m *domain.Metrics) **domain.OrganRates { return &m.DiscardRates }))...)
	rules = append(rules, organRules("metrics.recovery_rate",
		func(m *domain.Metrics) *domain.OrganRates { return m.RecoveryRate },
		organ(func(m *domain.Metrics) **domain.OrganRates { return &m.RecoveryRate }))...)

	rules = append(rules,
		numRule("financials.revenue",
			func(o *domain.OPO) *float64 { return finGet(o, func(f *domain.Financials) *float64 { return f.Revenue }) },
			func(o *domain.OPO, v *float64) { fin(o).Revenue = v }),
		numRule("financials.expenses",
			func(o *domain.OPO) *float64 { return finGet(o, func(f *domain.Financials) *float64 { return f.Expenses }) },
			func(o *domain.OPO, v *float64) { fin(o).Expenses = v }),
		numRule("financials.assets",
			func(o *domain.OPO) *float64 { return finGet(o, func(f *domain.Financials) *float64 { return f.Assets }) },
			func(o *domain.OPO, v *float64) { fin(o).Assets = v }),
		numRule("financials.ceo_compensation",
			func(o *domain.OPO) *float64 { return finGet(o, func(f *domain.Financials) *float64 { return f.CEOCompensation }) },
			func(o *domain.OPO, v *float64) { fin(o).CEOCompensation = v }),
		numRule("financials.oac_per_organ",
			func(o *domain.OPO) *float64 { return finGet(o, func(f *domain.Financials) *float64 { return f.OACPerOrgan }) },
			func(o *domain.OPO, v *float64) { fin(o).OACPerOrgan = v }),
		intRule("financials.tax_year",
			func(o *domain.OPO) *int {
				if o.Financials == nil {
					return nil
				}
				return o.Financials.TaxYear
			},
			func(o *domain.OPO, v *int) { fin(o).TaxYear = v }),

		strRule("leadership.ceo",
			func(o *domain.OPO) *string {
				if o.Leadership == nil {
					return nil
				}
				return o.Leadership.CEO
			},
			func(o *domain.OPO, v *string) { lead(o).CEO = v }),
		boolRule("leadership.board_independence_disclosed",
			func(o *domain.OPO) *bool {
				if o.Leadership == nil {
					return nil
				}
				return o.Leadership.BoardIndependenceDisclosed
			},
			func(o *domain.OPO, v *bool) { lead(o).BoardIndependenceDisclosed = v }),

		strRule("ein",
			func(o *domain.OPO) *string { return o.EIN },
			func(o *domain.OPO, v *string) { o.EIN = v }),
	)

	rules = append(rules, demoRules("demographics.eligible_deaths",
		func(d *domain.Demographics) *domain.DemographicBreakdown { return d.EligibleDeaths },
		demoBreakdown(func(d *domain.Demographics) **domain.DemographicBreakdown { return &d.EligibleDeaths }))...)
	rules = append(rules, demoRules("demographics.demographic_rank",
		func(d *domain.Demographics) *domain.DemographicBreakdown { return d.DemographicRank },
		demoBreakdown(func(d *domain.Demographics) **domain.DemographicBreakdown { return &d.DemographicRank }))...)

	// List-valued fields replace wholesale when the enrichment list is
	// non-empty; element-wise merging of lists is never attempted.
	rules = append(rules,
		fieldRule{name: "states_served", apply: func(dst, src *domain.OPO) {
			if len(src.StatesServed) > 0 {
				dst.StatesServed = append([]string(nil), src.StatesServed...)
			}
		}},
		fieldRule{name: "regions", apply: func(dst, src *domain.OPO) {
			if len(src.Regions) > 0 {
				dst.Regions = append([]string(nil), src.Regions...)
			}
		}},
		fieldRule{name: "relationships.transplant_centers", apply: func(dst, src *domain.OPO) {
			if src.Relationships == nil || len(src.Relationships.TransplantCenters) == 0 {
				return
			}
			centers := append([]domain.TransplantCenter(nil), src.Relationships.TransplantCenters...)
			dst.Relationships = &domain.Relationships{TransplantCenters: centers}
		}},
	)

	return rules
}

func locGet(o *domain.OPO, get func(*domain.Location) *string) *string {
	if o.Location == nil {
		return nil
	}
	return get(o.Location)
}

func cmsGet(o *domain.OPO, get func(*domain.CMSStatus) *int) *int {
	if o.CMSStatus == nil {
		return nil
	}
	return get(o.CMSStatus)
}

func metGet(o *domain.OPO, get func(*domain.Metrics) *float64) *float64 {
	if o.Metrics == nil {
		return nil
	}
	return get(o.Metrics)
}

func finGet(o *domain.OPO, get func(*domain.Financials) *float64) *float64 {
	if o.Financials == nil {
		return nil
	}
	return get(o.Financials)
}
