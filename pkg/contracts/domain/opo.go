package domain

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OPO is the Single Source of Truth for one organ procurement organization.
// Every extractor produces partial OPO records; the merge engine folds them
// into one canonical record per DSA code. All attribute fields are pointers
// because provenance differs per OPO: a field no source supplied stays null
// in the JSON output rather than decaying to a zero value.
type OPO struct {
	// OPOID is a UUID-shaped identifier derived deterministically from the
	// DSA code. Same code, same id, across runs.
	OPOID string `json:"opo_id,omitempty"`

	// DSACode is the 4-letter donor service area code, the primary join key
	// across sources (e.g. "ALOB", "TXGC").
	DSACode string `json:"dsa_code" validate:"required,len=4,alpha,uppercase"`

	Name     *string   `json:"name"`
	Location *Location `json:"location,omitempty"`

	CMSStatus    *CMSStatus     `json:"cms_status,omitempty"`
	Metrics      *Metrics       `json:"metrics,omitempty"`
	Financials   *Financials    `json:"financials,omitempty"`
	Leadership   *Leadership    `json:"leadership,omitempty"`
	Demographics *Demographics  `json:"demographics,omitempty"`
	Relationships *Relationships `json:"relationships,omitempty"`

	// EIN is the nonprofit tax identifier. Hospital-based OPOs file under
	// their parent institution and have none of their own.
	EIN *string `json:"ein"`

	// StatesServed holds deduplicated state abbreviations; Regions keeps one
	// entry per service-area segment in source order.
	StatesServed []string `json:"states_served,omitempty"`
	Regions      []string `json:"regions,omitempty"`
}

// Location holds the contact and service-area fields of an OPO.
type Location struct {
	State   *string `json:"state"`
	City    *string `json:"city"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Region  *string `json:"region"`
}

// CMSStatus is the CMS performance classification for the most recent cycle.
type CMSStatus struct {
	// Tier is 1 (passing) through 3 (failing); nil when unknown.
	Tier      *int `json:"tier"`
	CycleYear *int `json:"cycle_year"`
	// AtRisk is derived from Tier (tier >= 2); nil when the tier is unknown.
	AtRisk *bool `json:"at_risk"`
}

// Metrics holds the clinical outcome measures attached to an OPO.
type Metrics struct {
	DonationRate               *float64 `json:"donation_rate"`
	TransplantationRate        *float64 `json:"transplantation_rate"`
	ConversionRate             *float64 `json:"conversion_rate"`
	OrgansTransplantedPerDonor *float64 `json:"organs_transplanted_per_donor"`
	ObservedExpectedRatio      *float64 `json:"observed_expected_ratio"`
	ObservedExpectedByOrgan    *OrganRates `json:"observed_expected_by_organ,omitempty"`
	DiscardRates               *OrganRates `json:"discard_rates,omitempty"`
	RecoveryRate               *OrganRates `json:"recovery_rate,omitempty"`
	ShadowDeaths               *float64 `json:"shadow_deaths"`
	Rank                       *int     `json:"rank"`
}

// OrganRates is a per-organ breakdown of one rate metric.
type OrganRates struct {
	Heart  *float64 `json:"heart"`
	Kidney *float64 `json:"kidney"`
	Liver  *float64 `json:"liver"`
	Lung   *float64 `json:"lung"`
}

// Financials holds figures from the most recent nonprofit filing.
type Financials struct {
	Revenue         *float64 `json:"revenue"`
	Expenses        *float64 `json:"expenses"`
	Assets          *float64 `json:"assets"`
	CEOCompensation *float64 `json:"ceo_compensation"`
	OACPerOrgan     *float64 `json:"oac_per_organ"`
	TaxYear         *int     `json:"tax_year"`
}

// Leadership holds governance fields disclosed in filings.
type Leadership struct {
	CEO                        *string `json:"ceo"`
	BoardIndependenceDisclosed *bool   `json:"board_independence_disclosed"`
}

// Demographics holds eligible-death counts and ranks broken down by group.
type Demographics struct {
	EligibleDeaths  *DemographicBreakdown `json:"eligible_deaths,omitempty"`
	DemographicRank *DemographicBreakdown `json:"demographic_rank,omitempty"`
}

// DemographicBreakdown is a per-group breakdown of one demographic measure.
type DemographicBreakdown struct {
	White    *float64 `json:"white"`
	Black    *float64 `json:"black"`
	Hispanic *float64 `json:"hispanic"`
	Asian    *float64 `json:"asian"`
}

// Relationships links an OPO to the transplant centers it serves.
type Relationships struct {
	TransplantCenters []TransplantCenter `json:"transplant_centers"`
}

// TransplantCenter is one affiliated hospital program. Code is the
// de-duplication key within one OPO.
type TransplantCenter struct {
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	City     *string  `json:"city"`
	Services []string `json:"services,omitempty"`
}

var dsaCodePattern = regexp.MustCompile(`^[A-Z]{4}$`)

// IsValidDSACode reports whether s has the 4-letter uppercase DSA code shape.
func IsValidDSACode(s string) bool {
	return dsaCodePattern.MatchString(s)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of a canonical record.
func (o *OPO) Validate() error {
	return validate.Struct(o)
}

// CenterKey returns the de-duplication key for a transplant center within
// one OPO: the center code when present, otherwise the normalized name.
func (c TransplantCenter) CenterKey() string {
	if c.Code != "" {
		return c.Code
	}
	return strings.ToLower(strings.TrimSpace(c.Name))
}
