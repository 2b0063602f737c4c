package domain

// TierRecord is the multi-year performance history for one OPO as published
// in the CMS summary workbook. It feeds CMSStatus on the canonical record
// but is persisted in its own envelope so the full history survives.
type TierRecord struct {
	DSACode string `json:"dsa_code"`

	// TierHistory maps cycle year to tier; a year with no published value is
	// absent from the map.
	TierHistory map[int]int `json:"tier_history"`

	// DonationRateCategory and TransplantRateCategory map cycle year to the
	// published category label for that measure.
	DonationRateCategory   map[int]string `json:"donation_rate_category"`
	TransplantRateCategory map[int]string `json:"transplant_rate_category"`

	// LatestTier is the tier of the most recent year with a known value,
	// scanning the window most-recent-first. Nil when no year has one.
	LatestTier *int `json:"latest_tier"`

	// LatestTierYear is the cycle year LatestTier was taken from.
	LatestTierYear *int `json:"latest_tier_year"`
}

// TierEnvelope is the persisted shape of the tier-history record set.
type TierEnvelope struct {
	Metadata Metadata     `json:"metadata"`
	Records  []TierRecord `json:"records"`
}
