package domain

// Source keys for the five record products. The base directory defines the
// DSA-code universe; the other four only ever attach to it.
const (
	SourceBase       = "base"
	SourceCMSTier    = "cms_tier"
	SourceHRSA       = "hrsa"
	SourceSRTR       = "srtr"
	SourcePropublica = "propublica"
	SourceMerged     = "merged"
)

// EnrichmentSources lists the enrichment keys in merge application order.
// Later sources win when two enrichments carry the same leaf field; the
// CMS tier classification deliberately outranks the assessment workbook's.
var EnrichmentSources = []string{SourcePropublica, SourceHRSA, SourceSRTR, SourceCMSTier}
