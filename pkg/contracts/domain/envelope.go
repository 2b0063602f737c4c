package domain

import "time"

// Envelope is the on-disk and over-the-wire shape shared by every per-source
// record set and by the merged output: a metadata header plus the records.
type Envelope struct {
	Metadata Metadata `json:"metadata"`
	OPOs     []OPO    `json:"opos"`
}

// Metadata describes one produced record set.
type Metadata struct {
	// Source is the source key ("base", "cms_tier", "hrsa", "srtr",
	// "propublica") or "merged" for the normalized output.
	Source      string `json:"source,omitempty"`
	GeneratedAt string `json:"generated_at"`
	Count       int    `json:"count"`

	// Sources is the per-source coverage breakdown, present only on the
	// merged output: how many base records found a matching enrichment.
	Sources map[string]SourceCoverage `json:"sources,omitempty"`
}

// SourceCoverage reports how much of the base universe one enrichment
// source matched.
type SourceCoverage struct {
	Count int    `json:"count"`
	Pct   string `json:"pct"`
}

// NewEnvelope wraps a record set with standard metadata.
func NewEnvelope(source string, opos []OPO) Envelope {
	return Envelope{
		Metadata: Metadata{
			Source:      source,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Count:       len(opos),
		},
		OPOs: opos,
	}
}
