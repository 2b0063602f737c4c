package identity

// CuratedEntry is one hand-maintained row of the static lookup table:
// filings keys and figures that cannot be resolved mechanically. The EIN
// is the nonprofit tax identifier; OACPerOrgan is the researched organ
// acquisition cost where an OPO discloses one.
type CuratedEntry struct {
	EIN         string
	OACPerOrgan *float64
}

func oac(v float64) *float64 { return &v }

// einTable maps DSA code to curated filings data. Entries exist where name
// search against the filings API is known to mismatch (renames, shared
// parent filers) or where the OPO is hospital-based and files under another
// entity. Codes absent here fall through to fuzzy name search.
var einTable = map[string]CuratedEntry{
	"ALOB": {EIN: "630959585", OACPerOrgan: oac(34200)},
	"AZOB": {EIN: "742187189"},
	"CADN": {EIN: "942580356", OACPerOrgan: oac(41750)},
	"FLWC": {EIN: "592097520"},
	"GALL": {EIN: "581493573", OACPerOrgan: oac(38900)},
	"ILIP": {EIN: "362883000"},
	"MAOB": {EIN: "042531595"},
	"MIOP": {EIN: "382161507", OACPerOrgan: oac(36400)},
	"MNOP": {EIN: "411391087"},
	"NYRT": {EIN: "132997301"},
	"OHOV": {EIN: "310928703"},
	"PADV": {EIN: "232077881", OACPerOrgan: oac(43100)},
	"TNDS": {EIN: "581793257"},
	"TXGC": {EIN: "741936751", OACPerOrgan: oac(39800)},
	"WALC": {EIN: "911348425"},
}

// CuratedEntryFor returns the static-table row for a DSA code, if any.
func CuratedEntryFor(dsaCode string) (CuratedEntry, bool) {
	e, ok := einTable[dsaCode]
	return e, ok
}
