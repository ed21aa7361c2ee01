// Package states maps Census FIPS codes to postal abbreviations and classifies each jurisdiction by which
// legislative bodies represent it.
package states

var fipsToAbbr = map[string]string{
	"01": "AL", "02": "AK", "04": "AZ", "05": "AR", "06": "CA",
	"08": "CO", "09": "CT", "10": "DE", "11": "DC", "12": "FL",
	"13": "GA", "15": "HI", "16": "ID", "17": "IL", "18": "IN",
	"19": "IA", "20": "KS", "21": "KY", "22": "LA", "23": "ME",
	"24": "MD", "25": "MA", "26": "MI", "27": "MN", "28": "MS",
	"29": "MO", "30": "MT", "31": "NE", "32": "NV", "33": "NH",
	"34": "NJ", "35": "NM", "36": "NY", "37": "NC", "38": "ND",
	"39": "OH", "40": "OK", "41": "OR", "42": "PA", "44": "RI",
	"45": "SC", "46": "SD", "47": "TN", "48": "TX", "49": "UT",
	"50": "VT", "51": "VA", "53": "WA", "54": "WV", "55": "WI",
	"56": "WY", "60": "AS", "66": "GU", "69": "MP", "72": "PR",
	"78": "VI",
}

// Abbr returns the two-letter code for a FIPS code. Absence is terminal for a resolution.
func Abbr(fips string) (string, bool) {
	a, ok := fipsToAbbr[fips]
	return a, ok
}

// Kind classifies a jurisdiction.
type Kind string

const (
	KindState Kind = "state"
	// KindFederalDistrict is DC: a delegate, no senators, no state legislature.
	KindFederalDistrict Kind = "federal_district"
	// KindTerritory has a delegate and its own legislature but no senators (PR).
	KindTerritory Kind = "territory"
	// KindTerritoryNoLegislature has a delegate and no legislature dataset (AS, GU, MP, VI).
	KindTerritoryNoLegislature Kind = "territory_no_legislature"
)

// HasSenators reports whether U.S. senators represent this kind of jurisdiction.
func (k Kind) HasSenators() bool { return k == KindState }

// HasStateLegislature reports whether a state-legislature lookup applies.
func (k Kind) HasStateLegislature() bool { return k == KindState || k == KindTerritory }

var special = map[string]Kind{
	"DC": KindFederalDistrict,
	"PR": KindTerritory,
	"AS": KindTerritoryNoLegislature,
	"GU": KindTerritoryNoLegislature,
	"MP": KindTerritoryNoLegislature,
	"VI": KindTerritoryNoLegislature,
}

// Classify returns the kind of a known abbreviation; everything else is a regular state.
func Classify(abbr string) Kind {
	if k, ok := special[abbr]; ok {
		return k
	}
	return KindState
}

// All returns every mapped abbreviation, in no particular order.
func All() []string {
	out := make([]string, 0, len(fipsToAbbr))
	for _, a := range fipsToAbbr {
		out = append(out, a)
	}
	return out
}
