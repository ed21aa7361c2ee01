package census

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rep-lookup/internal/geo"
)

// geographies maps a layer name ("119th Congressional Districts", "2024 State Legislative Districts - Upper", ...)
// to its entries. Entries are kept loose since field sets differ per layer and vintage.
type geographies map[string][]map[string]any

type payload struct {
	Result *struct {
		AddressMatches *[]struct {
			Geographies geographies `json:"geographies"`
		} `json:"addressMatches"`
		Geographies geographies `json:"geographies"`
	} `json:"result"`
}

// FieldMatcher recognises the field of a congressional layer entry that carries the district number.
type FieldMatcher interface {
	MatchField(name string) bool
}

type patternMatcher struct{ re *regexp.Regexp }

func (p patternMatcher) MatchField(name string) bool { return p.re.MatchString(name) }

// Pattern builds a case-insensitive FieldMatcher from a regular expression.
func Pattern(expr string) FieldMatcher {
	return patternMatcher{re: regexp.MustCompile("(?i)" + expr)}
}

// DefaultDistrictMatchers covers session-numbered fields (CD118, CD119), CDFP and bare CD.
var DefaultDistrictMatchers = []FieldMatcher{
	Pattern(`^CD\d+$`),
	Pattern(`^CDFP$`),
	Pattern(`^CD$`),
}

// sessionField holds the Congress number, never a district.
const sessionField = "CDSESSN"

const (
	congressionalLayer = "Congressional Districts"
	upperLayer         = "State Legislative Districts - Upper"
	lowerLayer         = "State Legislative Districts - Lower"
)

func extractGeography(p payload, matchers []FieldMatcher) (geo.Record, error) {
	if p.Result == nil {
		return geo.Record{}, fmt.Errorf("no result object: %w", geo.ErrMalformedResponse)
	}
	var layers geographies
	switch {
	case p.Result.AddressMatches != nil && len(*p.Result.AddressMatches) > 0:
		layers = (*p.Result.AddressMatches)[0].Geographies
	case p.Result.AddressMatches != nil:
		return geo.Record{}, geo.ErrAddressNotFound
	default:
		layers = p.Result.Geographies
	}
	if layers == nil {
		return geo.Record{}, fmt.Errorf("no geographies: %w", geo.ErrMalformedResponse)
	}

	cd := firstEntry(layers, congressionalLayer)
	if cd == nil {
		return geo.Record{}, fmt.Errorf("no congressional layer: %w", geo.ErrDistrictUnresolvable)
	}
	geoid := field(cd, "GEOID")
	state := field(cd, "STATE")
	if state == "" && len(geoid) >= 2 {
		state = geoid[:2]
	}
	if state == "" {
		return geo.Record{}, fmt.Errorf("congressional entry without state: %w", geo.ErrMalformedResponse)
	}
	district := districtField(cd, matchers)
	if district == "" && len(geoid) > 2 {
		district = geoid[2:]
	}
	if district == "" {
		return geo.Record{}, fmt.Errorf("congressional entry without district: %w", geo.ErrDistrictUnresolvable)
	}

	rec := geo.Record{StateFIPS: state, District: district}
	if e := firstEntry(layers, upperLayer); e != nil {
		rec.SLDU = legislativeDistrict(e)
	}
	if e := firstEntry(layers, lowerLayer); e != nil {
		rec.SLDL = legislativeDistrict(e)
	}
	return rec, nil
}

// firstEntry returns the first entry of the first non-empty layer whose name contains marker. Layer
// names are scanned in descending order so the newest vintage ("119th" before "118th") wins.
func firstEntry(layers geographies, marker string) map[string]any {
	names := make([]string, 0, len(layers))
	for name := range layers {
		if strings.Contains(name, marker) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		if entries := layers[name]; len(entries) > 0 {
			return entries[0]
		}
	}
	return nil
}

func districtField(entry map[string]any, matchers []FieldMatcher) string {
	names := make([]string, 0, len(entry))
	for name := range entry {
		if !strings.EqualFold(name, sessionField) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, m := range matchers {
		for _, name := range names {
			if !m.MatchField(name) {
				continue
			}
			if v := field(entry, name); v != "" {
				return v
			}
		}
	}
	return ""
}

func legislativeDistrict(entry map[string]any) string {
	for _, k := range []string{"SLDU", "SLDL", "BASENAME"} {
		if v := field(entry, k); v != "" {
			return v
		}
	}
	return ""
}

func field(entry map[string]any, key string) string {
	switch v := entry[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
