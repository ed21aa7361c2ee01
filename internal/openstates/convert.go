// Package openstates converts OpenStates bulk "people/current" CSV exports into the per-state roster
// documents read by statelegis.
package openstates

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rep-lookup/internal/statelegis"
)

const DefaultBase = "https://data.openstates.org/people/current"

// Jurisdictions exported by default: the 50 states and DC, lowercased as OpenStates names its files.
var Jurisdictions = []string{
	"ak", "al", "ar", "az", "ca", "co", "ct", "de", "fl", "ga",
	"hi", "id", "il", "in", "ia", "ks", "ky", "la", "me", "md",
	"ma", "mi", "mn", "ms", "mo", "mt", "ne", "nv", "nh", "nj",
	"nm", "ny", "nc", "nd", "oh", "ok", "or", "pa", "ri", "sc",
	"sd", "tn", "tx", "ut", "vt", "va", "wa", "wv", "wi", "wy",
	"dc",
}

var partyNames = map[string]string{
	"Democratic":  "Democrat",
	"Democrat":    "Democrat",
	"Republican":  "Republican",
	"Independent": "Independent",
	"Nonpartisan": "Nonpartisan",
	"Green":       "Green",
	"Libertarian": "Libertarian",
}

func NormalizeParty(p string) string {
	p = strings.TrimSpace(p)
	if n, ok := partyNames[p]; ok {
		return n
	}
	return p
}

// NormalizeDistrict keeps numeric districts as numbers and everything else as text.
func NormalizeDistrict(d string) statelegis.District {
	d = strings.TrimSpace(d)
	if n, err := strconv.Atoi(d); err == nil {
		return statelegis.NumberDistrict(n)
	}
	return statelegis.StringDistrict(d)
}

// firstLink takes the first url of the links column, which holds a JSON list of {"url": ...}
// objects; a plain ";"-separated url list is accepted too.
func firstLink(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var links []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(s), &links); err == nil {
		if len(links) > 0 {
			return strings.TrimSpace(links[0].URL)
		}
		return ""
	}
	first := strings.TrimSpace(strings.Split(s, ";")[0])
	if strings.HasPrefix(first, "http://") || strings.HasPrefix(first, "https://") {
		return first
	}
	return ""
}

// chamber maps current_chamber to upper/lower. Nebraska's unicameral "legislature" counts as upper.
func chamber(c string) (string, bool) {
	switch strings.TrimSpace(c) {
	case "upper", "legislature":
		return "upper", true
	case "lower":
		return "lower", true
	default:
		return "", false
	}
}

// Convert reads one state's CSV. Rows without a name or a known chamber are skipped.
func Convert(r io.Reader) (statelegis.Roster, error) {
	out := statelegis.Roster{Upper: []statelegis.Legislator{}, Lower: []statelegis.Legislator{}}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row: %w", err)
		}
		ch, ok := chamber(get(rec, "current_chamber"))
		if !ok {
			continue
		}
		name := get(rec, "name")
		if name == "" {
			continue
		}
		leg := statelegis.Legislator{
			Name:            name,
			Party:           NormalizeParty(get(rec, "current_party")),
			District:        NormalizeDistrict(get(rec, "current_district")),
			Phone:           get(rec, "capitol_voice"),
			Address:         get(rec, "capitol_address"),
			DistrictPhone:   get(rec, "district_voice"),
			DistrictAddress: get(rec, "district_address"),
			Email:           get(rec, "email"),
			Website:         firstLink(get(rec, "links")),
		}
		if ch == "upper" {
			out.Upper = append(out.Upper, leg)
		} else {
			out.Lower = append(out.Lower, leg)
		}
	}
	return out, nil
}
