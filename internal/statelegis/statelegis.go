// Package statelegis looks up state senators and representatives from per-state roster documents.
package statelegis

import (
	"context"
	"fmt"
	"strings"

	"rep-lookup/internal/dataset"
	"rep-lookup/internal/geo"
)

const DefaultBase = "data/state-legislators"

type Legislator struct {
	Name            string   `json:"name"`
	Party           string   `json:"party"`
	District        District `json:"district"`
	Phone           string   `json:"phone,omitempty"`
	Address         string   `json:"address,omitempty"`
	DistrictPhone   string   `json:"district_phone,omitempty"`
	DistrictAddress string   `json:"district_address,omitempty"`
	Website         string   `json:"website,omitempty"`
	Email           string   `json:"email,omitempty"`
}

// Roster is the per-state document: {"upper": [...], "lower": [...]}.
type Roster struct {
	Upper []Legislator `json:"upper"`
	Lower []Legislator `json:"lower"`
}

// Match is the result for one location. A nil chamber means no legislator matched; that is not an error.
type Match struct {
	Upper *Legislator `json:"upper"`
	Lower *Legislator `json:"lower"`
}

// Find returns the first legislator whose district matches code.
func Find(legs []Legislator, code string) *Legislator {
	for i := range legs {
		if legs[i].District.Matches(code) {
			l := legs[i]
			return &l
		}
	}
	return nil
}

type Directory struct {
	rosters *dataset.Cache[Roster]
}

// New reads <key>.json documents from src, where key is the lowercased state code.
func New(src dataset.Source, opts ...dataset.Option) *Directory {
	opts = append([]dataset.Option{dataset.WithRef(func(key string) string { return key + ".json" })}, opts...)
	return &Directory{rosters: dataset.New("state_roster", src, dataset.JSON[Roster](), opts...)}
}

// LegislatorsFor fails only when the state's document cannot be loaded.
func (d *Directory) LegislatorsFor(ctx context.Context, state, upper, lower string) (Match, error) {
	r, err := d.rosters.Get(ctx, strings.ToLower(strings.TrimSpace(state)))
	if err != nil {
		return Match{}, fmt.Errorf("%s: %w: %w", state, geo.ErrStateDataUnavailable, err)
	}
	return Match{Upper: Find(r.Upper, upper), Lower: Find(r.Lower, lower)}, nil
}
