// Package territory short-circuits lookups inside U.S. territories that send a single at-large
// delegate, using address text patterns and bounding boxes instead of the geocoder.
package territory

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"rep-lookup/internal/geo"
)

//go:embed territories.yaml
var defaultTable []byte

type BBox struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Entry is one row of the table as written in YAML.
type Entry struct {
	Code    string   `yaml:"code"`
	FIPS    string   `yaml:"fips"`
	Aliases []string `yaml:"aliases"`
	Postal  []string `yaml:"postal"`
	BBox    BBox     `yaml:"bbox"`
}

type compiled struct {
	Entry
	patterns []*regexp.Regexp
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	entries []compiled
}

// Default uses the embedded table.
func Default() *Resolver {
	r, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("territory: embedded table: %v", err))
	}
	return r
}

// Parse builds a Resolver from a YAML table.
func Parse(doc []byte) (*Resolver, error) {
	var entries []Entry
	if err := yaml.Unmarshal(doc, &entries); err != nil {
		return nil, fmt.Errorf("decode territory table: %w", err)
	}
	return New(entries)
}

func New(entries []Entry) (*Resolver, error) {
	r := &Resolver{entries: make([]compiled, 0, len(entries))}
	for _, e := range entries {
		if e.FIPS == "" {
			return nil, fmt.Errorf("territory %q: missing fips", e.Code)
		}
		c := compiled{Entry: e}
		for _, expr := range append(append([]string(nil), e.Aliases...), e.Postal...) {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("territory %s: pattern %q: %w", e.Code, expr, err)
			}
			c.patterns = append(c.patterns, re)
		}
		r.entries = append(r.entries, c)
	}
	return r, nil
}

// MatchAddress tests the lowercased address against each territory's name and postal patterns.
func (r *Resolver) MatchAddress(address string) (geo.Record, bool) {
	text := strings.ToLower(address)
	for _, e := range r.entries {
		for _, re := range e.patterns {
			if re.MatchString(text) {
				return record(e.Entry), true
			}
		}
	}
	return geo.Record{}, false
}

func (r *Resolver) MatchCoordinates(lat, lon float64) (geo.Record, bool) {
	for _, e := range r.entries {
		if e.BBox.Contains(lat, lon) {
			return record(e.Entry), true
		}
	}
	return geo.Record{}, false
}

func record(e Entry) geo.Record {
	return geo.Record{StateFIPS: e.FIPS, District: geo.AtLarge}
}
