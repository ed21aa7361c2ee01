// Package federal answers House and Senate questions from the unitedstates/congress-legislators
// datasets: who represents a district, who the senators of a state are, and where their district
// offices are.
package federal

import (
	"context"
	"fmt"

	"rep-lookup/internal/dataset"
	"rep-lookup/internal/geo"
	"rep-lookup/internal/logger"
)

const (
	DefaultRosterURL  = "https://unitedstates.github.io/congress-legislators/legislators-current.json"
	DefaultOfficesURL = "https://unitedstates.github.io/congress-legislators/legislators-district-offices.json"
)

// Legislator is the current term of a member of Congress.
type Legislator struct {
	Name        string `json:"name"`
	Party       string `json:"party"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	ContactForm string `json:"contactForm,omitempty"`
	DCAddress   string `json:"dcAddress,omitempty"`
	Bioguide    string `json:"bioguide"`
	State       string `json:"state"`
	District    *int   `json:"district,omitempty"`
	Rank        string `json:"rank,omitempty"`
}

type Office struct {
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Suite    string `json:"suite,omitempty"`
	Building string `json:"building,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

// Directory owns the roster and office caches. Both datasets are fetched at most once per process.
type Directory struct {
	rosterURL  string
	officesURL string
	roster     *dataset.Cache[[]person]
	offices    *dataset.Cache[map[string][]Office]
}

// New builds a Directory over src. Empty URLs fall back to the public datasets.
func New(src dataset.Source, rosterURL, officesURL string, opts ...dataset.Option) *Directory {
	if rosterURL == "" {
		rosterURL = DefaultRosterURL
	}
	if officesURL == "" {
		officesURL = DefaultOfficesURL
	}
	return &Directory{
		rosterURL:  rosterURL,
		officesURL: officesURL,
		roster:     dataset.New("federal_roster", src, dataset.JSON[[]person](), opts...),
		offices:    dataset.New[map[string][]Office]("federal_offices", src, decodeOffices, opts...),
	}
}

func (d *Directory) people(ctx context.Context) ([]person, error) {
	ps, err := d.roster.Get(ctx, d.rosterURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", geo.ErrRosterUnavailable, err)
	}
	return ps, nil
}

// RepresentativeFor returns the House member for state and a raw district code.
func (d *Directory) RepresentativeFor(ctx context.Context, state, rawDistrict string) (Legislator, error) {
	n, ok := geo.NormalizeDistrict(rawDistrict)
	if !ok {
		return Legislator{}, fmt.Errorf("%s district %q: %w", state, rawDistrict, geo.ErrNoRepresentative)
	}
	ps, err := d.people(ctx)
	if err != nil {
		return Legislator{}, err
	}
	for _, p := range ps {
		t, ok := p.current()
		if ok && t.Type == "rep" && t.State == state && t.District != nil && *t.District == n {
			return p.legislator(t), nil
		}
	}
	return Legislator{}, fmt.Errorf("%s district %d: %w", state, n, geo.ErrNoRepresentative)
}

// SenatorsFor returns the 0 to 2 current senators of state in roster order. No match is not an error.
func (d *Directory) SenatorsFor(ctx context.Context, state string) ([]Legislator, error) {
	ps, err := d.people(ctx)
	if err != nil {
		return nil, err
	}
	out := []Legislator{}
	for _, p := range ps {
		if t, ok := p.current(); ok && t.Type == "sen" && t.State == state {
			out = append(out, p.legislator(t))
		}
	}
	return out, nil
}

// DistrictOfficesFor never fails: a dataset that cannot be loaded reads as no offices.
func (d *Directory) DistrictOfficesFor(ctx context.Context, bioguide string) []Office {
	idx, err := d.offices.Get(ctx, d.officesURL)
	if err != nil {
		logger.L().Debug("district_offices_unavailable", "bioguide", bioguide, "err", err)
		return []Office{}
	}
	return append([]Office{}, idx[bioguide]...)
}

// DistrictOfficesAsync delivers DistrictOfficesFor on a channel that yields exactly one value.
func (d *Directory) DistrictOfficesAsync(ctx context.Context, bioguide string) <-chan []Office {
	ch := make(chan []Office, 1)
	go func() {
		defer close(ch)
		ch <- d.DistrictOfficesFor(ctx, bioguide)
	}()
	return ch
}
