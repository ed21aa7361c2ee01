// Package geo holds the geography record shared by the geocoder, the territory table and the orchestrator,
// together with the error taxonomy of the resolution pipeline.
package geo

// AtLarge is the raw district code for a single-seat state or territory.
const AtLarge = "00"

// Record is the geography of one location. Empty strings mean "absent".
// District is the raw upstream code ("00", "98", "07", ...) and must go through NormalizeDistrict
// before any directory lookup.
type Record struct {
	StateFIPS string `json:"stateFips"`
	District  string `json:"district,omitempty"`
	SLDU      string `json:"sldu,omitempty"`
	SLDL      string `json:"sldl,omitempty"`
}
