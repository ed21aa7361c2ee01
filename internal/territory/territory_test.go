package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-lookup/internal/geo"
)

func TestMatchCoordinates(t *testing.T) {
	r := Default()
	tests := []struct {
		name     string
		lat, lon float64
		fips     string
		ok       bool
	}{
		{"guam hagatna", 13.4443, 144.7937, "66", true},
		{"american samoa pago pago", -14.2756, -170.702, "60", true},
		{"saipan", 15.1778, 145.7508, "69", true},
		{"st thomas", 18.3381, -64.8941, "78", true},
		{"san juan puerto rico", 18.4655, -66.1057, "", false},
		{"honolulu", 21.3069, -157.8583, "", false},
		{"bbox edge is inclusive", 13.2, 144.6, "66", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := r.MatchCoordinates(tt.lat, tt.lon)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, geo.Record{StateFIPS: tt.fips, District: "00"}, rec)
			}
		})
	}
}

func TestMatchAddress(t *testing.T) {
	r := Default()
	tests := []struct {
		addr string
		fips string
		ok   bool
	}{
		{"123 Marine Corps Dr, Hagatna, Guam", "66", true},
		{"PO Box 1, Tamuning GU 96931", "66", true},
		{"Pago Pago, AMERICAN SAMOA", "60", true},
		{"Garapan, Saipan MP 96950", "69", true},
		{"Capitol Hill, CNMI", "69", true},
		{"Charlotte Amalie, St Thomas, US Virgin Islands", "78", true},
		{"Christiansted VI 00820", "78", true},
		{"1 Calle Fortaleza, San Juan, PR 00901", "", false},
		{"1600 Pennsylvania Ave NW, Washington, DC 20500", "", false},
		{"Guamville Rd, Springfield", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			rec, ok := r.MatchAddress(tt.addr)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.fips, rec.StateFIPS)
				assert.Equal(t, geo.AtLarge, rec.District)
				assert.Empty(t, rec.SLDU)
				assert.Empty(t, rec.SLDL)
			}
		})
	}
}

func TestParseRejectsBadTable(t *testing.T) {
	_, err := Parse([]byte(`- code: XX
  aliases: ['\bxx\b']`))
	assert.ErrorContains(t, err, "missing fips")

	_, err = Parse([]byte(`- code: XX
  fips: "99"
  aliases: ['(']`))
	assert.Error(t, err)
}
