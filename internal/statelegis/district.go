package statelegis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// District is a legislative district label. Datasets store numbered districts as JSON numbers and
// named ones ("Chittenden-6-1", "At-Large") as strings; re-encoding keeps the form it was read in.
type District struct {
	raw     string
	numeric bool
}

func NumberDistrict(n int) District    { return District{raw: strconv.Itoa(n), numeric: true} }
func StringDistrict(s string) District { return District{raw: s} }
func (d District) String() string      { return d.raw }
func (d District) IsNumber() bool      { return d.numeric }

// Int returns the district as an integer when it is a number or a numeric string.
func (d District) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(d.raw))
	return n, err == nil
}

func (d *District) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*d = District{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = District{raw: s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*d = District{raw: n.String(), numeric: true}
		return nil
	}
}

// MarshalJSON writes an absent district as null.
func (d District) MarshalJSON() ([]byte, error) {
	switch {
	case d.numeric:
		return []byte(d.raw), nil
	case d.raw == "":
		return []byte("null"), nil
	default:
		return json.Marshal(d.raw)
	}
}

// Matches compares against a raw district code from the geocoder ("003", "12", "A"). Integer forms
// are compared when both sides parse, otherwise the strings are compared case-insensitively.
func (d District) Matches(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || d.raw == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(d.raw), code) {
		return true
	}
	qn, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	n, ok := d.Int()
	return ok && n == qn
}
