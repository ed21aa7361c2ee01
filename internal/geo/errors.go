package geo

import "errors"

// Fatal errors abort a whole resolution.
var (
	ErrInvalidInput         = errors.New("invalid location input")
	ErrGeocodeTimeout       = errors.New("geocoder request timed out")
	ErrGeocodeUnavailable   = errors.New("geocoder unavailable")
	ErrMalformedResponse    = errors.New("malformed geocoder response")
	ErrAddressNotFound      = errors.New("address not found")
	ErrDistrictUnresolvable = errors.New("congressional district unresolvable")
	ErrStateUnmapped        = errors.New("state fips unmapped")
)

// Facet errors degrade a single facet of a resolution.
var (
	ErrNoRepresentative     = errors.New("no representative found")
	ErrStateDataUnavailable = errors.New("state legislator data unavailable")
	ErrRosterUnavailable    = errors.New("federal legislator roster unavailable")
)

var fatal = []error{
	ErrInvalidInput, ErrGeocodeTimeout, ErrGeocodeUnavailable, ErrMalformedResponse,
	ErrAddressNotFound, ErrDistrictUnresolvable, ErrStateUnmapped,
}

var messages = map[error]string{
	ErrInvalidInput:         "Please provide a street address or a valid latitude and longitude.",
	ErrGeocodeTimeout:       "Census Geocoder request timed out.",
	ErrGeocodeUnavailable:   "Census Geocoder is unavailable.",
	ErrMalformedResponse:    "Invalid response from Census Geocoder.",
	ErrAddressNotFound:      "Address not found. Try a more specific street address.",
	ErrDistrictUnresolvable: "Could not determine congressional district for this location.",
	ErrStateUnmapped:        "Could not determine state from this location.",
	ErrNoRepresentative:     "No House representative found for this district.",
	ErrStateDataUnavailable: "No state legislator data available for this state.",
	ErrRosterUnavailable:    "Could not load federal legislator data.",
}

// Fatal reports whether err belongs to the whole-resolution class.
func Fatal(err error) bool {
	for _, f := range fatal {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}

// UserMessage returns the end-user text for err. Unknown errors get a generic message so that
// transport details never leak into responses.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Something went wrong while looking up this location."
}
