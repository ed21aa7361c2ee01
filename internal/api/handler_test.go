package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"rep-lookup/internal/federal"
	"rep-lookup/internal/geo"
	"rep-lookup/internal/ipgeo"
	"rep-lookup/internal/middleware"
	"rep-lookup/internal/resolve"
	"rep-lookup/internal/statelegis"
	"rep-lookup/internal/states"
	"rep-lookup/internal/store"
)

type call struct {
	address  string
	lat, lon float64
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []call
	res   resolve.Resolution
	err   error
}

func (f *fakeResolver) ByAddress(_ context.Context, address string) (resolve.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{address: address})
	return f.res, f.err
}

func (f *fakeResolver) ByCoordinates(_ context.Context, lat, lon float64) (resolve.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{lat: lat, lon: lon})
	return f.res, f.err
}

type fakeOffices struct {
	offices map[string][]federal.Office
	stall   map[string]bool
}

func (f *fakeOffices) DistrictOfficesFor(_ context.Context, id string) []federal.Office {
	return append([]federal.Office{}, f.offices[id]...)
}

func (f *fakeOffices) DistrictOfficesAsync(ctx context.Context, id string) <-chan []federal.Office {
	ch := make(chan []federal.Office, 1)
	if !f.stall[id] {
		ch <- f.DistrictOfficesFor(ctx, id)
	}
	return ch
}

type fakeLocator map[string]ipgeo.Point

func (f fakeLocator) Locate(ip string) (ipgeo.Point, error) {
	if p, ok := f[ip]; ok {
		return p, nil
	}
	return ipgeo.Point{}, ipgeo.ErrNoLocation
}

type fakeStats struct {
	mu      sync.Mutex
	lookups []store.Lookup
	totals  *store.Totals
}

func (f *fakeStats) RecordLookup(_ context.Context, l store.Lookup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, l)
	return nil
}

func (f *fakeStats) GetTotals(context.Context) (*store.Totals, error) { return f.totals, nil }

func dcResolution() resolve.Resolution {
	zero := 0
	return resolve.Resolution{
		State:     "DC",
		Kind:      states.KindFederalDistrict,
		Geography: geo.Record{StateFIPS: "11", District: "98"},
		Source:    resolve.SourceGeocoder,
		Representative: resolve.OK(federal.Legislator{
			Name: "Eleanor Holmes Norton", Party: "Democrat", Bioguide: "N000147", State: "DC", District: &zero,
		}),
		Senators:         resolve.NotApplicable([]federal.Legislator{}, "No U.S. senators represent this jurisdiction."),
		StateLegislators: resolve.NotApplicable(statelegis.Match{}, "Local legislature data is not available for the District of Columbia."),
	}
}

type HandlerSuite struct {
	suite.Suite
	resolver *fakeResolver
	offices  *fakeOffices
	stats    *fakeStats
	deps     Deps
	router   http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.resolver = &fakeResolver{res: dcResolution()}
	s.offices = &fakeOffices{offices: map[string][]federal.Office{
		"N000147": {{City: "Washington", State: "DC", Zip: "20004"}},
	}}
	s.stats = &fakeStats{totals: &store.Totals{Total: 7, Today: 2, ByState: map[string]int64{"DC": 7}}}
	s.deps = Deps{
		Resolver:    s.resolver,
		Offices:     s.offices,
		IPLocator:   fakeLocator{"203.0.113.9": {Lat: 38.9, Lon: -77.03, AccuracyKm: 20}},
		Stats:       s.stats,
		OfficesWait: 50 * time.Millisecond,
	}
	s.router = s.build(s.deps)
}

func (s *HandlerSuite) build(d Deps) http.Handler {
	r := chi.NewRouter()
	New(d).Register(r)
	return r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) get(h http.Handler, target string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func (s *HandlerSuite) TestLookupByAddress() {
	rec, body := s.get(s.router, "/lookup?address="+url.QueryEscape("1600 Pennsylvania Ave NW, Washington, DC"), nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	s.Equal("DC", body["state"])
	rep := body["representative"].(map[string]any)
	s.Equal("ok", rep["status"])
	s.Equal("not_applicable", body["senators"].(map[string]any)["status"])
	s.Nil(body["offices"])
	s.Nil(body["location"])
	s.Equal([]call{{address: "1600 Pennsylvania Ave NW, Washington, DC"}}, s.resolver.calls)

	s.Require().Len(s.stats.lookups, 1)
	s.Equal(store.Lookup{State: "DC", NewVisitor: true}, s.stats.lookups[0])
}

func (s *HandlerSuite) TestLookupByCoordinates() {
	rec, _ := s.get(s.router, "/lookup?lat=38.8977&lon=-77.0365", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal([]call{{lat: 38.8977, lon: -77.0365}}, s.resolver.calls)
}

func (s *HandlerSuite) TestLookupBadCoordinates() {
	for _, q := range []string{"lat=abc&lon=1", "lat=38.9", "lon=-77"} {
		rec, body := s.get(s.router, "/lookup?"+q, nil)
		s.Equal(http.StatusBadRequest, rec.Code, q)
		s.Equal(geo.UserMessage(geo.ErrInvalidInput), body["error"], q)
	}
	s.Empty(s.resolver.calls)
	s.Require().Len(s.stats.lookups, 3)
	s.True(s.stats.lookups[0].Failed)
}

func (s *HandlerSuite) TestLookupFromClientIP() {
	rec, body := s.get(s.router, "/lookup", http.Header{"X-Forwarded-For": {"203.0.113.9, 10.0.0.1"}})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal([]call{{lat: 38.9, lon: -77.03}}, s.resolver.calls)
	loc := body["location"].(map[string]any)
	s.Equal(20.0, loc["accuracyKm"])
}

func (s *HandlerSuite) TestLookupUnknownClientIP() {
	rec, _ := s.get(s.router, "/lookup", http.Header{"X-Real-Ip": {"198.51.100.1"}})
	s.Equal(http.StatusBadRequest, rec.Code)

	d := s.deps
	d.IPLocator = nil
	rec, _ = s.get(s.build(d), "/lookup", http.Header{"X-Forwarded-For": {"203.0.113.9"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.resolver.calls)
}

func (s *HandlerSuite) TestLookupFromEdgeLocation() {
	h := middleware.Wrap(s.build(s.deps), middleware.Options{EdgeLatHeader: "X-Geo-Lat", EdgeLonHeader: "X-Geo-Lon"})
	rec, body := s.get(h, "/lookup", http.Header{"X-Geo-Lat": {"13.44"}, "X-Geo-Lon": {"144.79"}})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal([]call{{lat: 13.44, lon: 144.79}}, s.resolver.calls)
	s.NotNil(body["location"])
}

func (s *HandlerSuite) TestFatalErrorStatus() {
	tests := []struct {
		err    error
		status int
	}{
		{geo.ErrInvalidInput, http.StatusBadRequest},
		{geo.ErrAddressNotFound, http.StatusNotFound},
		{geo.ErrDistrictUnresolvable, http.StatusUnprocessableEntity},
		{fmt.Errorf("fips %q: %w", "99", geo.ErrStateUnmapped), http.StatusUnprocessableEntity},
		{geo.ErrGeocodeUnavailable, http.StatusBadGateway},
		{geo.ErrMalformedResponse, http.StatusBadGateway},
		{fmt.Errorf("census onelineaddress after 10s: %w", geo.ErrGeocodeTimeout), http.StatusGatewayTimeout},
		{errors.New("dial tcp: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s.resolver.err = tt.err
		rec, body := s.get(s.router, "/lookup?address=x", nil)
		s.Equal(tt.status, rec.Code, tt.err.Error())
		s.Equal(geo.UserMessage(tt.err), body["error"])
		s.NotContains(body["error"], "boom")
	}
	s.Equal("Census Geocoder request timed out.", geo.UserMessage(tests[6].err))
}

func (s *HandlerSuite) TestLookupEmbedsOffices() {
	rec, body := s.get(s.router, "/lookup?address=x&offices=1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	offices := body["offices"].(map[string]any)
	s.Require().Contains(offices, "N000147")
	s.Equal("20004", offices["N000147"].([]any)[0].(map[string]any)["zip"])
}

func (s *HandlerSuite) TestLookupOfficesWaitIsBounded() {
	s.offices.stall = map[string]bool{"N000147": true}
	t0 := time.Now()
	rec, body := s.get(s.router, "/lookup?address=x&offices=1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Less(time.Since(t0), time.Second)
	offices, _ := body["offices"].(map[string]any)
	s.NotContains(offices, "N000147")
	s.Equal("ok", body["representative"].(map[string]any)["status"])
}

func (s *HandlerSuite) TestOfficesEndpoint() {
	rec, body := s.get(s.router, "/offices/N000147", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(body["offices"], 1)

	rec, body = s.get(s.router, "/offices/X000000", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal([]any{}, body["offices"])
}

func (s *HandlerSuite) TestStats() {
	rec, body := s.get(s.router, "/stats", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(7.0, body["total"])

	d := s.deps
	d.Stats = nil
	rec, _ = s.get(s.build(d), "/stats", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestHealthAndMetrics() {
	rec, body := s.get(s.router, "/healthz", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.router.ServeHTTP(mrec, req)
	s.Equal(http.StatusOK, mrec.Code)
	s.Contains(mrec.Body.String(), "go_goroutines")
}

func (s *HandlerSuite) TestAdminGuard() {
	allow, err := middleware.ParseAllowList("192.0.2.0/24", "")
	s.Require().NoError(err)
	d := s.deps
	d.AdminGuard = allow.Guard
	h := s.build(d)

	// httptest requests come from 192.0.2.1
	rec, _ := s.get(h, "/stats", nil)
	s.Equal(http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "198.51.100.4:1234"
	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, req)
	s.Equal(http.StatusForbidden, mrec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.4:1234"
	hrec := httptest.NewRecorder()
	h.ServeHTTP(hrec, req)
	s.Equal(http.StatusOK, hrec.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header http.Header
		remote string
		want   string
	}{
		{"explicit param", "/lookup?ip=8.8.8.8", http.Header{"X-Forwarded-For": {"1.1.1.1"}}, "", "8.8.8.8"},
		{"forwarded for chain", "/lookup", http.Header{"X-Forwarded-For": {" 203.0.113.9 , 10.0.0.1"}}, "", "203.0.113.9"},
		{"cloudflare", "/lookup", http.Header{"Cf-Connecting-Ip": {"198.51.100.7"}}, "", "198.51.100.7"},
		{"rfc 7239", "/lookup", http.Header{"Forwarded": {`for="[2001:db8::1]";proto=https`}}, "", "2001:db8::1"},
		{"remote addr v4", "/lookup", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr v6", "/lookup", nil, "[2001:db8::2]:443", "2001:db8::2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			r.Header = tt.header
			if r.Header == nil {
				r.Header = http.Header{}
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/lookup?ip=8.8.8.8", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", visitorIP(r))
}

func TestBloomPositions(t *testing.T) {
	a := bloomPositions([]byte("203.0.113.9"), visitorBloomBits, visitorBloomK)
	b := bloomPositions([]byte("203.0.113.9"), visitorBloomBits, visitorBloomK)
	require.Len(t, a, visitorBloomK)
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.GreaterOrEqual(t, p, int64(0))
		assert.Less(t, p, int64(visitorBloomBits))
	}
	fresh, err := firstVisitToday(context.Background(), nil, "203.0.113.9", time.Now())
	require.NoError(t, err)
	assert.True(t, fresh)
	fresh, _ = firstVisitToday(context.Background(), nil, "", time.Now())
	assert.False(t, fresh)
}
