package census

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rep-lookup/internal/geo"
)

const addressResponse = `{"result":{"input":{},"addressMatches":[{"matchedAddress":"1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500",
 "geographies":{
  "119th Congressional Districts":[{"GEOID":"1198","CDSESSN":"119","CD119":"98","STATE":"11","BASENAME":"Delegate District (at Large)"}],
  "States":[{"STATE":"11","NAME":"District of Columbia"}]
 }}]}}`

const coordinatesResponse = `{"result":{"input":{},"geographies":{
  "118th Congressional Districts":[{"GEOID":"0611","CD118":"11","STATE":"06"}],
  "119th Congressional Districts":[{"GEOID":"0612","CDSESSN":"119","CD119":"12","STATE":"06"}],
  "2024 State Legislative Districts - Upper":[{"SLDU":"011","STATE":"06"}],
  "2024 State Legislative Districts - Lower":[{"SLDL":"017","STATE":"06"}]
}}}`

type recorder struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (r *recorder) all() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.reqs...)
}

func serve(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, r.Clone(context.Background()))
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestGeocodeAddress(t *testing.T) {
	srv, seen := serve(t, http.StatusOK, addressResponse)
	c := New(srv.URL)

	rec, err := c.GeocodeAddress(context.Background(), "  1600 Pennsylvania Ave NW, Washington, DC ")
	require.NoError(t, err)
	assert.Equal(t, geo.Record{StateFIPS: "11", District: "98"}, rec)

	reqs := seen.all()
	require.Len(t, reqs, 1)
	r := reqs[0]
	assert.Equal(t, "/onelineaddress", r.URL.Path)
	q := r.URL.Query()
	assert.Equal(t, "1600 Pennsylvania Ave NW, Washington, DC", q.Get("address"))
	assert.Equal(t, DefaultBenchmark, q.Get("benchmark"))
	assert.Equal(t, DefaultVintage, q.Get("vintage"))
	assert.Equal(t, "json", q.Get("format"))
}

func TestGeocodeCoordinates(t *testing.T) {
	srv, seen := serve(t, http.StatusOK, coordinatesResponse)
	c := New(srv.URL, WithBenchmark("Public_AR_Census2020", "Census2020_Current"))

	rec, err := c.GeocodeCoordinates(context.Background(), 37.7793, -122.4193)
	require.NoError(t, err)
	assert.Equal(t, geo.Record{StateFIPS: "06", District: "12", SLDU: "011", SLDL: "017"}, rec)

	reqs := seen.all()
	require.Len(t, reqs, 1)
	q := reqs[0].URL.Query()
	assert.Equal(t, "/coordinates", reqs[0].URL.Path)
	assert.Equal(t, "-122.4193", q.Get("x"))
	assert.Equal(t, "37.7793", q.Get("y"))
	assert.Equal(t, "Public_AR_Census2020", q.Get("benchmark"))
	assert.Equal(t, "Census2020_Current", q.Get("vintage"))
}

func TestGeocodeInvalidInputSkipsRequest(t *testing.T) {
	srv, seen := serve(t, http.StatusOK, addressResponse)
	c := New(srv.URL)

	_, err := c.GeocodeAddress(context.Background(), "   ")
	assert.ErrorIs(t, err, geo.ErrInvalidInput)
	_, err = c.GeocodeCoordinates(context.Background(), 91, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidInput)
	assert.Empty(t, seen.all())
}

func TestGeocodeResponseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no address matches", http.StatusOK, `{"result":{"addressMatches":[]}}`, geo.ErrAddressNotFound},
		{"no result", http.StatusOK, `{"errors":["bad"]}`, geo.ErrMalformedResponse},
		{"result without geographies", http.StatusOK, `{"result":{"input":{}}}`, geo.ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>oops</html>`, geo.ErrMalformedResponse},
		{"no congressional layer", http.StatusOK, `{"result":{"geographies":{"States":[{"STATE":"06"}]}}}`, geo.ErrDistrictUnresolvable},
		{"empty congressional layer", http.StatusOK, `{"result":{"geographies":{"119th Congressional Districts":[]}}}`, geo.ErrDistrictUnresolvable},
		{"no district field", http.StatusOK, `{"result":{"geographies":{"119th Congressional Districts":[{"STATE":"06","GEOID":"06"}]}}}`, geo.ErrDistrictUnresolvable},
		{"server error", http.StatusInternalServerError, `{}`, geo.ErrGeocodeUnavailable},
		{"bad request", http.StatusBadRequest, `{"errors":["x"]}`, geo.ErrGeocodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.status, tt.body)
			_, err := New(srv.URL).GeocodeCoordinates(context.Background(), 38.9, -77.0)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeocodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).GeocodeAddress(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, geo.ErrGeocodeUnavailable)
}

func TestGeocodeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(addressResponse))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	t0 := time.Now()
	_, err := c.GeocodeAddress(context.Background(), "1600 Pennsylvania Ave NW")
	require.Error(t, err)
	assert.ErrorIs(t, err, geo.ErrGeocodeTimeout)
	assert.Less(t, time.Since(t0), time.Second)
	assert.Equal(t, "Census Geocoder request timed out.", geo.UserMessage(err))
}

func TestGeocodeCallerCancellationIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := New(srv.URL, WithTimeout(5*time.Second)).GeocodeAddress(ctx, "1 Main St")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, geo.ErrGeocodeTimeout))
}
