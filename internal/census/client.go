// Package census is the geography client: it turns an address or a coordinate pair into a geo.Record
// using the Census Bureau geocoder's geographies endpoints.
package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rep-lookup/internal/geo"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/metrics"
)

const (
	DefaultBenchmark = "Public_AR_Current"
	DefaultVintage   = "Current_Current"
	DefaultTimeout   = 10 * time.Second
)

// Geocoder is what the orchestrator needs from a geography source.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (geo.Record, error)
	GeocodeCoordinates(ctx context.Context, lat, lon float64) (geo.Record, error)
}

// Client calls the Census geocoder. Every call issues exactly one request and is bounded by a client-side
// timeout that applies regardless of any server-side limit.
type Client struct {
	base      string
	benchmark string
	vintage   string
	timeout   time.Duration
	http      *http.Client
	matchers  []FieldMatcher
}

type Option func(*Client)

// WithHTTPClient replaces the default transport. Its own Timeout should be zero or larger than the
// geocode timeout, otherwise it masks ErrGeocodeTimeout.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithBenchmark(benchmark, vintage string) Option {
	return func(c *Client) {
		if benchmark != "" {
			c.benchmark = benchmark
		}
		if vintage != "" {
			c.vintage = vintage
		}
	}
}

// WithDistrictMatchers appends matchers after the defaults, for district field names introduced by
// later sessions of Congress that the defaults do not recognise.
func WithDistrictMatchers(m ...FieldMatcher) Option {
	return func(c *Client) { c.matchers = append(c.matchers, m...) }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base:      strings.TrimRight(base, "/"),
		benchmark: DefaultBenchmark,
		vintage:   DefaultVintage,
		timeout:   DefaultTimeout,
		http:      &http.Client{},
		matchers:  append([]FieldMatcher(nil), DefaultDistrictMatchers...),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) GeocodeAddress(ctx context.Context, address string) (geo.Record, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Record{}, geo.ErrInvalidInput
	}
	q := url.Values{}
	q.Set("address", address)
	return c.query(ctx, "onelineaddress", q)
}

func (c *Client) GeocodeCoordinates(ctx context.Context, lat, lon float64) (geo.Record, error) {
	if !ValidCoordinates(lat, lon) {
		return geo.Record{}, geo.ErrInvalidInput
	}
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(lat, 'f', -1, 64))
	return c.query(ctx, "coordinates", q)
}

// ValidCoordinates reports whether lat/lon are finite WGS84 degrees.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// query runs one request under the client timeout. When the timer fires first the caller gets
// ErrGeocodeTimeout and whatever the server sends later is dropped with the cancelled request.
func (c *Client) query(ctx context.Context, endpoint string, q url.Values) (geo.Record, error) {
	q.Set("benchmark", c.benchmark)
	q.Set("vintage", c.vintage)
	q.Set("format", "json")

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(tctx, http.MethodGet, c.base+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Record{}, fmt.Errorf("census %s: %w: %w", endpoint, geo.ErrGeocodeUnavailable, err)
	}
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.L().Debug("geocode_req", "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return geo.Record{}, c.fail(ctx, tctx, endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.GeocodeFailTotal.WithLabelValues("status").Inc()
		logger.L().Error("geocode_http_status", "endpoint", endpoint, "status", resp.StatusCode)
		return geo.Record{}, fmt.Errorf("census %s: status %d: %w", endpoint, resp.StatusCode, geo.ErrGeocodeUnavailable)
	}

	var p payload
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		if tctx.Err() != nil {
			return geo.Record{}, c.fail(ctx, tctx, endpoint, err)
		}
		metrics.GeocodeFailTotal.WithLabelValues("decode").Inc()
		logger.L().Error("geocode_decode_error", "endpoint", endpoint, "err", err)
		return geo.Record{}, fmt.Errorf("census %s: %w: %w", endpoint, geo.ErrMalformedResponse, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))

	rec, err := extractGeography(p, c.matchers)
	if err != nil {
		metrics.GeocodeFailTotal.WithLabelValues("extract").Inc()
		logger.L().Debug("geocode_extract_fail", "endpoint", endpoint, "err", err, "duration_ms", dur)
		return geo.Record{}, fmt.Errorf("census %s: %w", endpoint, err)
	}
	logger.L().Debug("geocode_resp", "endpoint", endpoint, "state", rec.StateFIPS, "district", rec.District,
		"sldu", rec.SLDU, "sldl", rec.SLDL, "duration_ms", dur)
	return rec, nil
}

// fail classifies a transport error. Our own deadline is a timeout; a caller cancellation is passed
// through untouched; everything else means the service is unreachable.
func (c *Client) fail(ctx, tctx context.Context, endpoint string, err error) error {
	switch {
	case ctx.Err() != nil:
		metrics.GeocodeFailTotal.WithLabelValues("cancelled").Inc()
		return fmt.Errorf("census %s: %w", endpoint, ctx.Err())
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		metrics.GeocodeFailTotal.WithLabelValues("timeout").Inc()
		logger.L().Warn("geocode_timeout", "endpoint", endpoint, "timeout", c.timeout)
		return fmt.Errorf("census %s after %s: %w", endpoint, c.timeout, geo.ErrGeocodeTimeout)
	default:
		metrics.GeocodeFailTotal.WithLabelValues("transport").Inc()
		logger.L().Error("geocode_http_error", "endpoint", endpoint, "err", err)
		return fmt.Errorf("census %s: %w: %w", endpoint, geo.ErrGeocodeUnavailable, err)
	}
}
