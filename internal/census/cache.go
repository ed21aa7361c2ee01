package census

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rep-lookup/internal/geo"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/metrics"
)

const DefaultCacheTTL = time.Hour

// CachedGeocoder keeps successful geography records in redis. Failures are never stored, so a
// timeout or outage is retried by the next request.
type CachedGeocoder struct {
	next Geocoder
	rc   *redis.Client
	ttl  time.Duration
}

// NewCached wraps next with a redis hot cache. A nil client returns next unchanged.
func NewCached(next Geocoder, rc *redis.Client, ttl time.Duration) Geocoder {
	if rc == nil {
		return next
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedGeocoder{next: next, rc: rc, ttl: ttl}
}

func (c *CachedGeocoder) GeocodeAddress(ctx context.Context, address string) (geo.Record, error) {
	key := AddressKey(address)
	if key == "" {
		return c.next.GeocodeAddress(ctx, address)
	}
	return c.cached(ctx, key, func() (geo.Record, error) { return c.next.GeocodeAddress(ctx, address) })
}

func (c *CachedGeocoder) GeocodeCoordinates(ctx context.Context, lat, lon float64) (geo.Record, error) {
	return c.cached(ctx, CoordinateKey(lat, lon), func() (geo.Record, error) {
		return c.next.GeocodeCoordinates(ctx, lat, lon)
	})
}

func (c *CachedGeocoder) cached(ctx context.Context, key string, load func() (geo.Record, error)) (geo.Record, error) {
	if s, err := c.rc.Get(ctx, key).Result(); err == nil && s != "" {
		var rec geo.Record
		if json.Unmarshal([]byte(s), &rec) == nil && rec.StateFIPS != "" {
			metrics.GeocodeCacheHitsTotal.Inc()
			return rec, nil
		}
	} else if err != nil && err != redis.Nil {
		logger.L().Warn("geocode_cache_get_error", "key", key, "err", err)
	}
	metrics.GeocodeCacheMissesTotal.Inc()
	rec, err := load()
	if err != nil {
		return rec, err
	}
	b, _ := json.Marshal(rec)
	if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
		logger.L().Warn("geocode_cache_set_error", "key", key, "err", err)
	}
	return rec, nil
}

// AddressKey normalises case and whitespace so trivially different spellings share an entry.
func AddressKey(address string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	if norm == "" {
		return ""
	}
	return "geo:addr:" + norm
}

// CoordinateKey rounds to 4 decimal places (about 11m).
func CoordinateKey(lat, lon float64) string {
	return "geo:xy:" + formatCoord(lat) + ":" + formatCoord(lon)
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
