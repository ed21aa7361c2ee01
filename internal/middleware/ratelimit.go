package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rep-lookup/internal/logger"
)

// TokenBucket is a per-second request budget. Requests over budget are rejected with 429, never queued.
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Options configures Wrap. Zero RateLimitQPS disables limiting.
type Options struct {
	RateLimitQPS int
	// Header names a CDN or edge proxy uses to forward the client's approximate position.
	EdgeLatHeader string
	EdgeLonHeader string
}

// EdgeLocation is the client position reported by an edge proxy, when present.
type EdgeLocation struct {
	Lat float64
	Lon float64
}

type edgeKey struct{}

// EdgeLocationFrom returns the edge-reported position stored by Wrap.
func EdgeLocationFrom(ctx context.Context) (EdgeLocation, bool) {
	v, ok := ctx.Value(edgeKey{}).(EdgeLocation)
	return v, ok
}

// Wrap applies the optional rate limit and injects edge-reported client coordinates into the request context.
// Header parse failures are ignored; the request proceeds without a location hint.
func Wrap(next http.Handler, opts Options) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if loc, ok := parseEdgeLocation(r, opts); ok {
			logger.L().Debug("edge_geo_inject", "lat", loc.Lat, "lon", loc.Lon)
			r = r.WithContext(context.WithValue(r.Context(), edgeKey{}, loc))
		}
		next.ServeHTTP(w, r)
	})
	if opts.RateLimitQPS <= 0 {
		return h
	}
	tb := NewTokenBucket(opts.RateLimitQPS)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func parseEdgeLocation(r *http.Request, opts Options) (EdgeLocation, bool) {
	if opts.EdgeLatHeader == "" || opts.EdgeLonHeader == "" {
		return EdgeLocation{}, false
	}
	latS, lonS := r.Header.Get(opts.EdgeLatHeader), r.Header.Get(opts.EdgeLonHeader)
	if latS == "" || lonS == "" {
		return EdgeLocation{}, false
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return EdgeLocation{}, false
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil || lon < -180 || lon > 180 {
		return EdgeLocation{}, false
	}
	return EdgeLocation{Lat: lat, Lon: lon}, true
}
