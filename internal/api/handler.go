// Package api exposes the resolution pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"rep-lookup/internal/federal"
	"rep-lookup/internal/geo"
	"rep-lookup/internal/ipgeo"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/metrics"
	"rep-lookup/internal/middleware"
	"rep-lookup/internal/resolve"
	"rep-lookup/internal/store"
	"rep-lookup/internal/version"
)

type Resolver interface {
	ByAddress(ctx context.Context, address string) (resolve.Resolution, error)
	ByCoordinates(ctx context.Context, lat, lon float64) (resolve.Resolution, error)
}

type Offices interface {
	DistrictOfficesFor(ctx context.Context, bioguide string) []federal.Office
	DistrictOfficesAsync(ctx context.Context, bioguide string) <-chan []federal.Office
}

type IPLocator interface {
	Locate(ip string) (ipgeo.Point, error)
}

type Stats interface {
	RecordLookup(ctx context.Context, l store.Lookup) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Deps are the collaborators of Handler. IPLocator, Stats and Redis are optional.
type Deps struct {
	Resolver    Resolver
	Offices     Offices
	IPLocator   IPLocator
	Stats       Stats
	Redis       *redis.Client
	OfficesWait time.Duration
	// AdminGuard wraps /stats and /metrics when set.
	AdminGuard func(http.Handler) http.Handler
}

type Handler struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *Handler {
	if d.OfficesWait <= 0 {
		d.OfficesWait = 5 * time.Second
	}
	return &Handler{d: d, now: time.Now}
}

// Register mounts the API routes on r, relative to the API base.
func (h *Handler) Register(r chi.Router) {
	r.Get("/lookup", h.HandleLookup)
	r.Get("/offices/{bioguide}", h.HandleOffices)
	r.Get("/healthz", h.HandleHealth)
	r.Group(func(r chi.Router) {
		if h.d.AdminGuard != nil {
			r.Use(h.d.AdminGuard)
		}
		r.Get("/stats", h.HandleStats)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})
}

type lookupResponse struct {
	resolve.Resolution
	Location *ipgeo.Point                `json:"location,omitempty"`
	Offices  map[string][]federal.Office `json:"offices,omitempty"`
}

// HandleLookup resolves ?address=, ?lat=&lon=, or with neither the visitor's approximate position.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		res resolve.Resolution
		err error
		loc *ipgeo.Point
	)
	switch {
	case strings.TrimSpace(q.Get("address")) != "":
		res, err = h.d.Resolver.ByAddress(ctx, q.Get("address"))
	case q.Has("lat") || q.Has("lon"):
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil {
			err = geo.ErrInvalidInput
			break
		}
		res, err = h.d.Resolver.ByCoordinates(ctx, lat, lon)
	default:
		p, ok := h.approximate(r)
		if !ok {
			err = geo.ErrInvalidInput
			break
		}
		loc = &p
		res, err = h.d.Resolver.ByCoordinates(ctx, p.Lat, p.Lon)
	}
	h.record(r, res.State, err)
	if err != nil {
		logger.L().Debug("lookup_failed", "request_id", logger.RequestID(ctx), "err", err)
		writeError(w, err)
		return
	}

	out := lookupResponse{Resolution: res, Location: loc}
	if q.Get("offices") == "1" {
		out.Offices = h.collectOffices(ctx, res)
	}
	writeJSON(w, http.StatusOK, out)
}

// approximate prefers coordinates injected by the edge, then the MMDB.
func (h *Handler) approximate(r *http.Request) (ipgeo.Point, bool) {
	if e, ok := middleware.EdgeLocationFrom(r.Context()); ok {
		return ipgeo.Point{Lat: e.Lat, Lon: e.Lon}, true
	}
	if h.d.IPLocator == nil {
		return ipgeo.Point{}, false
	}
	ip := clientIP(r)
	p, err := h.d.IPLocator.Locate(ip)
	if err != nil {
		logger.L().Debug("ip_locate_failed", "ip", ip, "err", err)
		return ipgeo.Point{}, false
	}
	return p, true
}

// collectOffices waits up to OfficesWait for district offices of every resolved federal legislator.
// Whatever has not arrived by then is left out.
func (h *Handler) collectOffices(ctx context.Context, res resolve.Resolution) map[string][]federal.Office {
	var ids []string
	if res.Representative.OK() {
		ids = append(ids, res.Representative.Value.Bioguide)
	}
	if res.Senators.OK() {
		for _, s := range res.Senators.Value {
			ids = append(ids, s.Bioguide)
		}
	}
	out := make(map[string][]federal.Office, len(ids))
	if len(ids) == 0 {
		return out
	}
	wctx, cancel := context.WithTimeout(ctx, h.d.OfficesWait)
	defer cancel()
	pending := make(map[string]<-chan []federal.Office, len(ids))
	for _, id := range ids {
		if id != "" {
			pending[id] = h.d.Offices.DistrictOfficesAsync(wctx, id)
		}
	}
	for id, ch := range pending {
		select {
		case offs := <-ch:
			out[id] = offs
		case <-wctx.Done():
			logger.L().Debug("offices_wait_expired", "bioguide", id)
			return out
		}
	}
	return out
}

func (h *Handler) HandleOffices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bioguide")
	writeJSON(w, http.StatusOK, map[string]any{
		"bioguide": id,
		"offices":  h.d.Offices.DistrictOfficesFor(r.Context(), id),
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.d.Stats == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "statistics are disabled"})
		return
	}
	t, err := h.d.Stats.GetTotals(r.Context())
	if err != nil {
		logger.L().Error("stats_read_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "commit": version.Commit})
}

// record counts a lookup. Statistics never affect the response.
func (h *Handler) record(r *http.Request, state string, lookupErr error) {
	if h.d.Stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	fresh, berr := firstVisitToday(ctx, h.d.Redis, visitorIP(r), h.now())
	if berr != nil {
		logger.L().Debug("visitor_bloom_error", "err", berr)
	}
	if err := h.d.Stats.RecordLookup(ctx, store.Lookup{State: state, Failed: lookupErr != nil, NewVisitor: fresh}); err != nil {
		logger.L().Warn("stats_write_error", "err", err)
	}
}
