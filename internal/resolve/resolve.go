// Package resolve turns a location into a composite of federal and state representatives. Each facet
// (House member, senators, state legislators) is resolved independently and concurrently.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rep-lookup/internal/census"
	"rep-lookup/internal/federal"
	"rep-lookup/internal/geo"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/metrics"
	"rep-lookup/internal/statelegis"
	"rep-lookup/internal/states"
)

type Source string

const (
	SourceGeocoder  Source = "geocoder"
	SourceTerritory Source = "territory"
)

const noSenatorsMessage = "No U.S. senators represent this jurisdiction."

func noLegislatureMessage(k states.Kind) string {
	if k == states.KindFederalDistrict {
		return "Local legislature data is not available for the District of Columbia."
	}
	return "Local legislature data is not available for U.S. territories."
}

type Resolution struct {
	State            string                       `json:"state"`
	Kind             states.Kind                  `json:"kind"`
	Geography        geo.Record                   `json:"geography"`
	Source           Source                       `json:"source,omitempty"`
	Representative   Result[federal.Legislator]   `json:"representative"`
	Senators         Result[[]federal.Legislator] `json:"senators"`
	StateLegislators Result[statelegis.Match]     `json:"stateLegislators"`
}

type Territories interface {
	MatchAddress(address string) (geo.Record, bool)
	MatchCoordinates(lat, lon float64) (geo.Record, bool)
}

type Federal interface {
	RepresentativeFor(ctx context.Context, state, rawDistrict string) (federal.Legislator, error)
	SenatorsFor(ctx context.Context, state string) ([]federal.Legislator, error)
}

type StateLegislature interface {
	LegislatorsFor(ctx context.Context, state, upper, lower string) (statelegis.Match, error)
}

// Orchestrator holds no per-call state; the directories it is given own the shared caches.
type Orchestrator struct {
	geocoder    census.Geocoder
	territories Territories
	federal     Federal
	legislature StateLegislature
}

func New(g census.Geocoder, t Territories, f Federal, s StateLegislature) *Orchestrator {
	return &Orchestrator{geocoder: g, territories: t, federal: f, legislature: s}
}

// ByAddress checks the territory table before calling the geocoder.
func (o *Orchestrator) ByAddress(ctx context.Context, address string) (Resolution, error) {
	t0 := time.Now()
	res, err := o.byAddress(ctx, strings.TrimSpace(address))
	observe("address", t0, err)
	return res, err
}

func (o *Orchestrator) byAddress(ctx context.Context, address string) (Resolution, error) {
	if address == "" {
		return Resolution{}, geo.ErrInvalidInput
	}
	if rec, ok := o.territories.MatchAddress(address); ok {
		metrics.TerritoryBypassTotal.WithLabelValues(rec.StateFIPS).Inc()
		return o.resolve(ctx, rec, SourceTerritory)
	}
	rec, err := o.geocoder.GeocodeAddress(ctx, address)
	if err != nil {
		return Resolution{}, err
	}
	return o.resolve(ctx, rec, SourceGeocoder)
}

func (o *Orchestrator) ByCoordinates(ctx context.Context, lat, lon float64) (Resolution, error) {
	t0 := time.Now()
	res, err := o.byCoordinates(ctx, lat, lon)
	observe("coordinates", t0, err)
	return res, err
}

func (o *Orchestrator) byCoordinates(ctx context.Context, lat, lon float64) (Resolution, error) {
	if !census.ValidCoordinates(lat, lon) {
		return Resolution{}, geo.ErrInvalidInput
	}
	if rec, ok := o.territories.MatchCoordinates(lat, lon); ok {
		metrics.TerritoryBypassTotal.WithLabelValues(rec.StateFIPS).Inc()
		return o.resolve(ctx, rec, SourceTerritory)
	}
	rec, err := o.geocoder.GeocodeCoordinates(ctx, lat, lon)
	if err != nil {
		return Resolution{}, err
	}
	return o.resolve(ctx, rec, SourceGeocoder)
}

// Resolve runs the directory facets for an already known geography.
func (o *Orchestrator) Resolve(ctx context.Context, rec geo.Record) (Resolution, error) {
	return o.resolve(ctx, rec, "")
}

func (o *Orchestrator) resolve(ctx context.Context, rec geo.Record, src Source) (Resolution, error) {
	abbr, ok := states.Abbr(rec.StateFIPS)
	if !ok {
		return Resolution{}, fmt.Errorf("fips %q: %w", rec.StateFIPS, geo.ErrStateUnmapped)
	}
	kind := states.Classify(abbr)
	res := Resolution{State: abbr, Kind: kind, Geography: rec, Source: src}

	// Every goroutine records its own outcome and returns nil, so Wait only means "all settled".
	var g errgroup.Group
	g.Go(func() error {
		res.Representative = settle(o.federal.RepresentativeFor(ctx, abbr, rec.District))
		return nil
	})
	if kind.HasSenators() {
		g.Go(func() error {
			res.Senators = settle(o.federal.SenatorsFor(ctx, abbr))
			return nil
		})
	} else {
		res.Senators = NotApplicable([]federal.Legislator{}, noSenatorsMessage)
	}
	if kind.HasStateLegislature() {
		g.Go(func() error {
			res.StateLegislators = settle(o.legislature.LegislatorsFor(ctx, abbr, rec.SLDU, rec.SLDL))
			return nil
		})
	} else {
		res.StateLegislators = NotApplicable(statelegis.Match{}, noLegislatureMessage(kind))
	}
	_ = g.Wait()

	metrics.FacetTotal.WithLabelValues("representative", string(res.Representative.Status)).Inc()
	metrics.FacetTotal.WithLabelValues("senators", string(res.Senators.Status)).Inc()
	metrics.FacetTotal.WithLabelValues("state_legislators", string(res.StateLegislators.Status)).Inc()
	logger.L().Debug("resolution", "state", abbr, "kind", kind, "source", src, "district", rec.District,
		"representative", res.Representative.Status, "senators", res.Senators.Status,
		"state_legislators", res.StateLegislators.Status)
	return res, nil
}

func settle[T any](v T, err error) Result[T] {
	if err != nil {
		logger.L().Debug("facet_error", "err", err)
		return Failed[T](err, geo.UserMessage(err))
	}
	return OK(v)
}

func observe(input string, t0 time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LookupsTotal.WithLabelValues(input, outcome).Inc()
	metrics.LookupDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
}
