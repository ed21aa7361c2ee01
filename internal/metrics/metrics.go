package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replookup_lookups_total",
		Help: "Total lookups by input kind (address, coordinates, ip) and outcome",
	}, []string{"input", "outcome"})
	LookupDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replookup_lookup_duration_ms",
		Help:    "End-to-end resolution duration in milliseconds",
		Buckets: durationBuckets,
	})
	TerritoryBypassTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replookup_territory_bypass_total",
		Help: "Lookups resolved by the territory table without calling the geocoder",
	}, []string{"fips"})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replookup_geocode_requests_total",
		Help: "Total Census geocoder requests",
	})
	GeocodeFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replookup_geocode_fail_total",
		Help: "Census geocoder failures by reason",
	}, []string{"reason"})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replookup_geocode_duration_ms",
		Help:    "Census geocoder call duration in milliseconds",
		Buckets: durationBuckets,
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replookup_geocode_cache_hits_total",
		Help: "Geocoder responses served from redis",
	})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replookup_geocode_cache_misses_total",
		Help: "Geocoder lookups not found in redis",
	})
	DatasetFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replookup_dataset_fetch_total",
		Help: "Upstream dataset fetches by dataset and status",
	}, []string{"dataset", "status"})
	DatasetFetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replookup_dataset_fetch_duration_ms",
		Help:    "Upstream dataset fetch duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"dataset"})
	FacetTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replookup_facet_total",
		Help: "Facet outcomes per resolution",
	}, []string{"facet", "status"})
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(LookupDurationMs)
	prometheus.MustRegister(TerritoryBypassTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeCacheMissesTotal)
	prometheus.MustRegister(DatasetFetchTotal)
	prometheus.MustRegister(DatasetFetchDurationMs)
	prometheus.MustRegister(FacetTotal)
}

// Handler exposes the registered metrics for Prometheus scraping; mounted under the API base.
func Handler() http.Handler { return promhttp.Handler() }
