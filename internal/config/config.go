// Package config gathers the service settings from environment variables so main stays small.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultCensusBase     = "https://geocoding.geo.census.gov/geocoder/geographies"
	DefaultFederalRoster  = "https://unitedstates.github.io/congress-legislators/legislators-current.json"
	DefaultFederalOffices = "https://unitedstates.github.io/congress-legislators/legislators-district-offices.json"
)

// Config is the full runtime configuration. Zero values never reach callers; FromEnv fills defaults.
type Config struct {
	Addr    string
	APIBase string

	CensusBase      string
	CensusBenchmark string
	CensusVintage   string
	GeocodeTimeout  time.Duration
	GeocodeCacheTTL time.Duration

	FederalRosterURL  string
	FederalOfficesURL string
	StateDataBase     string
	DatasetTimeout    time.Duration
	OfficesWait       time.Duration

	GeoIPCityPath string
	EdgeLatHeader string
	EdgeLonHeader string

	RateLimitEnabled bool
	RateLimitQPS     int

	// AdminAllow restricts /stats and /metrics to these IPs and CIDRs; empty leaves them open.
	AdminAllow        string
	AdminRealIPHeader string

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string
}

// LoadDotEnv reads .env and data/env/.env when present; missing files are not an error.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

func FromEnv() Config {
	return Config{
		Addr:    str("ADDR", ":8080"),
		APIBase: str("API_BASE", "/api"),

		CensusBase:      str("CENSUS_BASE", DefaultCensusBase),
		CensusBenchmark: str("CENSUS_BENCHMARK", "Public_AR_Current"),
		CensusVintage:   str("CENSUS_VINTAGE", "Current_Current"),
		GeocodeTimeout:  seconds("GEOCODE_TIMEOUT_S", 10),
		GeocodeCacheTTL: seconds("GEOCODE_CACHE_TTL_S", 3600),

		FederalRosterURL:  str("FEDERAL_ROSTER_URL", DefaultFederalRoster),
		FederalOfficesURL: str("FEDERAL_OFFICES_URL", DefaultFederalOffices),
		StateDataBase:     str("STATE_DATA_BASE", filepath.Join("data", "state-legislators")),
		DatasetTimeout:    seconds("DATASET_TIMEOUT_S", 30),
		OfficesWait:       seconds("OFFICES_WAIT_S", 5),

		GeoIPCityPath: os.Getenv("GEOIP_CITY_PATH"),
		EdgeLatHeader: os.Getenv("EDGE_LAT_HEADER"),
		EdgeLonHeader: os.Getenv("EDGE_LON_HEADER"),

		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:     integer("RATE_LIMIT_QPS", 200),

		AdminAllow:        os.Getenv("ADMIN_ALLOW"),
		AdminRealIPHeader: os.Getenv("ADMIN_REAL_IP_HEADER"),

		TLSEnable:   os.Getenv("TLS_ENABLE") == "true",
		TLSCertPath: str("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:  str("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func seconds(key string, def int) time.Duration {
	return time.Duration(integer(key, def)) * time.Second
}
