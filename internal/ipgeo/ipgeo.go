// Package ipgeo approximates a visitor's coordinates from their IP address using a GeoLite2/GeoIP2
// City database. It stands in for browser geolocation when no address or coordinates are supplied.
package ipgeo

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"rep-lookup/internal/logger"
)

var (
	ErrInvalidIP  = errors.New("invalid ip address")
	ErrNoLocation = errors.New("no location for ip")
)

type Point struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	AccuracyKm int     `json:"accuracyKm,omitempty"`
}

type cityDB interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

type Locator struct {
	db cityDB
}

// Open memory-maps the MMDB at path.
func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %s: %w", path, err)
	}
	logger.L().Info("geoip_open", "path", path, "type", db.Metadata().DatabaseType)
	return &Locator{db: db}, nil
}

func (l *Locator) Close() error { return l.db.Close() }

// Locate returns the city-level position of ip. Private, loopback and unplaced addresses yield ErrNoLocation.
func (l *Locator) Locate(ip string) (Point, error) {
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return Point{}, fmt.Errorf("%q: %w", ip, ErrInvalidIP)
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return Point{}, fmt.Errorf("%s is not routable: %w", addr, ErrNoLocation)
	}
	c, err := l.db.City(addr)
	if err != nil {
		return Point{}, fmt.Errorf("geoip lookup %s: %w", addr, err)
	}
	if c == nil || (c.Location.Latitude == 0 && c.Location.Longitude == 0) {
		return Point{}, fmt.Errorf("%s: %w", addr, ErrNoLocation)
	}
	logger.L().Debug("geoip_hit", "ip", addr.String(), "country", c.Country.IsoCode, "accuracy_km", c.Location.AccuracyRadius)
	return Point{Lat: c.Location.Latitude, Lon: c.Location.Longitude, AccuracyKm: int(c.Location.AccuracyRadius)}, nil
}
