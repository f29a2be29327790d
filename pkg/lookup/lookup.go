// Package lookup resolves the public half of a report: the WAN address and an
// approximate location for it.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	cblog "github.com/charmbracelet/log"
)

const (
	ConnectionFailed = "N/A (Connection Failed)"
	RequiresPublicIP = "N/A (Requires Public IP)"
	InvalidLocation  = "N/A (Invalid response from location service)"
	LocationFailed   = "N/A (Location Lookup Failed)"

	unknownCity    = "Unknown City"
	unknownRegion  = "Unknown Region"
	unknownCountry = "Unknown Country"
)

// Fetcher retrieves the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Result is the public half of a report.
type Result struct {
	PublicIP string `json:"publicIP"`
	Location string `json:"location"`
}

// Config holds the lookup endpoints and location cache settings.
// A zero CacheTTL disables the cache.
type Config struct {
	PublicIPURL string
	LocationURL string
	CacheSize   int
	CacheTTL    time.Duration
}

// Resolver performs the WAN address and location lookups in order.
type Resolver struct {
	fetcher     Fetcher
	publicIPURL string
	locationURL string
	cache       gcache.Cache
	ttl         time.Duration
	logger      *cblog.Logger
}

// New creates a Resolver that fetches through f. The endpoints come from
// the application config.
func New(f Fetcher, conf Config, logger *cblog.Logger) *Resolver {
	if logger == nil {
		logger = cblog.Default()
	}

	r := &Resolver{
		fetcher:     f,
		publicIPURL: conf.PublicIPURL,
		locationURL: conf.LocationURL,
		ttl:         conf.CacheTTL,
		logger:      logger,
	}
	if conf.CacheTTL > 0 && conf.CacheSize > 0 {
		r.cache = gcache.New(conf.CacheSize).LFU().Build()
	}
	return r
}

// Resolve looks up the public IP and then, only if that succeeded, its location.
func (r *Resolver) Resolve(ctx context.Context) Result {
	ip, ok := r.PublicIP(ctx)
	return Result{
		PublicIP: ip,
		Location: r.Location(ctx, ip, ok),
	}
}

// PublicIP asks the IP echo service for the caller's address. On failure or
// an empty answer it returns ConnectionFailed and false.
func (r *Resolver) PublicIP(ctx context.Context) (string, bool) {
	body, err := r.fetcher.Fetch(ctx, r.publicIPURL)
	if err != nil {
		r.logger.Errorf("error retrieving public IP: %s", err)
		return ConnectionFailed, false
	}
	ip := strings.TrimSpace(body)
	if ip == "" {
		r.logger.Errorf("error retrieving public IP: empty response from %s", r.publicIPURL)
		return ConnectionFailed, false
	}
	return ip, true
}

// Location returns "City, Region, Country" for the caller's source address.
// The service is not contacted unless ok reports a resolved public IP, which
// is also used as the cache key.
func (r *Resolver) Location(ctx context.Context, publicIP string, ok bool) string {
	if !ok {
		return RequiresPublicIP
	}

	if r.cache != nil {
		if val, err := r.cache.Get(publicIP); err == nil {
			if loc, ok := val.(string); ok {
				r.logger.Debugf("location for %q served from cache", publicIP)
				return loc
			}
		}
	}

	body, err := r.fetcher.Fetch(ctx, r.locationURL)
	if err != nil {
		r.logger.Errorf("error retrieving location: %s", err)
		return LocationFailed
	}
	if body == "" {
		r.logger.Errorf("error retrieving location: empty response from %s", r.locationURL)
		return LocationFailed
	}

	loc, err := ParseLocation([]byte(body))
	if err != nil {
		r.logger.Errorf("error parsing location response: %s", err)
		return InvalidLocation
	}

	if r.cache != nil {
		if err := r.cache.SetWithExpire(publicIP, loc, r.ttl); err != nil {
			r.logger.Errorf("error updating location cache for IP %q: %s", publicIP, err)
		}
	}
	return loc
}

// ParseLocation formats a geolocation JSON object as "City, Region, Country".
// Missing or null fields are replaced independently with an "Unknown ..."
// placeholder. Non-string values are printed as they appear in the JSON.
func ParseLocation(data []byte) (string, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return "", errors.New("location response is null")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("error unmarshalling JSON: %w", err)
	}
	if dec.More() {
		return "", errors.New("error unmarshalling JSON: trailing data after object")
	}

	return fmt.Sprintf("%s, %s, %s",
		field(fields, "city", unknownCity),
		field(fields, "region", unknownRegion),
		field(fields, "country", unknownCountry),
	), nil
}

func field(fields map[string]any, key, def string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
