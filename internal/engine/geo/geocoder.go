package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"` // [minLat, maxLat, minLng, maxLng]
	DisplayName string   `json:"display_name"`
}

// Place is a geocoded free-text location.
type Place struct {
	Name   string
	Center orb.Point
	Bound  orb.Bound
}

// Geocoder resolves free-text locations with the OSM Nominatim API.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *retryablehttp.Client
}

func NewGeocoder(baseURL, userAgent string, log *zap.Logger) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = "leadfinder/1.0 (business search)"
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = zapLeveled{log.Named("geocoder").Sugar()}

	return &Geocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
	}
}

// Locate returns the best match for q.
func (g *Geocoder) Locate(ctx context.Context, q string) (Place, error) {
	u := g.baseURL + "/search?" + url.Values{
		"q":      {q},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Place{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Place{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("location %q not found", q)
	}

	r := results[0]
	lat, errLat := strconv.ParseFloat(r.Lat, 64)
	lng, errLng := strconv.ParseFloat(r.Lon, 64)
	if errLat != nil || errLng != nil {
		return Place{}, fmt.Errorf("invalid coordinates from geocoder")
	}

	p := Place{Name: r.DisplayName, Center: orb.Point{lng, lat}}
	p.Bound = p.Center.Bound()
	if bb := r.BoundingBox; len(bb) >= 4 {
		minLat, _ := strconv.ParseFloat(bb[0], 64)
		maxLat, _ := strconv.ParseFloat(bb[1], 64)
		minLng, _ := strconv.ParseFloat(bb[2], 64)
		maxLng, _ := strconv.ParseFloat(bb[3], 64)
		p.Bound = orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
	}
	return p, nil
}

// zapLeveled adapts a sugared zap logger to retryablehttp.LeveledLogger.
type zapLeveled struct {
	s *zap.SugaredLogger
}

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
