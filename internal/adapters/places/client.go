// Package places queries the Google Places Text Search API for cafés.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("places: api key not configured")

// Config configures the client.
type Config struct {
	APIKey      string
	BaseURL     string
	Language    string
	Region      string
	BiasLat     float64
	BiasLon     float64
	BiasRadiusM float64
	MaxResults  int
	Timeout     time.Duration

	// Dial overrides how connections are made.
	Dial fasthttp.DialFunc
}

// Client implements ports.PlaceSearcher. The HTTP client is built on first
// use; every caller shares that one initialisation and its outcome.
type Client struct {
	cfg  Config
	init func() (*fasthttp.Client, error)
}

// New creates a Client. Nothing is contacted until the first search.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &Client{cfg: cfg}
	c.init = sync.OnceValues(c.build)
	return c
}

func (c *Client) build() (*fasthttp.Client, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	return &fasthttp.Client{
		Name:                "cafelog",
		ReadTimeout:         c.cfg.Timeout,
		WriteTimeout:        c.cfg.Timeout,
		MaxConnsPerHost:     8,
		MaxIdleConnDuration: 30 * time.Second,
		Dial:                c.cfg.Dial,
	}, nil
}

type textSearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// SearchCafes implements ports.PlaceSearcher.
func (c *Client) SearchCafes(ctx context.Context, query string) ([]domain.PlacePrediction, error) {
	hc, err := c.init()
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	args := req.URI().QueryArgs()
	args.Set("query", query)
	args.Set("type", "cafe")
	args.Set("key", c.cfg.APIKey)
	if c.cfg.BiasRadiusM > 0 {
		args.Set("location", strconv.FormatFloat(c.cfg.BiasLat, 'f', -1, 64)+","+strconv.FormatFloat(c.cfg.BiasLon, 'f', -1, 64))
		args.Set("radius", strconv.FormatFloat(c.cfg.BiasRadiusM, 'f', 0, 64))
	}
	if c.cfg.Language != "" {
		args.Set("language", c.cfg.Language)
	}
	if c.cfg.Region != "" {
		args.Set("region", c.cfg.Region)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := hc.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("places request: status %d", code)
	}

	var body textSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	switch body.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, fmt.Errorf("places: %s %s", body.Status, body.ErrorMessage)
	}

	n := min(len(body.Results), c.cfg.MaxResults)
	out := make([]domain.PlacePrediction, 0, n)
	for _, r := range body.Results[:n] {
		loc := r.Geometry.Location
		out = append(out, domain.PlacePrediction{
			PlaceID:       r.PlaceID,
			MainText:      r.Name,
			SecondaryText: r.FormattedAddress,
			FullText:      strings.TrimSuffix(r.Name+", "+r.FormattedAddress, ", "),
			Location:      &domain.GeoPoint{Lat: loc.Lat, Lon: loc.Lng},
		})
	}
	return out, nil
}
