package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"agenda/internal/enrich/metrics"
)

// Service names used in errors, metrics and spans.
const (
	serviceValidatePhone = "validatephone"
	serviceCountry       = "country"
	serviceCity          = "city"
	serviceWorldTime     = "worldtime"
)

// Validation is the outcome of a phone validation call. An invalid number is
// a valid result, not a failure; checking IsValid is the caller's job.
type Validation struct {
	IsValid bool
	Pais    string
}

// CountryInfo is the capital and ISO-2 code resolved for a country name.
type CountryInfo struct {
	Capital string
	ISO2    string
}

// Coordinates locate a city.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Client wraps the API Ninjas HTTP endpoints used by the enrichment pipeline.
// Each method performs exactly one request: no retries, no caching.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// NewClient builds a lookup client. Metrics may be nil (tests).
func NewClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("agenda/enrich"),
		metrics: m,
	}
}

// ValidatePhone checks a phone number and returns the country it belongs to.
func (c *Client) ValidatePhone(ctx context.Context, telefono string) (Validation, error) {
	var payload struct {
		IsValid bool   `json:"is_valid"`
		Country string `json:"country"`
	}
	err := c.get(ctx, serviceValidatePhone, "/v1/validatephone", url.Values{"number": {telefono}}, &payload)
	if err != nil {
		return Validation{}, err
	}
	return Validation{IsValid: payload.IsValid, Pais: payload.Country}, nil
}

// GetCapital resolves a country name to its capital and ISO-2 code.
func (c *Client) GetCapital(ctx context.Context, pais string) (CountryInfo, error) {
	var payload []struct {
		Capital string `json:"capital"`
		ISO2    string `json:"iso2"`
	}
	err := c.get(ctx, serviceCountry, "/v1/country", url.Values{"name": {pais}}, &payload)
	if err != nil {
		return CountryInfo{}, err
	}
	if len(payload) == 0 {
		c.metrics.IncrementFailure(serviceCountry, "not_found")
		return CountryInfo{}, &NotFoundError{Service: serviceCountry, Query: pais}
	}
	return CountryInfo{Capital: payload[0].Capital, ISO2: payload[0].ISO2}, nil
}

// GetLatLon resolves a city name to coordinates. The first match wins; the
// upstream API applies no country filter.
func (c *Client) GetLatLon(ctx context.Context, capital string) (Coordinates, error) {
	var payload []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	err := c.get(ctx, serviceCity, "/v1/city", url.Values{"name": {capital}}, &payload)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			// The city endpoint is the flakiest of the four; keep the query
			// in the error so outages are diagnosable from logs alone.
			le.Detail = fmt.Sprintf("city %q: %s", capital, le.Detail)
		}
		return Coordinates{}, err
	}
	if len(payload) == 0 {
		c.metrics.IncrementFailure(serviceCity, "not_found")
		return Coordinates{}, &NotFoundError{Service: serviceCity, Query: capital}
	}
	return Coordinates{Lat: payload[0].Latitude, Lon: payload[0].Longitude}, nil
}

// GetLocalTime resolves coordinates to a zero-padded HH:MM local time.
func (c *Client) GetLocalTime(ctx context.Context, lat, lon float64) (string, error) {
	var payload struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	}
	query := url.Values{
		"lat": {fmt.Sprintf("%g", lat)},
		"lon": {fmt.Sprintf("%g", lon)},
	}
	err := c.get(ctx, serviceWorldTime, "/v1/worldtime", query, &payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", payload.Hour, payload.Minute), nil
}

// get performs one GET round trip and decodes the JSON body into out.
// Non-200 responses become a LookupError carrying a body excerpt.
func (c *Client) get(ctx context.Context, service, path string, query url.Values, out any) error {
	ctx, span := c.tracer.Start(ctx, "enrich."+service)
	defer span.End()

	start := time.Now()
	defer c.metrics.ObserveLookup(service, start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", service, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		span.RecordError(err)
		c.metrics.IncrementFailure(service, "transport")
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		lerr := &LookupError{Service: service, Status: resp.StatusCode, Detail: string(body)}
		span.RecordError(lerr)
		c.metrics.IncrementFailure(service, "status")
		return lerr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		c.metrics.IncrementFailure(service, "decode")
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
