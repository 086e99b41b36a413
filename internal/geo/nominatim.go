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
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "fieldbuddy/dev"
)

// NominatimClient geocodes through an OpenStreetMap Nominatim server.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		State    string `json:"state"`
		ISO      string `json:"ISO3166-2-lvl4"`
		County   string `json:"county"`
		Postcode string `json:"postcode"`
		Country  string `json:"country"`
	} `json:"address"`
	Error string `json:"error"`
}

func (p nominatimPlace) address() Address {
	return Address{
		Display: p.DisplayName,
		State:   p.state(),
		County:  p.Address.County,
		ZipCode: p.Address.Postcode,
		Country: p.Address.Country,
	}
}

// state prefers the subdivision code, so "US-CA" yields "CA".
func (p nominatimPlace) state() string {
	if _, code, ok := strings.Cut(p.Address.ISO, "-"); ok && code != "" {
		return code
	}
	return p.Address.State
}

// Search resolves a free-form address to its best match.
func (c *NominatimClient) Search(ctx context.Context, query string) (Position, Address, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Position{}, Address{}, fmt.Errorf("geocode: %w: empty query", ErrAddressNotFound)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return Position{}, Address{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	if len(places) == 0 {
		return Position{}, Address{}, fmt.Errorf("geocode %q: %w", query, ErrAddressNotFound)
	}

	pos, err := places[0].position()
	if err != nil {
		return Position{}, Address{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	return pos, places[0].address(), nil
}

func (c *NominatimClient) Reverse(ctx context.Context, pos Position) (Address, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(pos.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", params, &place); err != nil {
		return Address{}, fmt.Errorf("reverse geocode: %w", err)
	}
	if place.Error != "" || place.DisplayName == "" {
		return Address{}, fmt.Errorf("reverse geocode %.5f,%.5f: %w", pos.Latitude, pos.Longitude, ErrAddressNotFound)
	}
	return place.address(), nil
}

func (p nominatimPlace) position() (Position, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Position{}, fmt.Errorf("parse latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Position{}, fmt.Errorf("parse longitude %q: %w", p.Lon, err)
	}
	return Position{Latitude: lat, Longitude: lon}, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim %s: decode: %w", path, err)
	}
	return nil
}
