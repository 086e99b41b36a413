package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultQuickStatsURL = "https://quickstats.nass.usda.gov/api/api_GET"

type CropQuery struct {
	State     string
	County    string
	Commodity string
	Year      int
}

type CropData struct {
	Commodity string  `json:"commodity"`
	Year      int     `json:"year"`
	State     string  `json:"state"`
	County    string  `json:"county,omitempty"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Source    string  `json:"source"`
}

// QuickStatsClient reads field-crop survey data. Lookups never fail: any
// transport or decode problem is logged and yields no rows.
type QuickStatsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

func NewQuickStatsClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *QuickStatsClient {
	if baseURL == "" {
		baseURL = DefaultQuickStatsURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuickStatsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type quickStatsResponse struct {
	Data []struct {
		Commodity string      `json:"commodity_desc"`
		Year      json.Number `json:"year"`
		State     string      `json:"state_alpha"`
		County    string      `json:"county_name"`
		Value     string      `json:"Value"`
		Unit      string      `json:"unit_desc"`
		Source    string      `json:"source_desc"`
	} `json:"data"`
}

func (c *QuickStatsClient) CropData(ctx context.Context, q CropQuery) []CropData {
	rows, err := c.fetch(ctx, q)
	if err != nil {
		c.logger.Warn("quickstats lookup failed", "state", q.State, "county", q.County, "error", err)
		return []CropData{}
	}
	return rows
}

func (c *QuickStatsClient) fetch(ctx context.Context, q CropQuery) ([]CropData, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("quickstats: api key is not configured")
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("format", "JSON")
	params.Set("source_desc", "SURVEY")
	params.Set("sector_desc", "CROPS")
	params.Set("group_desc", "FIELD CROPS")
	params.Set("state_alpha", strings.ToUpper(q.State))
	if county := countyName(q.County); county != "" {
		params.Set("county_name", county)
	}
	if q.Commodity != "" {
		params.Set("commodity_desc", q.Commodity)
	}
	if q.Year > 0 {
		params.Set("year", strconv.Itoa(q.Year))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, withoutURL(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, withoutURL(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quickstats: unexpected status %d", resp.StatusCode)
	}

	var body quickStatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("quickstats: decode: %w", err)
	}

	out := make([]CropData, 0, len(body.Data))
	for _, item := range body.Data {
		year, _ := strconv.Atoi(item.Year.String())
		out = append(out, CropData{
			Commodity: item.Commodity,
			Year:      year,
			State:     item.State,
			County:    item.County,
			Value:     parseStatValue(item.Value),
			Unit:      item.Unit,
			Source:    item.Source,
		})
	}
	return out, nil
}

// countyName turns "Story County" into QuickStats' "STORY".
func countyName(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	return strings.TrimSpace(strings.TrimSuffix(name, " COUNTY"))
}

// parseStatValue reads values like "1,234.5". Suppressed entries such as
// "(D)" count as zero.
func parseStatValue(raw string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// withoutURL drops the request URL, which carries the API key, from parse
// and transport errors.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("quickstats: %s: %w", urlErr.Op, urlErr.Err)
	}
	return fmt.Errorf("quickstats: %w", err)
}
