package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// OverpassClient counts OSM features around a point. The public Overpass
// instances throttle aggressively so every query waits on a shared limiter.
type OverpassClient struct {
	endpoint   string
	userAgent  string
	limiter    *rate.Limiter
	httpClient *http.Client
}

func NewOverpassClient(endpoint, userAgent string, rps float64, timeout time.Duration) *OverpassClient {
	if rps <= 0 {
		rps = 1
	}
	return &OverpassClient{
		endpoint:   endpoint,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: newHTTPClient(timeout, 30*time.Second),
	}
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// Count returns how many nodes and ways match any of the tag filters within
// radius meters of at. Filters use Overpass syntax, e.g. `["amenity"="pharmacy"]`.
func (c *OverpassClient) Count(ctx context.Context, at Coordinates, radius int, filters []string) (int, error) {
	if len(filters) == 0 {
		return 0, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	body := url.Values{}
	body.Set("data", countQuery(at, radius, filters))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to call overpass: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("overpass returned status %d: %s", resp.StatusCode, truncate(string(bodyBytes), 256))
	}

	var parsed overpassResponse
	if err := decodeJSON(bodyBytes, &parsed); err != nil {
		return 0, err
	}
	for _, e := range parsed.Elements {
		if e.Type != "count" {
			continue
		}
		total, err := strconv.Atoi(e.Tags["total"])
		if err != nil {
			return 0, fmt.Errorf("invalid overpass count %q", e.Tags["total"])
		}
		return total, nil
	}
	return 0, fmt.Errorf("overpass answer has no count element")
}

func countQuery(at Coordinates, radius int, filters []string) string {
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];(")
	for _, f := range filters {
		for _, kind := range []string{"node", "way"} {
			fmt.Fprintf(&sb, "%s%s(around:%d,%f,%f);", kind, f, radius, at.Lat, at.Lon)
		}
	}
	sb.WriteString(");out count;")
	return sb.String()
}
