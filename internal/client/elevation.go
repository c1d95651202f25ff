package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ElevationClient samples terrain heights from the Open-Meteo elevation API.
type ElevationClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewElevationClient(endpoint string, timeout time.Duration) *ElevationClient {
	return &ElevationClient{
		endpoint:   endpoint,
		httpClient: newHTTPClient(timeout, 30*time.Second),
	}
}

type elevationResponse struct {
	Elevation []float64 `json:"elevation"`
}

// Elevations returns the height in meters of every point, in the order given.
func (c *ElevationClient) Elevations(ctx context.Context, points []Coordinates) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}

	lats := make([]string, 0, len(points))
	lons := make([]string, 0, len(points))
	for _, p := range points {
		lats = append(lats, strconv.FormatFloat(p.Lat, 'f', 6, 64))
		lons = append(lons, strconv.FormatFloat(p.Lon, 'f', 6, 64))
	}
	q := url.Values{}
	q.Set("latitude", strings.Join(lats, ","))
	q.Set("longitude", strings.Join(lons, ","))

	var resp elevationResponse
	if err := getJSON(ctx, c.httpClient, c.endpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("elevation lookup: %w", err)
	}
	if len(resp.Elevation) != len(points) {
		return nil, fmt.Errorf("elevation lookup: expected %d samples, got %d", len(points), len(resp.Elevation))
	}
	return resp.Elevation, nil
}
