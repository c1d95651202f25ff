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

// NominatimClient resolves free text addresses with the OSM Nominatim search API.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout, 30*time.Second),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the coordinates of the best match for address.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (Coordinates, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	var places []nominatimPlace
	header := http.Header{"User-Agent": []string{c.userAgent}}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/search?"+q.Encode(), header, &places); err != nil {
		return Coordinates{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(places) == 0 {
		return Coordinates{}, fmt.Errorf("geocode %q: %w", address, ErrNoResult)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode %q: invalid latitude %q", address, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode %q: invalid longitude %q", address, places[0].Lon)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}
