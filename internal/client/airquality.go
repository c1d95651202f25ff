package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const openAQMaxRadius = 25000

// OpenAQClient reads the latest measurements of the station closest to a point (OpenAQ v3).
type OpenAQClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAQClient(baseURL, apiKey string, timeout time.Duration) *OpenAQClient {
	return &OpenAQClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout, 30*time.Second),
	}
}

type AirQuality struct {
	Station  string
	Distance float64
	Readings []Reading
}

type Reading struct {
	Parameter string
	Value     float64
	Units     string
}

type openAQLocations struct {
	Results []struct {
		ID       int     `json:"id"`
		Name     string  `json:"name"`
		Distance float64 `json:"distance"`
		Sensors  []struct {
			ID        int `json:"id"`
			Parameter struct {
				Name        string `json:"name"`
				Units       string `json:"units"`
				DisplayName string `json:"displayName"`
			} `json:"parameter"`
		} `json:"sensors"`
	} `json:"results"`
}

type openAQLatest struct {
	Results []struct {
		Value     float64 `json:"value"`
		SensorsID int     `json:"sensorsId"`
	} `json:"results"`
}

// Nearest returns the latest readings of the closest station within radius meters.
func (c *OpenAQClient) Nearest(ctx context.Context, at Coordinates, radius int) (*AirQuality, error) {
	if radius <= 0 || radius > openAQMaxRadius {
		radius = openAQMaxRadius
	}

	q := url.Values{}
	q.Set("coordinates", fmt.Sprintf("%f,%f", at.Lat, at.Lon))
	q.Set("radius", fmt.Sprint(radius))
	q.Set("limit", "1")

	var locations openAQLocations
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/locations?"+q.Encode(), c.header(), &locations); err != nil {
		return nil, fmt.Errorf("air quality stations: %w", err)
	}
	if len(locations.Results) == 0 {
		return nil, fmt.Errorf("air quality stations near %s: %w", at, ErrNoResult)
	}
	station := locations.Results[0]

	var latest openAQLatest
	if err := getJSON(ctx, c.httpClient, fmt.Sprintf("%s/locations/%d/latest", c.baseURL, station.ID), c.header(), &latest); err != nil {
		return nil, fmt.Errorf("air quality readings: %w", err)
	}

	aq := &AirQuality{Station: station.Name, Distance: station.Distance}
	for _, m := range latest.Results {
		for _, s := range station.Sensors {
			if s.ID != m.SensorsID {
				continue
			}
			name := s.Parameter.DisplayName
			if name == "" {
				name = s.Parameter.Name
			}
			aq.Readings = append(aq.Readings, Reading{Parameter: name, Value: m.Value, Units: s.Parameter.Units})
		}
	}
	if len(aq.Readings) == 0 {
		return nil, fmt.Errorf("station %q has no recent readings: %w", station.Name, ErrNoResult)
	}
	return aq, nil
}

func (c *OpenAQClient) header() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("X-API-Key", c.apiKey)
	}
	return h
}
