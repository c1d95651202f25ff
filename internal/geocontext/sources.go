package geocontext

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stepfree/access-planner/internal/client"
)

type FeatureCounter interface {
	Count(ctx context.Context, at client.Coordinates, radius int, filters []string) (int, error)
}

type ElevationSampler interface {
	Elevations(ctx context.Context, points []client.Coordinates) ([]float64, error)
}

type AirQualitySource interface {
	Nearest(ctx context.Context, at client.Coordinates, radius int) (*client.AirQuality, error)
}

// featureGroup is one line of a count based digest.
type featureGroup struct {
	label   string
	filters []string
}

var featureGroups = map[Kind][]featureGroup{
	KindServices: {
		{"pharmacies", []string{`["amenity"="pharmacy"]`}},
		{"grocery stores", []string{`["shop"~"^(supermarket|convenience|greengrocer)$"]`}},
		{"doctors and clinics", []string{`["amenity"~"^(doctors|clinic|dentist)$"]`}},
		{"public transport stops", []string{`["highway"="bus_stop"]`, `["public_transport"="platform"]`, `["railway"~"^(station|tram_stop|halt)$"]`}},
	},
	KindPollution: {
		{"major roads", []string{`["highway"~"^(motorway|trunk|primary)$"]`}},
		{"railway lines", []string{`["railway"="rail"]`}},
		{"industrial areas", []string{`["landuse"="industrial"]`}},
		{"nightlife venues", []string{`["amenity"~"^(bar|nightclub|pub)$"]`}},
	},
	KindLighting: {
		{"street lamps", []string{`["highway"="street_lamp"]`}},
		{"lit streets", []string{`["highway"]["lit"="yes"]`}},
		{"unlit streets", []string{`["highway"]["lit"="no"]`}},
	},
	KindSidewalk: {
		{"mapped sidewalks", []string{`["footway"="sidewalk"]`, `["sidewalk"~"^(both|left|right|separate)$"]`}},
		{"lowered kerbs", []string{`["kerb"~"^(lowered|flush)$"]`}},
		{"tactile paving spots", []string{`["tactile_paving"="yes"]`}},
		{"stairways", []string{`["highway"="steps"]`}},
	},
	KindEmergency: {
		{"hospitals", []string{`["amenity"="hospital"]`}},
		{"fire stations", []string{`["amenity"="fire_station"]`}},
		{"police stations", []string{`["amenity"="police"]`}},
		{"defibrillators", []string{`["emergency"="defibrillator"]`}},
	},
}

// CountKinds are the kinds served by OSM feature counts.
var CountKinds = []Kind{KindServices, KindPollution, KindLighting, KindSidewalk, KindEmergency}

func NewCountCheck(kind Kind, counter FeatureCounter, radius int, summarizer Summarizer) (*Check, error) {
	groups, ok := featureGroups[kind]
	if !ok {
		return nil, fmt.Errorf("no feature groups for check kind %q", kind)
	}
	gather := func(ctx context.Context, at client.Coordinates) (string, error) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Counts within %d m of the property:\n", radius)
		for _, g := range groups {
			n, err := counter.Count(ctx, at, radius, g.filters)
			if err != nil {
				return "", fmt.Errorf("counting %s: %w", g.label, err)
			}
			fmt.Fprintf(&sb, "- %s: %d\n", g.label, n)
		}
		return sb.String(), nil
	}
	return &Check{kind: kind, gather: gather, summarizer: summarizer}, nil
}

// terrainStep is the distance in meters between the property and each terrain sample.
const terrainStep = 100.0

const metersPerDegree = 111320.0

func NewTerrainCheck(sampler ElevationSampler, summarizer Summarizer) *Check {
	gather := func(ctx context.Context, at client.Coordinates) (string, error) {
		points, directions := terrainGrid(at)
		heights, err := sampler.Elevations(ctx, points)
		if err != nil {
			return "", err
		}
		return terrainDigest(heights, directions), nil
	}
	return &Check{kind: KindTerrain, gather: gather, summarizer: summarizer}
}

// terrainGrid returns the property followed by its eight neighbours at terrainStep.
func terrainGrid(at client.Coordinates) ([]client.Coordinates, []string) {
	dLat := terrainStep / metersPerDegree
	dLon := terrainStep / (metersPerDegree * math.Max(math.Cos(at.Lat*math.Pi/180), 0.01))

	offsets := []struct {
		name     string
		lat, lon float64
	}{
		{"north", 1, 0}, {"north-east", 1, 1}, {"east", 0, 1}, {"south-east", -1, 1},
		{"south", -1, 0}, {"south-west", -1, -1}, {"west", 0, -1}, {"north-west", 1, -1},
	}

	points := []client.Coordinates{at}
	directions := []string{""}
	for _, o := range offsets {
		points = append(points, client.Coordinates{Lat: at.Lat + o.lat*dLat, Lon: at.Lon + o.lon*dLon})
		directions = append(directions, o.name)
	}
	return points, directions
}

func terrainDigest(heights []float64, directions []string) string {
	center := heights[0]
	lowest, highest := center, center
	steepest, steepestDir := 0.0, ""
	for i := 1; i < len(heights); i++ {
		lowest = math.Min(lowest, heights[i])
		highest = math.Max(highest, heights[i])

		dist := terrainStep
		if strings.Contains(directions[i], "-") {
			dist *= math.Sqrt2
		}
		grade := math.Abs(heights[i]-center) / dist * 100
		if grade > steepest {
			steepest, steepestDir = grade, directions[i]
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- elevation at the property: %.0f m\n", center)
	fmt.Fprintf(&sb, "- elevation range within %.0f m: %.0f m\n", terrainStep, highest-lowest)
	if steepestDir != "" {
		fmt.Fprintf(&sb, "- steepest average grade from the property: %.1f%% toward the %s\n", steepest, steepestDir)
	} else {
		sb.WriteString("- the surroundings are flat\n")
	}
	return sb.String()
}

func NewAirQualityCheck(source AirQualitySource, radius int, summarizer Summarizer) *Check {
	gather := func(ctx context.Context, at client.Coordinates) (string, error) {
		aq, err := source.Nearest(ctx, at, radius)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Latest readings of station %q, %.0f m away:\n", aq.Station, aq.Distance)
		for _, r := range aq.Readings {
			fmt.Fprintf(&sb, "- %s: %.2f %s\n", r.Parameter, r.Value, r.Units)
		}
		return sb.String(), nil
	}
	return &Check{kind: KindAirQuality, gather: gather, summarizer: summarizer}
}

// Sources are the data sources backing the checks.
type Sources struct {
	Counter    FeatureCounter
	Elevation  ElevationSampler
	AirQuality AirQualitySource
	Radius     int
	// AirQualityRadius bounds the station search, it is usually wider than Radius.
	AirQualityRadius int
}

// NewRunners builds one runner per kind of the vocabulary. Kinds whose data
// source is missing are left out.
func NewRunners(sources Sources, summarizer Summarizer) (map[Kind]Runner, error) {
	runners := make(map[Kind]Runner, len(Vocabulary))
	if sources.Elevation != nil {
		runners[KindTerrain] = NewTerrainCheck(sources.Elevation, summarizer)
	}
	if sources.AirQuality != nil {
		runners[KindAirQuality] = NewAirQualityCheck(sources.AirQuality, sources.AirQualityRadius, summarizer)
	}
	if sources.Counter != nil {
		for _, kind := range CountKinds {
			check, err := NewCountCheck(kind, sources.Counter, sources.Radius, summarizer)
			if err != nil {
				return nil, err
			}
			runners[kind] = check
		}
	}
	return runners, nil
}
