package geocontext

import (
	"strings"

	"github.com/thoas/go-funk"
)

// Kind names one geo-context check as it appears in the checklist trailer.
type Kind string

const (
	KindTerrain    Kind = "elevation"
	KindServices   Kind = "services"
	KindPollution  Kind = "pollution"
	KindLighting   Kind = "lighting"
	KindSidewalk   Kind = "sidewalk"
	KindAirQuality Kind = "airquality"
	KindEmergency  Kind = "emergency"
)

// Marker starts the checklist line that declares the requested kinds.
const Marker = "SPECIALTY_CHECKS:"

// Vocabulary lists every known kind. Parsed kinds are returned in this order.
var Vocabulary = []Kind{
	KindTerrain,
	KindServices,
	KindPollution,
	KindLighting,
	KindSidewalk,
	KindAirQuality,
	KindEmergency,
}

var categories = map[Kind]string{
	KindTerrain:    "Terrain",
	KindServices:   "Nearby Services",
	KindPollution:  "Pollution",
	KindLighting:   "Lighting",
	KindSidewalk:   "Sidewalks",
	KindAirQuality: "Air Quality",
	KindEmergency:  "Emergency Services",
}

// Category is the label stored with the finding.
func (k Kind) Category() string {
	if c, ok := categories[k]; ok {
		return c
	}
	return string(k)
}

// lookupKind resolves a trailer token. Both the kind and its category label
// are accepted, spaces ignored: "air quality" and "Emergency Services" match.
func lookupKind(token string) (Kind, bool) {
	token = strings.Join(strings.Fields(strings.ToLower(token)), "")
	for _, k := range Vocabulary {
		if token == string(k) || token == strings.ToLower(strings.ReplaceAll(k.Category(), " ", "")) {
			return k, true
		}
	}
	return "", false
}

// ParseKinds reads the trailer line of a checklist and returns the distinct
// known kinds it names. Tokens are matched whole and case-insensitively, by
// kind or by category label; unknown tokens and "none" are ignored. When the
// marker appears on several lines the last one wins.
func ParseKinds(checklist string) []Kind {
	var trailer string
	found := false
	for _, line := range strings.Split(checklist, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_`"))
		if len(line) < len(Marker) || !strings.EqualFold(line[:len(Marker)], Marker) {
			continue
		}
		trailer = line[len(Marker):]
		found = true
	}
	if !found {
		return nil
	}

	requested := make([]Kind, 0, len(Vocabulary))
	for _, token := range strings.Split(trailer, ",") {
		if k, ok := lookupKind(strings.Trim(token, " \t.*_`\"'")); ok {
			requested = append(requested, k)
		}
	}

	kinds := make([]Kind, 0, len(requested))
	for _, k := range Vocabulary {
		if funk.Contains(requested, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
