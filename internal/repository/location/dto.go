package location

import (
	"encoding/json"
	"fmt"

	"github.com/casainvest/renoplan/internal/domain/geo"
	domloc "github.com/casainvest/renoplan/internal/domain/location"
)

// locationDoc is the stored JSON shape of a catalog entry.
type locationDoc struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Active  bool            `json:"active"`
	Lat     *float64        `json:"lat,omitempty"`
	Lon     *float64        `json:"lon,omitempty"`
}

func marshalDoc(loc domloc.Location) ([]byte, error) {
	d := locationDoc{Name: loc.Name(), Payload: loc.Payload(), Active: loc.Active()}
	if coord, ok := loc.Coordinate(); ok {
		d.Lat = &coord.Lat
		d.Lon = &coord.Lon
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal location %s: %w", loc.Name(), err)
	}
	return data, nil
}

// parseJSONGetResult unwraps the JSONPath envelope around a full document.
// JSON.GET with path $ answers [{...}].
func parseJSONGetResult(raw []byte) (domloc.Location, error) {
	var docs []locationDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domloc.Location{}, fmt.Errorf("unmarshal location doc: %w", err)
	}
	if len(docs) == 0 {
		return domloc.Location{}, fmt.Errorf("empty json path result")
	}
	return fromDoc(docs[0]), nil
}

func fromDoc(d locationDoc) domloc.Location {
	var coord *geo.Coordinate
	if d.Lat != nil && d.Lon != nil {
		coord = &geo.Coordinate{Lat: *d.Lat, Lon: *d.Lon}
	}
	return domloc.Reconstruct(d.Name, d.Payload, d.Active, coord)
}

// lightResult is the multipath JSON.GET answer shape:
// {"$.name":["x"],"$.active":[true],"$.lat":[44.4],"$.lon":[26.1]}.
// Paths that match nothing come back as empty arrays.
type lightResult struct {
	Name   []string  `json:"$.name"`
	Active []bool    `json:"$.active"`
	Lat    []float64 `json:"$.lat"`
	Lon    []float64 `json:"$.lon"`
}

// parseLightResult converts a multipath result into a payload-free
// Location. ok=false marks inactive entries.
func parseLightResult(raw []byte) (domloc.Location, bool, error) {
	var res lightResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domloc.Location{}, false, fmt.Errorf("unmarshal light doc: %w", err)
	}
	if len(res.Name) == 0 {
		return domloc.Location{}, false, fmt.Errorf("missing name in light doc")
	}
	if len(res.Active) == 0 || !res.Active[0] {
		return domloc.Location{}, false, nil
	}
	var coord *geo.Coordinate
	if len(res.Lat) > 0 && len(res.Lon) > 0 {
		coord = &geo.Coordinate{Lat: res.Lat[0], Lon: res.Lon[0]}
	}
	return domloc.Reconstruct(res.Name[0], nil, true, coord), true, nil
}
