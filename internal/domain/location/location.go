// Package location defines the catalog entry aggregate: a named property
// with an opaque analysis payload and an optional geographic anchor.
package location

import (
	"encoding/json"
	"fmt"

	"github.com/casainvest/renoplan/internal/domain/geo"
)

// MaxNameLength is the maximum catalog name length in bytes.
const MaxNameLength = 256

// MaxPayloadSize is the maximum payload size in bytes.
const MaxPayloadSize = 262144 // 256KB

// Location is the catalog entry aggregate (immutable value object).
// The payload is carried verbatim from storage to the analysis engine;
// the service never reshapes it.
type Location struct {
	name     string
	payload  json.RawMessage
	active   bool
	coord    geo.Coordinate
	hasCoord bool
}

// New validates and creates a Location.
// Name: non-empty, max 256 bytes, free-form (catalog names contain spaces
// and diacritics). Payload: valid JSON, max 256KB; empty defaults to {}.
// Coordinate is optional; when given it must be in WGS84 range.
func New(name string, payload []byte, active bool, coord *geo.Coordinate) (Location, error) {
	if name == "" {
		return Location{}, fmt.Errorf("location name is required")
	}
	if len(name) > MaxNameLength {
		return Location{}, fmt.Errorf("location name too long (max %d)", MaxNameLength)
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if len(payload) > MaxPayloadSize {
		return Location{}, fmt.Errorf("location payload too large (max %d bytes)", MaxPayloadSize)
	}
	if !json.Valid(payload) {
		return Location{}, fmt.Errorf("location payload must be valid JSON")
	}

	l := Location{name: name, payload: clonePayload(payload), active: active}
	if coord != nil {
		if !geo.ValidateCoordinates(coord.Lat, coord.Lon) {
			return Location{}, fmt.Errorf("invalid coordinates: lat=%v lon=%v", coord.Lat, coord.Lon)
		}
		l.coord = *coord
		l.hasCoord = true
	}
	return l, nil
}

// Reconstruct creates a Location without validation (storage hydration).
func Reconstruct(name string, payload []byte, active bool, coord *geo.Coordinate) Location {
	l := Location{name: name, payload: payload, active: active}
	if coord != nil {
		l.coord = *coord
		l.hasCoord = true
	}
	return l
}

// Name returns the unique catalog name.
func (l *Location) Name() string { return l.name }

// Payload returns the raw analysis document attached to the entry.
func (l *Location) Payload() json.RawMessage { return l.payload }

// Active reports whether the entry participates in consultations.
func (l *Location) Active() bool { return l.active }

// Coordinate returns the geographic anchor and whether one is set.
func (l *Location) Coordinate() (geo.Coordinate, bool) { return l.coord, l.hasCoord }

func clonePayload(p []byte) json.RawMessage {
	if p == nil {
		return nil
	}
	c := make(json.RawMessage, len(p))
	copy(c, p)
	return c
}
