// Package consult defines the consultation request aggregate.
package consult

import (
	"fmt"
	"strings"

	"github.com/casainvest/renoplan/internal/domain"
	"github.com/casainvest/renoplan/internal/domain/geo"
)

// MaxBriefLength is the maximum requirement brief length in bytes.
const MaxBriefLength = 8192

// GeoAnchor is a validated geographic search area.
type GeoAnchor struct {
	Center   geo.Coordinate
	RadiusKm float64
}

// Requirement is a validated consultation request.
type Requirement struct {
	brief  string
	anchor *GeoAnchor
}

// NewRequirement validates and creates a Requirement.
// The brief is trimmed and must be non-empty. The geographic anchor is
// all-or-nothing: latitude, longitude and radius are either all absent or
// all present and valid.
func NewRequirement(brief string, lat, lon, radiusKm *float64) (Requirement, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return Requirement{}, domain.ErrEmptyBrief
	}
	if len(brief) > MaxBriefLength {
		return Requirement{}, fmt.Errorf("requirement brief too long (max %d bytes)", MaxBriefLength)
	}

	if lat == nil && lon == nil && radiusKm == nil {
		return Requirement{brief: brief}, nil
	}
	if lat == nil || lon == nil || radiusKm == nil {
		return Requirement{}, domain.ErrIncompleteGeo
	}
	if !geo.ValidateCoordinates(*lat, *lon) {
		return Requirement{}, fmt.Errorf("%w: lat=%v lon=%v", domain.ErrInvalidCoordinates, *lat, *lon)
	}
	if *radiusKm <= 0 {
		return Requirement{}, domain.ErrInvalidRadius
	}

	return Requirement{
		brief: brief,
		anchor: &GeoAnchor{
			Center:   geo.Coordinate{Lat: *lat, Lon: *lon},
			RadiusKm: *radiusKm,
		},
	}, nil
}

// Brief returns the trimmed renovation brief.
func (r *Requirement) Brief() string { return r.brief }

// Anchor returns the geographic anchor and whether one was requested.
func (r *Requirement) Anchor() (GeoAnchor, bool) {
	if r.anchor == nil {
		return GeoAnchor{}, false
	}
	return *r.anchor, true
}
