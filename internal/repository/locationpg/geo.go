package locationpg

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	domgeo "github.com/casainvest/renoplan/internal/domain/geo"
	domloc "github.com/casainvest/renoplan/internal/domain/location"
)

// The geo column holds a WKT point in the usual lon/lat axis order:
// POINT (26.10 44.43).

func wktColumn(loc domloc.Location) (*string, error) {
	coord, ok := loc.Coordinate()
	if !ok {
		return nil, nil
	}
	s, err := coordToWKT(coord)
	if err != nil {
		return nil, fmt.Errorf("encode geo for %s: %w", loc.Name(), err)
	}
	return &s, nil
}

func coordToWKT(coord domgeo.Coordinate) (string, error) {
	return wkt.Marshal(geom.NewPointFlat(geom.XY, []float64{coord.Lon, coord.Lat}))
}

func coordFromWKT(s *string) (*domgeo.Coordinate, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	g, err := wkt.Unmarshal(*s)
	if err != nil {
		return nil, fmt.Errorf("unmarshal wkt %q: %w", *s, err)
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("geo column holds %T, want point", g)
	}
	return &domgeo.Coordinate{Lat: p.Y(), Lon: p.X()}, nil
}
