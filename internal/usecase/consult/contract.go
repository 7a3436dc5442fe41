package consult

import (
	"context"

	"github.com/casainvest/renoplan/internal/domain/blueprint"
	"github.com/casainvest/renoplan/internal/domain/location"
)

// CatalogReader defines the storage contract for candidate selection.
// ListActiveWithCoordinates returns lightweight entries (name and coordinate,
// no payload); survivors of the radius filter are hydrated via GetByName.
type CatalogReader interface {
	ListActive(ctx context.Context) ([]location.Location, error)
	ListActiveWithCoordinates(ctx context.Context) ([]location.Location, error)
	GetByName(ctx context.Context, name string) (location.Location, error)
}

// Engine produces one renovation blueprint for one catalog location.
type Engine interface {
	Analyze(ctx context.Context, brief string, loc location.Location) (blueprint.Blueprint, error)
}
