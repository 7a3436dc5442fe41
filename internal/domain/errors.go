package domain

import "errors"

var (
	// ErrLocationNotFound signals a missing catalog location.
	ErrLocationNotFound = errors.New("location not found")
	// ErrLocationExists signals a duplicate catalog location.
	ErrLocationExists = errors.New("location already exists")
	// ErrEmptyBrief signals a consultation request without a usable brief.
	ErrEmptyBrief = errors.New("empty requirement brief")
	// ErrIncompleteGeo signals a partially specified geographic anchor.
	ErrIncompleteGeo = errors.New("incomplete geo anchor: latitude, longitude and radius must be provided together")
	// ErrInvalidCoordinates signals out-of-range latitude/longitude.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidRadius signals a non-positive search radius.
	ErrInvalidRadius = errors.New("radius must be greater than zero")

	// ErrEngineError signals an analysis engine failure.
	ErrEngineError = errors.New("analysis engine error")
	// ErrEngineRateLimited signals a rate limit hit on the analysis engine.
	ErrEngineRateLimited = errors.New("analysis engine rate limited")
	// ErrCatalogUnavailable signals that the location catalog cannot be read.
	ErrCatalogUnavailable = errors.New("location catalog unavailable")
)
