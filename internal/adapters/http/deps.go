package http

import (
	"context"

	"github.com/samirrijal/cafelog/internal/core/usecases"
)

// CheckFunc probes one backing service for the readiness endpoint.
type CheckFunc func(ctx context.Context) error

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Cafes  *usecases.CafeService
	Photos *usecases.PhotoService
	Fog    *usecases.FogService
	Places *usecases.PlaceService
	// Hub fans café changes out to live fog sessions. Optional.
	Hub *FogHub
	// Checks are run by /v1/ready, keyed by component name.
	Checks map[string]CheckFunc
	// OpenAPIPath is served at /docs/openapi.yaml. Defaults to api/openapi.yaml.
	OpenAPIPath string
}
