package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bizibide/internal/adapters/postgres"
	"github.com/samirrijal/bizibide/internal/adapters/valkey"
	"github.com/samirrijal/bizibide/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Rides     *usecases.RideService
	Elevation *usecases.ElevationService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache

	// MaxUploadBytes caps the size of an uploaded track file.
	MaxUploadBytes int
}
