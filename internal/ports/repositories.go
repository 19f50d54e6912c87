package ports

import (
	"context"
	"errors"
	"sales-route-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Port: per-user client store.
type ClientRepository interface {
	// Return the owner's active clients, geocoded or not.
	ListActiveClients(ctx context.Context, ownerID string) ([]domain.Client, error)
	// Return the owner's clients with the given ids (active or not).
	GetClients(ctx context.Context, ownerID string, ids []string) ([]domain.Client, error)
	UpsertClients(ctx context.Context, clients []domain.Client) error
	DeactivateClient(ctx context.Context, ownerID, id string) error
}

// Port: route persistence gateway. A route and its stops are always written
// as a single all-or-nothing unit.
type RouteRepository interface {
	SaveRoute(ctx context.Context, route *domain.Route) error
	GetRoute(ctx context.Context, ownerID, id string) (*domain.Route, error)
	ListRoutes(ctx context.Context, ownerID string, limit int) ([]domain.Route, error)
	// Replace the whole stop set and aggregates of an existing route.
	ReplaceStops(ctx context.Context, route *domain.Route) error
	DeleteRoute(ctx context.Context, ownerID, id string) error
}
