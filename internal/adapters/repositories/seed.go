package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sales-route-service/internal/domain"
	"strings"
)

// ClientSeed is one entry of the clients seed file. Coordinates are
// optional; clients without them are geocoded later.
type ClientSeed struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	OpensAt  string   `json:"opens_at"`
	ClosesAt string   `json:"closes_at"`
}

// ParseClientSeeds validates seed entries and converts them to clients.
func ParseClientSeeds(data []byte) ([]domain.Client, error) {
	var seeds []ClientSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("seed clients: parse json: %w", err)
	}

	out := make([]domain.Client, 0, len(seeds))
	for i, s := range seeds {
		c := domain.Client{
			ID:       strings.TrimSpace(s.ID),
			OwnerID:  strings.TrimSpace(s.OwnerID),
			Name:     strings.TrimSpace(s.Name),
			Address:  strings.TrimSpace(s.Address),
			Active:   true,
			OpensAt:  domain.DefaultOpensAt,
			ClosesAt: domain.DefaultClosesAt,
		}
		if c.ID == "" || c.OwnerID == "" {
			return nil, fmt.Errorf("seed clients: item %d: id and owner_id are required", i+1)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("seed clients: item %d: name cannot be empty", i+1)
		}

		if (s.Lat == nil) != (s.Lon == nil) {
			return nil, fmt.Errorf("seed clients: item %d: lat and lon must be set together", i+1)
		}
		if s.Lat != nil {
			p := domain.Point{Lat: *s.Lat, Lon: *s.Lon}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("seed clients: item %d: %w", i+1, err)
			}
			c.Location = &p
		} else if c.Address == "" {
			return nil, fmt.Errorf("seed clients: item %d: address or coordinates required", i+1)
		}

		var err error
		if s.OpensAt != "" {
			if c.OpensAt, err = domain.ParseTimeOfDay(s.OpensAt); err != nil {
				return nil, fmt.Errorf("seed clients: item %d: %w", i+1, err)
			}
		}
		if s.ClosesAt != "" {
			if c.ClosesAt, err = domain.ParseTimeOfDay(s.ClosesAt); err != nil {
				return nil, fmt.Errorf("seed clients: item %d: %w", i+1, err)
			}
		}
		if c.OpensAt >= c.ClosesAt {
			return nil, fmt.Errorf("seed clients: item %d: opens_at %s must be before closes_at %s", i+1, c.OpensAt, c.ClosesAt)
		}

		out = append(out, c)
	}
	return out, nil
}

// SeedClientsFromJSON upserts the clients listed in a JSON file.
func SeedClientsFromJSON(ctx context.Context, repo *ClientRepository, jsonPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed clients: read %q: %w", jsonPath, err)
	}

	clients, err := ParseClientSeeds(data)
	if err != nil {
		return 0, err
	}

	if err := repo.UpsertClients(ctx, clients); err != nil {
		return 0, fmt.Errorf("seed clients: %w", err)
	}
	return len(clients), nil
}
