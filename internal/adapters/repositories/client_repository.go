package repositories

import (
	"context"
	"errors"
	"fmt"
	"sales-route-service/internal/domain"
	"sales-route-service/internal/platform/obs"
	"sales-route-service/internal/ports"

	"github.com/jmoiron/sqlx"
)

// ClientRepository persists clients in Postgres. Every read and write is
// scoped to the owning user.
type ClientRepository struct {
	DB *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{DB: db}
}

var _ ports.ClientRepository = (*ClientRepository)(nil)

type clientRow struct {
	ID       string   `db:"id"`
	OwnerID  string   `db:"owner_id"`
	Name     string   `db:"name"`
	Address  string   `db:"address"`
	Lat      *float64 `db:"lat"`
	Lon      *float64 `db:"lon"`
	Active   bool     `db:"active"`
	OpensAt  int      `db:"opens_at"`
	ClosesAt int      `db:"closes_at"`
}

func (r clientRow) toDomain() domain.Client {
	c := domain.Client{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Name:     r.Name,
		Address:  r.Address,
		Active:   r.Active,
		OpensAt:  domain.TimeOfDay(r.OpensAt),
		ClosesAt: domain.TimeOfDay(r.ClosesAt),
	}
	if r.Lat != nil && r.Lon != nil {
		c.Location = &domain.Point{Lat: *r.Lat, Lon: *r.Lon}
	}
	return c
}

func clientToRow(c domain.Client) clientRow {
	opens, closes := c.Hours()
	row := clientRow{
		ID:       c.ID,
		OwnerID:  c.OwnerID,
		Name:     c.Name,
		Address:  c.Address,
		Active:   c.Active,
		OpensAt:  int(opens),
		ClosesAt: int(closes),
	}
	if c.Location != nil {
		lat, lon := c.Location.Lat, c.Location.Lon
		row.Lat, row.Lon = &lat, &lon
	}
	return row
}

const clientColumns = `id, owner_id, name, address, lat, lon, active, opens_at, closes_at`

func (r *ClientRepository) ListActiveClients(ctx context.Context, ownerID string) (_ []domain.Client, err error) {
	defer obs.Time(ctx, "clients.ListActive")(&err)

	var rows []clientRow
	q := `SELECT ` + clientColumns + ` FROM clients WHERE owner_id = $1 AND active ORDER BY id;`
	if err := r.DB.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("list active clients: %w", err)
	}
	return toClients(rows), nil
}

func (r *ClientRepository) GetClients(ctx context.Context, ownerID string, ids []string) (_ []domain.Client, err error) {
	defer obs.Time(ctx, "clients.Get")(&err)

	if len(ids) == 0 {
		return []domain.Client{}, nil
	}

	var rows []clientRow
	q := `SELECT ` + clientColumns + ` FROM clients WHERE owner_id = $1 AND id = ANY($2::text[]) ORDER BY id;`
	if err := r.DB.SelectContext(ctx, &rows, q, ownerID, ids); err != nil {
		return nil, fmt.Errorf("get clients: %w", err)
	}
	return toClients(rows), nil
}

// ListUngeocoded returns active clients of every owner that have an address
// but no coordinates.
func (r *ClientRepository) ListUngeocoded(ctx context.Context, limit int) ([]domain.Client, error) {
	var rows []clientRow
	q := `SELECT ` + clientColumns + ` FROM clients
	WHERE active AND lat IS NULL AND address <> ''
	ORDER BY owner_id, id
	LIMIT $1;`
	if err := r.DB.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("list ungeocoded clients: %w", err)
	}
	return toClients(rows), nil
}

// UpsertClients inserts or updates clients. An existing row is only
// touched when it belongs to the same owner, and a deactivated client
// stays deactivated.
func (r *ClientRepository) UpsertClients(ctx context.Context, clients []domain.Client) (err error) {
	defer obs.Time(ctx, "clients.Upsert")(&err)

	if len(clients) == 0 {
		return nil
	}

	rows := make([]clientRow, 0, len(clients))
	for _, c := range clients {
		if c.ID == "" || c.OwnerID == "" {
			return errors.New("upsert clients: id and owner_id are required")
		}
		rows = append(rows, clientToRow(c))
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert clients: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `
	INSERT INTO clients (` + clientColumns + `, updated_at)
	VALUES (:id, :owner_id, :name, :address, :lat, :lon, :active, :opens_at, :closes_at, now())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		address = EXCLUDED.address,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		active = clients.active AND EXCLUDED.active,
		opens_at = EXCLUDED.opens_at,
		closes_at = EXCLUDED.closes_at,
		updated_at = now()
	WHERE clients.owner_id = EXCLUDED.owner_id;
	`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("upsert clients id=%q: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert clients: commit: %w", err)
	}
	return nil
}

// DeactivateClient is terminal; there is no reactivation.
func (r *ClientRepository) DeactivateClient(ctx context.Context, ownerID, id string) (err error) {
	defer obs.Time(ctx, "clients.Deactivate")(&err)

	res, err := r.DB.ExecContext(ctx,
		`UPDATE clients SET active = FALSE, updated_at = now() WHERE owner_id = $1 AND id = $2;`,
		ownerID, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate client: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deactivate client %q: %w", id, ports.ErrNotFound)
	}
	return nil
}

func toClients(rows []clientRow) []domain.Client {
	out := make([]domain.Client, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
