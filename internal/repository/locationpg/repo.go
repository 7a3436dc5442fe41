// Package locationpg persists the renovation catalog in PostgreSQL, one
// row per property with the payload in a JSONB column and the anchor as
// a WKT point.
package locationpg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casainvest/renoplan/internal/domain"
	domloc "github.com/casainvest/renoplan/internal/domain/location"
)

// Repo implements usecase/consult.CatalogReader plus the write side used
// by the importer, backed by a pgx connection pool.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// EnsureSchema creates the locations table if it is missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS locations (
			name       TEXT PRIMARY KEY,
			payload    JSONB NOT NULL DEFAULT '{}',
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			geo        TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure locations schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (r *Repo) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := r.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Put creates or replaces a catalog entry.
func (r *Repo) Put(ctx context.Context, loc domloc.Location) error {
	geoWKT, err := wktColumn(loc)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO locations (name, payload, active, geo)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET payload = EXCLUDED.payload,
		    active = EXCLUDED.active,
		    geo = EXCLUDED.geo,
		    updated_at = NOW()`,
		loc.Name(), []byte(loc.Payload()), loc.Active(), geoWKT)
	if err != nil {
		return fmt.Errorf("upsert location %s: %w", loc.Name(), err)
	}
	return nil
}

// Create stores a catalog entry only if the name is still free.
func (r *Repo) Create(ctx context.Context, loc domloc.Location) error {
	geoWKT, err := wktColumn(loc)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO locations (name, payload, active, geo)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`,
		loc.Name(), []byte(loc.Payload()), loc.Active(), geoWKT)
	if err != nil {
		return fmt.Errorf("insert location %s: %w", loc.Name(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLocationExists
	}
	return nil
}

// PutMulti stores a batch of entries inside a single transaction.
func (r *Repo) PutMulti(ctx context.Context, locs []domloc.Location) error {
	if len(locs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := range locs {
		geoWKT, err := wktColumn(locs[i])
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO locations (name, payload, active, geo)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE
			SET payload = EXCLUDED.payload,
			    active = EXCLUDED.active,
			    geo = EXCLUDED.geo,
			    updated_at = NOW()`,
			locs[i].Name(), []byte(locs[i].Payload()), locs[i].Active(), geoWKT)
		if err != nil {
			return fmt.Errorf("upsert location %s: %w", locs[i].Name(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByName returns a catalog entry with its full payload.
func (r *Repo) GetByName(ctx context.Context, name string) (domloc.Location, error) {
	var (
		payload json.RawMessage
		active  bool
		geoWKT  *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT payload, active, geo FROM locations WHERE name = $1`, name,
	).Scan(&payload, &active, &geoWKT)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domloc.Location{}, domain.ErrLocationNotFound
		}
		return domloc.Location{}, fmt.Errorf("select location %s: %w", name, err)
	}

	coord, err := coordFromWKT(geoWKT)
	if err != nil {
		return domloc.Location{}, fmt.Errorf("parse geo for %s: %w", name, err)
	}
	return domloc.Reconstruct(name, payload, active, coord), nil
}

// Exists checks whether a catalog entry is present.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM locations WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", name, err)
	}
	return exists, nil
}

// Delete removes a catalog entry.
func (r *Repo) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete location %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

// ListActive returns all active entries with payloads, sorted by name.
func (r *Repo) ListActive(ctx context.Context) ([]domloc.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, payload, active, geo FROM locations WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := []domloc.Location{}
	for rows.Next() {
		var (
			name    string
			payload json.RawMessage
			active  bool
			geoWKT  *string
		)
		if err := rows.Scan(&name, &payload, &active, &geoWKT); err != nil {
			return nil, fmt.Errorf("scan location row: %w", err)
		}
		coord, err := coordFromWKT(geoWKT)
		if err != nil {
			return nil, fmt.Errorf("parse geo for %s: %w", name, err)
		}
		locations = append(locations, domloc.Reconstruct(name, payload, active, coord))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

// ListActiveWithCoordinates returns a payload-free listing for geo
// filtering: name and anchor only. Callers hydrate the survivors via
// GetByName.
func (r *Repo) ListActiveWithCoordinates(ctx context.Context) ([]domloc.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, geo FROM locations WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list location anchors: %w", err)
	}
	defer rows.Close()

	locations := []domloc.Location{}
	for rows.Next() {
		var (
			name   string
			geoWKT *string
		)
		if err := rows.Scan(&name, &geoWKT); err != nil {
			return nil, fmt.Errorf("scan anchor row: %w", err)
		}
		coord, err := coordFromWKT(geoWKT)
		if err != nil {
			return nil, fmt.Errorf("parse geo for %s: %w", name, err)
		}
		locations = append(locations, domloc.Reconstruct(name, nil, true, coord))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anchors: %w", err)
	}
	return locations, nil
}
