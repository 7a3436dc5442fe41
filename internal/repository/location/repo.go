// Package location persists the renovation catalog as RedisJSON documents,
// one per property, keyed <prefix>loc:<name>.
package location

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/casainvest/renoplan/internal/db"
	"github.com/casainvest/renoplan/internal/domain"
	domloc "github.com/casainvest/renoplan/internal/domain/location"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetNX(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/consult.CatalogReader plus the write side used
// by the importer and the admin surface.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a catalog repository. An empty keyPrefix falls back to
// domain.KeyPrefix.
func New(s store, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Put creates or replaces a catalog entry.
func (r *Repo) Put(ctx context.Context, loc domloc.Location) error {
	data, err := marshalDoc(loc)
	if err != nil {
		return err
	}
	if err := r.store.JSONSet(ctx, r.key(loc.Name()), "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", loc.Name(), err)
	}
	return nil
}

// Create stores a catalog entry only if the name is still free.
func (r *Repo) Create(ctx context.Context, loc domloc.Location) error {
	data, err := marshalDoc(loc)
	if err != nil {
		return err
	}
	if err := r.store.JSONSetNX(ctx, r.key(loc.Name()), "$", data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return domain.ErrLocationExists
		}
		return fmt.Errorf("json.set nx %s: %w", loc.Name(), err)
	}
	return nil
}

// PutMulti stores a batch of entries in one pipelined round-trip.
func (r *Repo) PutMulti(ctx context.Context, locs []domloc.Location) error {
	if len(locs) == 0 {
		return nil
	}
	items := make([]db.JSONSetItem, len(locs))
	for i := range locs {
		data, err := marshalDoc(locs[i])
		if err != nil {
			return err
		}
		items[i] = db.JSONSetItem{Key: r.key(locs[i].Name()), Path: "$", Data: data}
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set multi: %w", err)
	}
	return nil
}

// GetByName returns a catalog entry with its full payload.
func (r *Repo) GetByName(ctx context.Context, name string) (domloc.Location, error) {
	raw, err := r.store.JSONGet(ctx, r.key(name), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domloc.Location{}, domain.ErrLocationNotFound
		}
		return domloc.Location{}, fmt.Errorf("json.get %s: %w", name, err)
	}
	loc, err := parseJSONGetResult(raw)
	if err != nil {
		return domloc.Location{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return loc, nil
}

// Exists checks whether a catalog entry is present.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.key(name))
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", name, err)
	}
	return ok, nil
}

// Delete removes a catalog entry.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := r.key(name)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", name, err)
	}
	if !exists {
		return domain.ErrLocationNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", name, err)
	}
	return nil
}

// ListActive returns all active entries with payloads, sorted by name.
func (r *Repo) ListActive(ctx context.Context) ([]domloc.Location, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domloc.Location{}, nil
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	locations := make([]domloc.Location, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue // deleted between scan and fetch
		}
		loc, err := parseJSONGetResult(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keys[i], err)
		}
		if !loc.Active() {
			continue
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

// ListActiveWithCoordinates returns a payload-free listing for geo
// filtering: name, active flag and anchor only. Callers hydrate the
// survivors via GetByName.
func (r *Repo) ListActiveWithCoordinates(ctx context.Context) ([]domloc.Location, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domloc.Location{}, nil
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$.name", "$.active", "$.lat", "$.lon")
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	locations := make([]domloc.Location, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		loc, ok, err := parseLightResult(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keys[i], err)
		}
		if !ok {
			continue
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

// scanKeys lists catalog keys in deterministic order. SCAN itself
// guarantees no ordering, so keys are sorted before use.
func (r *Repo) scanKeys(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.key("*"))
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repo) key(name string) string {
	return r.keyPrefix + "loc:" + name
}
