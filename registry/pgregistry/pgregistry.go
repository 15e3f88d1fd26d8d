// Package pgregistry mirrors registry.Registry registrations into
// Postgres for audit and cross-process visibility, grounded on
// ipiton's pgxpool-based repository style (template.repository.go):
// one row per (entity_type, version), upserted on registration. A
// Factory cannot be persisted, so pgregistry only ever mirrors
// metadata — the live registry.Registry remains the source of truth
// for building Machines.
package pgregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

// Mirror writes registry.Entry metadata to a Postgres table as
// registrations happen, so an operator can audit the full registration
// history across process restarts.
type Mirror struct {
	pool      *pgxpool.Pool
	tableName string
}

// New constructs a Mirror over an already-connected pool. tableName
// defaults to "grainfsm_registry" if empty.
func New(pool *pgxpool.Pool, tableName string) *Mirror {
	if tableName == "" {
		tableName = "grainfsm_registry"
	}
	return &Mirror{pool: pool, tableName: tableName}
}

// OnRegister is meant to be called right after a successful
// registry.Registry.Register, e.g.:
//
//	if err := reg.Register(entityType, version, stateType, triggerType, factory, meta); err != nil {
//	    return err
//	}
//	if err := mirror.OnRegister(ctx, entityType, version, stateType, triggerType, meta); err != nil {
//	    logger.Warn("registry mirror failed", "error", err)
//	}
func (m *Mirror) OnRegister(ctx context.Context, entityType string, version fsmtype.Version, stateType, triggerType string, meta registry.Metadata) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (entity_type, major, minor, patch, pre_release, state_type, trigger_type, metadata, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (entity_type, major, minor, patch, pre_release)
		DO UPDATE SET state_type = $6, trigger_type = $7, metadata = $8, registered_at = $9
	`, m.tableName)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("pgregistry: marshal metadata: %w", err)
	}

	_, err = m.pool.Exec(ctx, query,
		entityType, version.Major, version.Minor, version.Patch, version.PreRelease,
		stateType, triggerType, metaJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("pgregistry: upsert registration: %w", err)
	}
	return nil
}

// ListVersions returns every version mirrored for entityType, for
// operator tooling (cmd/grainfsmctl) that wants registration history
// independent of the live in-process registry.
func (m *Mirror) ListVersions(ctx context.Context, entityType string) ([]fsmtype.Version, error) {
	query := fmt.Sprintf(`
		SELECT major, minor, patch, pre_release
		FROM %s
		WHERE entity_type = $1
		ORDER BY major DESC, minor DESC, patch DESC
	`, m.tableName)

	rows, err := m.pool.Query(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("pgregistry: query versions: %w", err)
	}
	defer rows.Close()

	var result []fsmtype.Version
	for rows.Next() {
		var v fsmtype.Version
		if err := rows.Scan(&v.Major, &v.Minor, &v.Patch, &v.PreRelease); err != nil {
			return nil, fmt.Errorf("pgregistry: scan version: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
