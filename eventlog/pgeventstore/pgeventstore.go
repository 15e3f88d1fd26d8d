// Package pgeventstore is a Postgres-backed eventlog.EventStore,
// grounded on potter's eventsourcing.PostgresEventStore (same table
// shape and query style, adapted to grainfsm's StoredEvent/Snapshot
// types and to a pooled connection since one store here serves every
// entity stream concurrently rather than one aggregate at a time).
package pgeventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Config configures a Store's schema and connection pool.
type Config struct {
	DSN         string
	SchemaName  string
	EventsTable string
	SnapsTable  string
}

// Validate fills in defaults and rejects a missing DSN.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("pgeventstore: DSN cannot be empty")
	}
	if c.SchemaName == "" {
		c.SchemaName = "public"
	}
	if c.EventsTable == "" {
		c.EventsTable = "grainfsm_events"
	}
	if c.SnapsTable == "" {
		c.SnapsTable = "grainfsm_snapshots"
	}
	return nil
}

// Store is a Postgres-backed EventStore: one row per StoredEvent, one
// row per stream's latest Snapshot.
type Store struct {
	cfg  Config
	pool *pgxpool.Pool
}

// Open validates cfg, connects a pool, and returns a ready Store. The
// caller is responsible for having applied the schema migration
// (events table keyed on (stream_id, seq), snapshots table keyed on
// stream_id) before first use.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgeventstore: connect: %w", err)
	}
	return &Store{cfg: cfg, pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) eventsTable() string { return fmt.Sprintf("%s.%s", s.cfg.SchemaName, s.cfg.EventsTable) }
func (s *Store) snapsTable() string  { return fmt.Sprintf("%s.%s", s.cfg.SchemaName, s.cfg.SnapsTable) }

// AppendEvents inserts events for streamID inside one transaction, in
// order, failing the whole batch if any row conflicts on (stream_id, seq).
func (s *Store) AppendEvents(ctx context.Context, streamID string, events []fsmtype.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgeventstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (stream_id, seq, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.eventsTable())

	now := time.Now().UTC()
	for _, event := range events {
		if _, err := tx.Exec(ctx, insertQuery, streamID, event.Seq, event.Kind, event.Payload, now); err != nil {
			return fmt.Errorf("pgeventstore: insert event seq=%d: %w", event.Seq, err)
		}
	}

	return tx.Commit(ctx)
}

// ReadEvents returns events for streamID with seq >= fromSeq, ascending,
// bounded by limit (0 meaning unbounded).
func (s *Store) ReadEvents(ctx context.Context, streamID string, fromSeq uint64, limit int) ([]fsmtype.StoredEvent, error) {
	query := fmt.Sprintf(`
		SELECT seq, kind, payload
		FROM %s
		WHERE stream_id = $1 AND seq >= $2
		ORDER BY seq ASC
	`, s.eventsTable())
	args := []any{streamID, fromSeq}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgeventstore: query events: %w", err)
	}
	defer rows.Close()

	var result []fsmtype.StoredEvent
	for rows.Next() {
		var event fsmtype.StoredEvent
		if err := rows.Scan(&event.Seq, &event.Kind, &event.Payload); err != nil {
			return nil, fmt.Errorf("pgeventstore: scan event: %w", err)
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// WriteSnapshot upserts streamID's latest snapshot row.
func (s *Store) WriteSnapshot(ctx context.Context, streamID string, snapshot fsmtype.Snapshot) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (stream_id, seq, state, version_major, version_minor, version_patch, blob, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stream_id)
		DO UPDATE SET seq = $2, state = $3, version_major = $4, version_minor = $5, version_patch = $6, blob = $7, created_at = $8
	`, s.snapsTable())

	_, err := s.pool.Exec(ctx, query,
		streamID, snapshot.Seq, string(snapshot.State),
		snapshot.Version.Major, snapshot.Version.Minor, snapshot.Version.Patch,
		snapshot.Blob, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("pgeventstore: write snapshot: %w", err)
	}
	return nil
}

// ReadLatestSnapshot returns streamID's snapshot row, or ok=false if
// none has been written yet.
func (s *Store) ReadLatestSnapshot(ctx context.Context, streamID string) (*fsmtype.Snapshot, bool, error) {
	query := fmt.Sprintf(`
		SELECT seq, state, version_major, version_minor, version_patch, blob, created_at
		FROM %s
		WHERE stream_id = $1
	`, s.snapsTable())

	var snapshot fsmtype.Snapshot
	var state string
	var blob []byte
	err := s.pool.QueryRow(ctx, query, streamID).Scan(
		&snapshot.Seq, &state,
		&snapshot.Version.Major, &snapshot.Version.Minor, &snapshot.Version.Patch,
		&blob, &snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pgeventstore: read snapshot: %w", err)
	}
	snapshot.State = fsmtype.StateSymbol(state)
	snapshot.Blob = blob

	return &snapshot, true, nil
}
