// Package postgres provides the Postgres-backed contest store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kkeeling/dk-contest-finder/internal/contest"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists contests and entrants in Postgres. It assumes a schema
// like:
//
//	CREATE TABLE contests (
//	    id TEXT PRIMARY KEY,
//	    title TEXT NOT NULL DEFAULT '',
//	    entry_fee NUMERIC NOT NULL DEFAULT 0,
//	    total_prizes NUMERIC NOT NULL DEFAULT 0,
//	    current_entries INT NOT NULL DEFAULT 0,
//	    maximum_entries INT NOT NULL DEFAULT 0,
//	    game_type TEXT NOT NULL DEFAULT '',
//	    status TEXT NOT NULL DEFAULT 'unprocessed',
//	    highest_experience_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    experience_distribution JSONB,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE entrants (
//	    contest_id TEXT NOT NULL REFERENCES contests (id),
//	    username TEXT NOT NULL,
//	    experience_level INT NOT NULL DEFAULT 0,
//	    PRIMARY KEY (contest_id, username)
//	);
type Store struct {
	pool dbPool
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const contestColumns = `id, title, entry_fee, total_prizes, current_entries,
	maximum_entries, game_type, status, highest_experience_ratio,
	experience_distribution`

// EnsureContest inserts a newly discovered contest; an existing row is
// left untouched so re-discovery never rewinds lifecycle state.
func (s *Store) EnsureContest(ctx context.Context, c contest.Contest) error {
	dist, err := marshalDistribution(c.ExperienceDistribution)
	if err != nil {
		return err
	}
	query := `
INSERT INTO contests (` + contestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, contestArgs(c, dist)...); err != nil {
		return fmt.Errorf("ensure contest %s: %w", c.ID, err)
	}
	return nil
}

// UpsertContest inserts the contest or replaces every mutable attribute of
// an existing row, including its status.
func (s *Store) UpsertContest(ctx context.Context, c contest.Contest) error {
	return upsertContest(ctx, s.pool, c)
}

// UpsertEntrants writes the roster rows for a contest, updating the
// experience level of entrants seen before.
func (s *Store) UpsertEntrants(ctx context.Context, contestID string, entrants []contest.Entrant) error {
	return upsertEntrants(ctx, s.pool, contestID, entrants)
}

// SaveClassified writes a classified contest together with its roster in
// one transaction, so a partial failure cannot leave the contest marked
// classified without the entrants that justified the decision.
func (s *Store) SaveClassified(ctx context.Context, d contest.Detail) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save classified: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := upsertContest(ctx, tx, d.Contest); err != nil {
		return err
	}
	if err := upsertEntrants(ctx, tx, d.Contest.ID, d.Entrants); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save classified: %w", err)
	}
	return nil
}

// UnprocessedContests returns every contest still awaiting classification.
func (s *Store) UnprocessedContests(ctx context.Context) ([]contest.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE status = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, contest.StatusUnprocessed)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed contests: %w", err)
	}
	defer rows.Close()

	var out []contest.Contest
	for rows.Next() {
		var (
			c    contest.Contest
			dist []byte
		)
		if err := rows.Scan(
			&c.ID, &c.Title, &c.EntryFee, &c.TotalPrizes, &c.CurrentEntries,
			&c.MaximumEntries, &c.GameType, &c.Status, &c.HighestExperienceRatio,
			&dist,
		); err != nil {
			return nil, fmt.Errorf("scan contest: %w", err)
		}
		if len(dist) > 0 {
			if err := json.Unmarshal(dist, &c.ExperienceDistribution); err != nil {
				return nil, fmt.Errorf("decode distribution for %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unprocessed contests: %w", err)
	}
	return out, nil
}

// Entrants returns the stored roster for a contest.
func (s *Store) Entrants(ctx context.Context, contestID string) ([]contest.Entrant, error) {
	query := `SELECT contest_id, username, experience_level FROM entrants
WHERE contest_id = $1 ORDER BY username`
	rows, err := s.pool.Query(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("query entrants for %s: %w", contestID, err)
	}
	defer rows.Close()

	var out []contest.Entrant
	for rows.Next() {
		var e contest.Entrant
		if err := rows.Scan(&e.ContestID, &e.Username, &e.ExperienceLevel); err != nil {
			return nil, fmt.Errorf("scan entrant: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entrants: %w", err)
	}
	return out, nil
}

// UpdateStatus moves a contest to the given lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, contestID string, status contest.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contests SET status = $2, updated_at = NOW() WHERE id = $1`,
		contestID, status)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", contestID, err)
	}
	if tag.RowsAffected() == 0 {
		return contest.ErrNotFound
	}
	return nil
}

// ContestStatus returns the stored lifecycle state for a contest.
func (s *Store) ContestStatus(ctx context.Context, contestID string) (contest.Status, error) {
	var status contest.Status
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM contests WHERE id = $1`, contestID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", contest.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query status for %s: %w", contestID, err)
	}
	return status, nil
}

func upsertContest(ctx context.Context, db execer, c contest.Contest) error {
	dist, err := marshalDistribution(c.ExperienceDistribution)
	if err != nil {
		return err
	}
	query := `
INSERT INTO contests (` + contestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	entry_fee = EXCLUDED.entry_fee,
	total_prizes = EXCLUDED.total_prizes,
	current_entries = EXCLUDED.current_entries,
	maximum_entries = EXCLUDED.maximum_entries,
	game_type = EXCLUDED.game_type,
	status = EXCLUDED.status,
	highest_experience_ratio = EXCLUDED.highest_experience_ratio,
	experience_distribution = EXCLUDED.experience_distribution,
	updated_at = NOW()`
	if _, err := db.Exec(ctx, query, contestArgs(c, dist)...); err != nil {
		return fmt.Errorf("upsert contest %s: %w", c.ID, err)
	}
	return nil
}

func upsertEntrants(ctx context.Context, db execer, contestID string, entrants []contest.Entrant) error {
	query := `
INSERT INTO entrants (contest_id, username, experience_level)
VALUES ($1,$2,$3)
ON CONFLICT (contest_id, username) DO UPDATE SET
	experience_level = EXCLUDED.experience_level`
	for _, e := range entrants {
		if _, err := db.Exec(ctx, query, contestID, e.Username, e.ExperienceLevel); err != nil {
			return fmt.Errorf("upsert entrant %s/%s: %w", contestID, e.Username, err)
		}
	}
	return nil
}

func contestArgs(c contest.Contest, dist []byte) []any {
	return []any{
		c.ID, c.Title, c.EntryFee, c.TotalPrizes, c.CurrentEntries,
		c.MaximumEntries, c.GameType, c.Status, c.HighestExperienceRatio, dist,
	}
}

func marshalDistribution(dist map[contest.ExperienceLevel]float64) ([]byte, error) {
	if len(dist) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(dist)
	if err != nil {
		return nil, fmt.Errorf("marshal distribution: %w", err)
	}
	return data, nil
}
