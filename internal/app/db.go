package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"slots-service/internal/slots"
)

// OpenPool connects and pings; the caller owns the returned pool.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresRules reads availability rules as loosely typed rows; decoding is
// left to slots.BuildRuleSet.
type PostgresRules struct {
	db RowQuerier
}

// RowQuerier runs a query and returns its rows.
type RowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewPostgresRules(db RowQuerier) *PostgresRules {
	return &PostgresRules{db: db}
}

const storeWide = `(staff_id = $1 OR staff_id IS NULL OR staff_id = '')`

func (r *PostgresRules) StoreHours(ctx context.Context) ([]slots.Row, error) {
	return r.collect(ctx, "query business hours",
		`SELECT * FROM business_hours ORDER BY day_of_week, id`)
}

// StaffHours returns nil, nil when neither the id nor any look-alike spelling
// of it has a record.
func (r *PostgresRules) StaffHours(ctx context.Context, staffID string) (slots.Row, error) {
	for _, candidate := range staffIDVariants(staffID) {
		rows, err := r.collect(ctx, "query staff hours",
			`SELECT * FROM staff_hours WHERE staff_id = $1 ORDER BY id LIMIT 1`, candidate)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows[0], nil
		}
	}
	return nil, nil
}

func (r *PostgresRules) TimeOff(ctx context.Context, staffID string) ([]slots.Row, error) {
	return r.collect(ctx, "query time off",
		`SELECT * FROM time_off WHERE `+storeWide+` ORDER BY id`, staffID)
}

func (r *PostgresRules) TimeBlocks(ctx context.Context, staffID string) ([]slots.Row, error) {
	return r.collect(ctx, "query time blocks",
		`SELECT * FROM time_block WHERE `+storeWide+` ORDER BY id`, staffID)
}

func (r *PostgresRules) StaffLeaves(ctx context.Context, staffID string) ([]slots.Row, error) {
	return r.collect(ctx, "query staff leaves",
		`SELECT * FROM staff_leaves
		 WHERE staff_id = $1 AND lower(status) IN ('upcoming', 'approved')
		 ORDER BY unavailable_date, id`, staffID)
}

func (r *PostgresRules) collect(ctx context.Context, op, sql string, args ...any) ([]slots.Row, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// staffIDVariants lists id followed by the look-alike spellings staff ids are
// commonly mistyped with (1/I and 0/O), without duplicates.
func staffIDVariants(id string) []string {
	candidates := []string{
		id,
		strings.NewReplacer("1", "I", "0", "O").Replace(id),
		strings.NewReplacer("I", "1", "O", "0").Replace(id),
		strings.ReplaceAll(id, "1", "I"),
		strings.ReplaceAll(id, "I", "1"),
	}
	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
