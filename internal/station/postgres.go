package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `code, network, latitude, longitude, elevation, location,
	province, upt, network_group, install_year`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the metadata database and verifies the
// connection with a bounded ping.
func NewPostgresRepository(ctx context.Context, url string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	slog.Info("station metadata database connected")
	return &PostgresRepository{pool: pool}, nil
}

// Lookup returns the metadata for one station code.
func (r *PostgresRepository) Lookup(ctx context.Context, code string) (*Metadata, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM stations WHERE code = $1`, code)
	if err != nil {
		return nil, fmt.Errorf("station lookup failed: %w", err)
	}

	meta, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Metadata])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound(code)
		}
		return nil, fmt.Errorf("station lookup failed: %w", err)
	}
	return &meta, nil
}

// List returns all stations ordered by code.
func (r *PostgresRepository) List(ctx context.Context) ([]Metadata, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM stations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("station list failed: %w", err)
	}

	stations, err := pgx.CollectRows(rows, pgx.RowToStructByName[Metadata])
	if err != nil {
		return nil, fmt.Errorf("station list failed: %w", err)
	}
	return stations, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
