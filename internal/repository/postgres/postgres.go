package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloomwatch/backend/internal/domain"
)

// schema creates the audit table when it does not exist yet
const schema = `
	CREATE TABLE IF NOT EXISTS acquisition_log (
		id          BIGSERIAL PRIMARY KEY,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		start_date  DATE NOT NULL,
		end_date    DATE NOT NULL,
		product     TEXT NOT NULL,
		layer       TEXT,
		mode        TEXT NOT NULL,
		point_count INTEGER NOT NULL,
		warning     TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// DB is the subset of *pgxpool.Pool the repository needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

var _ DB = (*pgxpool.Pool)(nil)

// PostgresRepository implements domain.JournalRepository
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the acquisition_log table if needed
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

// SaveAcquisition persists one acquisition outcome to PostgreSQL
func (r *PostgresRepository) SaveAcquisition(ctx context.Context, rec domain.AcquisitionRecord) error {
	query := `
		INSERT INTO acquisition_log (
			latitude, longitude, start_date, end_date, product,
			layer, mode, point_count, warning, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	// Empty strings go in as NULL for the optional columns
	_, err := r.db.Exec(ctx, query,
		rec.Latitude, rec.Longitude, rec.Start, rec.End, rec.Product,
		nullable(rec.Layer), string(rec.Mode), rec.PointCount, nullable(rec.Warning), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save acquisition: %w", err)
	}

	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
