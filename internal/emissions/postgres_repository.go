package emissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightledger/freightledger/internal/distance"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

const factorColumns = `id, transport_mode, vehicle_type, emission_factor, unit, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL emission factor repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns all factors ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*Factor, error) {
	query := `SELECT ` + factorColumns + ` FROM emission_factors ORDER BY created_at, id`
	return r.query(ctx, query)
}

// ListByMode returns the factors for one transport mode.
func (r *PostgresRepository) ListByMode(ctx context.Context, mode distance.Mode) ([]*Factor, error) {
	query := `SELECT ` + factorColumns + ` FROM emission_factors WHERE transport_mode = $1 ORDER BY created_at, id`
	return r.query(ctx, query, string(mode))
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*Factor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factors []*Factor
	for rows.Next() {
		f, err := scanFactor(rows)
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return factors, nil
}

// Get retrieves a factor by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Factor, error) {
	query := `SELECT ` + factorColumns + ` FROM emission_factors WHERE id = $1`

	f, err := scanFactor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFactorNotFound
		}
		return nil, err
	}
	return f, nil
}

const insertFactor = `
	INSERT INTO emission_factors (` + factorColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Create stores a new factor.
func (r *PostgresRepository) Create(ctx context.Context, f *Factor) error {
	_, err := r.pool.Exec(ctx, insertFactor,
		f.ID, string(f.Mode), f.VehicleType, f.Value, f.Unit, f.CreatedAt, f.UpdatedAt,
	)
	return mapWriteError(err)
}

// CreateMany stores factors in one transaction.
func (r *PostgresRepository) CreateMany(ctx context.Context, factors []*Factor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	for _, f := range factors {
		_, err := tx.Exec(ctx, insertFactor,
			f.ID, string(f.Mode), f.VehicleType, f.Value, f.Unit, f.CreatedAt, f.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err)
		}
	}

	return tx.Commit(ctx)
}

// Update replaces an existing factor.
func (r *PostgresRepository) Update(ctx context.Context, f *Factor) error {
	query := `
		UPDATE emission_factors
		SET transport_mode = $2, vehicle_type = $3, emission_factor = $4, unit = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, f.ID, string(f.Mode), f.VehicleType, f.Value, f.Unit, f.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFactorNotFound
	}
	return nil
}

// Delete removes a factor by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM emission_factors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFactorNotFound
	}
	return nil
}

// Count returns the number of stored factors.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM emission_factors`).Scan(&n)
	return n, err
}

func scanFactor(row pgx.Row) (*Factor, error) {
	var (
		f    Factor
		mode string
	)
	err := row.Scan(&f.ID, &mode, &f.VehicleType, &f.Value, &f.Unit, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Mode = distance.Mode(mode)
	return &f, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateFactor
	}
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
