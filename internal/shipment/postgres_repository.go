package shipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shipmentColumns = `
	id, good, transport_legs, created_at,
	total_distance, total_cost, total_emissions,
	upstream_emissions, downstream_emissions, company_owned_emissions,
	upstream_cost, downstream_cost, company_owned_cost
`

// PostgresRepository is a PostgreSQL implementation of Repository. The good
// and legs are stored as JSONB documents next to the numeric totals.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL shipment repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a shipment in a single INSERT.
func (r *PostgresRepository) Create(ctx context.Context, s *Shipment) error {
	rec, err := EncodeStored(s)
	if err != nil {
		return err
	}

	query := `INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Good, rec.Legs, rec.CreatedAt,
		rec.TotalDistance, rec.TotalCost, rec.TotalEmissions,
		rec.UpstreamEmissions, rec.DownstreamEmissions, rec.CompanyOwnedEmissions,
		rec.UpstreamCost, rec.DownstreamCost, rec.CompanyOwnedCost,
	)
	return err
}

// Get retrieves a shipment by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	s, err := scanShipment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns shipments newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments`
	var args []any

	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		query += fmt.Sprintf(" WHERE created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []*Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shipments, nil
}

// DeleteMany removes the given shipments.
func (r *PostgresRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shipments WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAll removes every shipment.
func (r *PostgresRepository) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shipments`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanShipment(row pgx.Row) (*Shipment, error) {
	var rec StoredRecord
	err := row.Scan(
		&rec.ID, &rec.Good, &rec.Legs, &rec.CreatedAt,
		&rec.TotalDistance, &rec.TotalCost, &rec.TotalEmissions,
		&rec.UpstreamEmissions, &rec.DownstreamEmissions, &rec.CompanyOwnedEmissions,
		&rec.UpstreamCost, &rec.DownstreamCost, &rec.CompanyOwnedCost,
	)
	if err != nil {
		return nil, err
	}
	return DecodeStored(rec)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
