package goods

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL goods repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new good.
func (r *PostgresRepository) Create(ctx context.Context, g *Good) error {
	query := `
		INSERT INTO goods (id, name, quantity, unit, ghg_category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		g.ID, g.Name, g.Quantity, string(g.Unit), string(g.Category), g.CreatedAt,
	)
	return err
}

// Get retrieves a good by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Good, error) {
	query := `
		SELECT id, name, quantity, unit, COALESCE(ghg_category, ''), created_at
		FROM goods
		WHERE id = $1
	`

	g, err := scanGood(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoodNotFound
		}
		return nil, err
	}
	return g, nil
}

// List returns all goods ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*Good, error) {
	query := `
		SELECT id, name, quantity, unit, COALESCE(ghg_category, ''), created_at
		FROM goods
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goods []*Good
	for rows.Next() {
		g, err := scanGood(rows)
		if err != nil {
			return nil, err
		}
		goods = append(goods, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goods, nil
}

func scanGood(row pgx.Row) (*Good, error) {
	var (
		g        Good
		unit     string
		category string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Quantity, &unit, &category, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Unit = Unit(unit)
	g.Category = Category(category).OrDefault()
	return &g, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
