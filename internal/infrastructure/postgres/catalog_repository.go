package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lee claves SAT adicionales de sat_catalogos.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// ListCodes agrupa las claves activas por catálogo.
func (r *CatalogRepo) ListCodes(ctx context.Context) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT catalogo, clave FROM sat_catalogos WHERE activo ORDER BY catalogo, clave`)
	if err != nil {
		return nil, fmt.Errorf("list sat_catalogos: %w", err)
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var catalogo, clave string
		if err := rows.Scan(&catalogo, &clave); err != nil {
			return nil, fmt.Errorf("scan sat_catalogos: %w", err)
		}
		out[catalogo] = append(out[catalogo], clave)
	}
	return out, rows.Err()
}
