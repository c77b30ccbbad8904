package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

var _ repository.CompanyDocumentRepository = (*CompanyDocumentRepo)(nil)

// CompanyDocumentRepo lee documentos_empresa.
type CompanyDocumentRepo struct {
	pool *pgxpool.Pool
}

func NewCompanyDocumentRepository(pool *pgxpool.Pool) *CompanyDocumentRepo {
	return &CompanyDocumentRepo{pool: pool}
}

// LatestByType devuelve el documento más reciente del tipo para la empresa.
func (r *CompanyDocumentRepo) LatestByType(ctx context.Context, companyID int64, tipo string) (*entity.CompanyDocument, error) {
	query := `
		SELECT id_documento, id_empresa, tipo_documento, COALESCE(nombre_original, ''),
		       COALESCE(nombre_storage, ''), file_id, COALESCE(extension, ''), fecha_subida
		FROM documentos_empresa
		WHERE id_empresa = $1 AND tipo_documento = $2
		ORDER BY fecha_subida DESC
		LIMIT 1`
	var d entity.CompanyDocument
	err := r.pool.QueryRow(ctx, query, companyID, tipo).Scan(
		&d.ID, &d.CompanyID, &d.Tipo, &d.NombreOriginal,
		&d.NombreStorage, &d.FileID, &d.Extension, &d.FechaSubida,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get documento empresa: %w", err)
	}
	return &d, nil
}
