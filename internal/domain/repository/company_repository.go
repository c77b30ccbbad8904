package repository

import (
	"context"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// CompanyRepository define el puerto de lectura de empresas (emisor del CFDI).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
}

// CompanyDocumentRepository consulta los documentos de empresa guardados en storage.
type CompanyDocumentRepository interface {
	// LatestByType devuelve el documento más reciente del tipo, o (nil, nil).
	LatestByType(ctx context.Context, companyID int64, tipo string) (*entity.CompanyDocument, error)
}

// CatalogRepository lee claves SAT adicionales (tabla sat_catalogos) agrupadas por catálogo.
type CatalogRepository interface {
	ListCodes(ctx context.Context) (map[string][]string, error)
}
