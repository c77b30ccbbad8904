package repository

import (
	"context"
	"time"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus hijos
// (conceptos_factura, cp_autotransporte, cp_mercancias, cp_ubicaciones).
// GetByID devuelve (nil, nil) si la factura no existe.
type InvoiceRepository interface {
	// Create inserta la cabecera y asigna invoice.ID. Un folio repetido en la empresa
	// devuelve un error que cumple errors.Is(err, ErrDuplicateFolio).
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateConceptos(ctx context.Context, invoiceID int64, conceptos []entity.Concepto) error
	CreateAutotransporte(ctx context.Context, invoiceID int64, a *entity.Autotransporte) error
	CreateMercancias(ctx context.Context, invoiceID int64, mercancias []entity.Mercancia) error
	CreateUbicaciones(ctx context.Context, invoiceID int64, ubicaciones []entity.Ubicacion) error

	// UpdateHeader aplica solo los campos presentes del parche. Sin campos no hace nada.
	UpdateHeader(ctx context.Context, id int64, patch *entity.InvoicePatch) error
	// Replace*: borra todos los hijos de ese tipo y vuelve a insertar los recibidos.
	ReplaceConceptos(ctx context.Context, invoiceID int64, conceptos []entity.Concepto) error
	ReplaceAutotransporte(ctx context.Context, invoiceID int64, a *entity.Autotransporte) error
	ReplaceMercancias(ctx context.Context, invoiceID int64, mercancias []entity.Mercancia) error
	ReplaceUbicaciones(ctx context.Context, invoiceID int64, ubicaciones []entity.Ubicacion) error

	// SetDocuments guarda los ids de storage; status vacío conserva el estatus actual.
	SetDocuments(ctx context.Context, id int64, xmlFileID, pdfFileID, status string) error
	Cancel(ctx context.Context, id int64, motivo, folioSustitucion string, at time.Time) error
	MarkEmailSent(ctx context.Context, id int64, at time.Time) error

	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	// LoadChildren completa conceptos, autotransporte, mercancías y ubicaciones (por fecha_hora).
	LoadChildren(ctx context.Context, invoice *entity.Invoice) error
	// List filtra por empresa; nil = todas. Orden fecha_emision DESC.
	List(ctx context.Context, companyID *int64) ([]*entity.Invoice, error)
	// Delete borra hijos y cabecera con sentencias explícitas. Devuelve false si no existía.
	Delete(ctx context.Context, id int64) (bool, error)
}
