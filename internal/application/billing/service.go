package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

// RoleSuperAdmin ve y opera facturas de todas las empresas.
const RoleSuperAdmin = "superadmin"

// Actor es el usuario autenticado que ejecuta la operación.
type Actor struct {
	UserID    int64
	CompanyID int64
	Role      string
}

// IsSuperAdmin indica si el actor no está limitado a una empresa.
func (a Actor) IsSuperAdmin() bool { return a.Role == RoleSuperAdmin }

// CanAccess indica si el actor puede operar datos de la empresa.
func (a Actor) CanAccess(companyID int64) bool {
	return a.IsSuperAdmin() || (a.CompanyID != 0 && a.CompanyID == companyID)
}

// Mensajes visibles para el usuario.
const (
	msgDuplicateFolio = "El folio de la factura ya existe. Genera un nuevo folio e inténtalo de nuevo."
	msgNotFound       = "Factura no encontrada"
	msgForbidden      = "No autorizado para esta empresa"
)

// InvoiceService gestiona el ciclo de vida de la factura: alta, edición, cancelación,
// envío por correo, consulta y descarga de documentos.
//
// Los documentos se generan después del commit y nunca dentro de una transacción.
// Si fallan al crear, la factura se elimina; si fallan al editar, solo se registra en el log.
type InvoiceService struct {
	txRunner     TxRunner
	invoiceRepo  repository.InvoiceRepository
	companyRepo  repository.CompanyRepository
	documentRepo repository.CompanyDocumentRepository
	xmlRenderer  XMLRenderer
	pdfRenderer  PDFRenderer
	storage      DocumentStorage
	stamper      Stamper // nil = generación local
	mailer       Mailer
	fromName     string
	log          zerolog.Logger
	now          func() time.Time
}

// NewInvoiceService construye el servicio inyectando todas sus dependencias.
// stamper puede ser nil: en ese caso los documentos se generan con los renderers locales.
func NewInvoiceService(
	txRunner TxRunner,
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	documentRepo repository.CompanyDocumentRepository,
	xmlRenderer XMLRenderer,
	pdfRenderer PDFRenderer,
	storage DocumentStorage,
	stamper Stamper,
	mailer Mailer,
	fromName string,
	log zerolog.Logger,
) *InvoiceService {
	if fromName == "" {
		fromName = "S.F.T.C."
	}
	return &InvoiceService{
		txRunner:     txRunner,
		invoiceRepo:  invoiceRepo,
		companyRepo:  companyRepo,
		documentRepo: documentRepo,
		xmlRenderer:  xmlRenderer,
		pdfRenderer:  pdfRenderer,
		storage:      storage,
		stamper:      stamper,
		mailer:       mailer,
		fromName:     fromName,
		log:          log.With().Str("component", "billing").Logger(),
		now:          time.Now,
	}
}

// load obtiene la factura verificando que exista y que el actor tenga acceso a su empresa.
func (s *InvoiceService) load(ctx context.Context, actor Actor, id int64, withChildren bool) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("billing: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.NotFound(msgNotFound)
	}
	if !actor.CanAccess(inv.CompanyID) {
		return nil, errForbidden()
	}
	if withChildren {
		if err := s.invoiceRepo.LoadChildren(ctx, inv); err != nil {
			return nil, fmt.Errorf("billing: obtener detalle de factura: %w", err)
		}
	}
	return inv, nil
}

func errForbidden() error {
	return &domain.Error{Kind: domain.ErrForbidden, Message: msgForbidden}
}
