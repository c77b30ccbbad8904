package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

// Create registra la factura con sus hijos en una sola transacción.
// Un borrador termina ahí; el resto se timbra y sus documentos se suben a storage.
// Si la generación falla la factura se elimina y se devuelve ErrGeneration.
func (s *InvoiceService) Create(ctx context.Context, actor Actor, in dto.CreateInvoiceRequest) (*dto.CreateInvoiceResponse, error) {
	companyID := in.IDEmpresa
	if companyID == 0 {
		companyID = actor.CompanyID
	}
	if companyID == 0 {
		return nil, domain.Validation("El usuario no tiene una empresa asignada o no se envió el ID de la empresa.")
	}
	if !actor.CanAccess(companyID) {
		return nil, errForbidden()
	}
	if in.Folio == "" {
		return nil, domain.Validation("No se generó el folio de la factura.")
	}
	draft := entity.IsDraftLike(in.Estatus)
	if !draft && in.Total.IsZero() {
		return nil, domain.Validation("El total de la factura no puede ser 0.")
	}

	inv := toInvoice(in, companyID, actor.UserID)
	inv.FechaEmision = s.now()

	err := s.txRunner.RunInvoice(ctx, func(repo repository.InvoiceRepository) error {
		if err := repo.Create(ctx, inv); err != nil {
			return err
		}
		if err := repo.CreateConceptos(ctx, inv.ID, inv.Conceptos); err != nil {
			return err
		}
		if err := repo.CreateAutotransporte(ctx, inv.ID, inv.Autotransporte); err != nil {
			return err
		}
		if err := repo.CreateMercancias(ctx, inv.ID, inv.Mercancias); err != nil {
			return err
		}
		return repo.CreateUbicaciones(ctx, inv.ID, inv.Ubicaciones)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateFolio) {
			return nil, domain.Conflict(msgDuplicateFolio)
		}
		return nil, fmt.Errorf("billing: crear factura: %w", err)
	}

	if draft {
		s.log.Info().Int64("id_factura", inv.ID).Str("folio", inv.Folio).Msg("borrador guardado")
		return &dto.CreateInvoiceResponse{
			IDFactura: inv.ID,
			Estatus:   entity.InvoiceStatusDraft,
			Mensaje:   "Borrador guardado exitosamente",
		}, nil
	}

	ids, err := s.generateAndUpload(ctx, inv, true)
	if err == nil {
		err = s.invoiceRepo.SetDocuments(ctx, inv.ID, ids.xml, ids.pdf, entity.InvoiceStatusStamped)
	}
	if err != nil {
		s.compensate(ctx, inv.ID, err)
		return nil, domain.Generation(err, "Error al procesar archivos o timbrar: %s. La factura no se guardó.",
			domain.MessageOf(err, err.Error()))
	}

	s.log.Info().Int64("id_factura", inv.ID).Str("folio", inv.Folio).Str("xml_fileId", ids.xml).
		Str("pdf_fileId", ids.pdf).Msg("factura timbrada")
	return &dto.CreateInvoiceResponse{
		IDFactura: inv.ID,
		Estatus:   entity.InvoiceStatusStamped,
		XMLFileID: strPtr(ids.xml),
		PDFFileID: strPtr(ids.pdf),
	}, nil
}

// compensate elimina la factura recién creada. Se ejecuta aunque el contexto de la petición se haya cancelado.
func (s *InvoiceService) compensate(ctx context.Context, id int64, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.invoiceRepo.Delete(ctx, id); err != nil {
		s.log.Error().Err(err).Int64("id_factura", id).AnErr("causa", cause).
			Msg("no se pudo eliminar la factura tras fallar la generación")
		return
	}
	s.log.Warn().Int64("id_factura", id).AnErr("causa", cause).Msg("factura eliminada tras fallar la generación")
}
