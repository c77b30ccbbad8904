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

// Update aplica una edición parcial. Las colecciones enviadas reemplazan por completo a las guardadas.
// Si la factura resultante no es borrador, los documentos se regeneran localmente; una falla ahí
// se registra y la respuesta lleva los ids en null.
func (s *InvoiceService) Update(ctx context.Context, actor Actor, id int64, in dto.UpdateInvoiceRequest) (*dto.UpdateInvoiceResponse, error) {
	inv, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	if inv.Status == entity.InvoiceStatusCancelled {
		return nil, domain.Conflict("No se puede editar una factura cancelada")
	}

	patch := toPatch(in)
	err = s.txRunner.RunInvoice(ctx, func(repo repository.InvoiceRepository) error {
		if patch.HasHeaderChanges() {
			if err := repo.UpdateHeader(ctx, id, patch); err != nil {
				return err
			}
		}
		if patch.Conceptos != nil {
			if err := repo.ReplaceConceptos(ctx, id, *patch.Conceptos); err != nil {
				return err
			}
		}
		if patch.Autotransporte != nil {
			if err := repo.ReplaceAutotransporte(ctx, id, *patch.Autotransporte); err != nil {
				return err
			}
		}
		if patch.Mercancias != nil {
			if err := repo.ReplaceMercancias(ctx, id, *patch.Mercancias); err != nil {
				return err
			}
		}
		if patch.Ubicaciones != nil {
			return repo.ReplaceUbicaciones(ctx, id, *patch.Ubicaciones)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateFolio) {
			return nil, domain.Conflict(msgDuplicateFolio)
		}
		return nil, fmt.Errorf("billing: actualizar factura: %w", err)
	}
	patch.ApplyTo(inv)

	if inv.IsDraft() {
		return &dto.UpdateInvoiceResponse{
			OK:        true,
			IDFactura: id,
			Estatus:   entity.InvoiceStatusDraft,
			Mensaje:   "Borrador actualizado exitosamente",
		}, nil
	}

	if s.stamper != nil {
		s.log.Warn().Int64("id_factura", id).Msg("la edición regenera los documentos localmente, sin volver a timbrar")
	}
	out := &dto.UpdateInvoiceResponse{OK: true, IDFactura: id, Estatus: inv.Status}
	ids, err := s.generateAndUpload(ctx, inv, false)
	if err == nil {
		err = s.invoiceRepo.SetDocuments(ctx, id, ids.xml, ids.pdf, "")
	}
	if err != nil {
		s.log.Error().Err(err).Int64("id_factura", id).Msg("no se pudieron regenerar los documentos; los datos ya se guardaron")
		return out, nil
	}
	out.XMLFileID = strPtr(ids.xml)
	out.PDFFileID = strPtr(ids.pdf)
	return out, nil
}
