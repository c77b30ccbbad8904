package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// Cancel pasa una factura timbrada o validada a cancelada.
func (s *InvoiceService) Cancel(ctx context.Context, actor Actor, id int64, in dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error) {
	inv, err := s.load(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	if reason := inv.CanCancel(); reason != "" {
		if inv.Status == entity.InvoiceStatusCancelled {
			return nil, domain.Conflict("%s", reason)
		}
		return nil, domain.Validation("%s", reason)
	}
	motivo := strings.TrimSpace(in.Motivo)
	if motivo == "" {
		return nil, domain.Validation("El motivo de cancelación es requerido")
	}

	if err := s.invoiceRepo.Cancel(ctx, id, motivo, strings.TrimSpace(in.FolioSustitucion), s.now()); err != nil {
		return nil, fmt.Errorf("billing: cancelar factura: %w", err)
	}
	s.log.Info().Int64("id_factura", id).Str("folio", inv.Folio).Str("motivo", motivo).Msg("factura cancelada")
	return &dto.CancelInvoiceResponse{
		OK:      true,
		Mensaje: "Factura cancelada exitosamente",
		Folio:   inv.Folio,
		Estatus: entity.InvoiceStatusCancelled,
	}, nil
}
