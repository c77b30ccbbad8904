package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
)

// Get devuelve la factura con conceptos, autotransporte, mercancías y ubicaciones.
func (s *InvoiceService) Get(ctx context.Context, actor Actor, id int64) (*dto.InvoiceResponse, error) {
	inv, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	out := toInvoiceResponse(inv)
	return &out, nil
}

// List lista facturas por fecha de emisión descendente.
// companyID nil: el superadmin ve todas y el resto solo las de su empresa.
func (s *InvoiceService) List(ctx context.Context, actor Actor, companyID *int64) ([]dto.InvoiceResponse, error) {
	filter := companyID
	switch {
	case filter != nil:
		if !actor.CanAccess(*filter) {
			return nil, errForbidden()
		}
	case actor.IsSuperAdmin():
	case actor.CompanyID != 0:
		filter = &actor.CompanyID
	default:
		return nil, domain.Validation("El usuario no tiene una empresa asignada")
	}

	list, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("billing: listar facturas: %w", err)
	}
	out := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// Delete elimina la factura y todos sus hijos.
func (s *InvoiceService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.load(ctx, actor, id, false); err != nil {
		return err
	}
	ok, err := s.invoiceRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("billing: eliminar factura: %w", err)
	}
	if !ok {
		return domain.NotFound(msgNotFound)
	}
	s.log.Info().Int64("id_factura", id).Msg("factura eliminada")
	return nil
}

// DownloadXML devuelve el XML guardado o uno generado al vuelo.
func (s *InvoiceService) DownloadXML(ctx context.Context, actor Actor, id int64) (*dto.FileResponse, error) {
	inv, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	data, err := s.xmlBytes(ctx, inv)
	if err != nil {
		return nil, domain.Generation(err, "Error al generar el XML de la factura")
	}
	return &dto.FileResponse{
		Content:     data,
		Filename:    "factura_" + strconv.FormatInt(id, 10) + ".xml",
		ContentType: contentTypeXML,
	}, nil
}

// DownloadPDF devuelve el PDF guardado o uno generado al vuelo.
func (s *InvoiceService) DownloadPDF(ctx context.Context, actor Actor, id int64) (*dto.FileResponse, error) {
	inv, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	data, err := s.pdfBytes(ctx, inv)
	if err != nil {
		return nil, domain.Generation(err, "Error al generar el PDF de la factura")
	}
	return &dto.FileResponse{
		Content:     data,
		Filename:    "Factura_" + nonEmpty(inv.Folio, strconv.FormatInt(id, 10)) + ".pdf",
		ContentType: contentTypePDF,
	}, nil
}

// ValidateSAT revisa los datos contra los catálogos SAT antes de timbrar. No persiste nada.
func (s *InvoiceService) ValidateSAT(_ context.Context, in dto.ValidateSATRequest) cfdi.ValidationReport {
	ambiente := in.Ambiente
	if ambiente == "" {
		ambiente = cfdi.AmbienteSandbox
	}
	d := in.FacturaData
	input := cfdi.ValidationInput{
		RFCEmisor:            d.RFCEmisor,
		RFCCliente:           d.RFCCliente,
		RegimenFiscalCliente: d.RegimenFiscalCliente,
		UsoCFDICliente:       d.UsoCFDICliente,
		CPCliente:            d.CPCliente,
		TipoTransporte:       d.TipoTransporte,
		OperadorID:           d.OperadorID,
		VehiculoID:           d.VehiculoID,
		Ubicaciones:          len(d.Ubicaciones),
		Subtotal:             d.Subtotal,
		Total:                d.Total,
	}
	for _, c := range d.Conceptos {
		input.Conceptos = append(input.Conceptos, cfdi.ConceptInput{
			Descripcion:    c.Descripcion,
			Cantidad:       c.Cantidad,
			PrecioUnitario: c.PrecioUnitario,
			ClaveSAT:       c.ClaveSAT,
			UnidadSAT:      c.UnidadSAT,
		})
	}
	return cfdi.ValidateInvoice(input, ambiente, s.now())
}
