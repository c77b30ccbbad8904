package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

const (
	contentTypeXML = "application/xml"
	contentTypePDF = "application/pdf"
)

// documents es el par XML/PDF de una factura.
type documents struct {
	xml []byte
	pdf []byte
}

// storedIDs son los ids de storage devueltos al subir los documentos.
type storedIDs struct {
	xml string
	pdf string
}

// company obtiene el emisor. Cualquier falla se registra y se devuelve nil: los renderers usan valores por defecto.
func (s *InvoiceService) company(ctx context.Context, companyID int64) *entity.Company {
	if s.companyRepo == nil || companyID == 0 {
		return nil
	}
	c, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		s.log.Warn().Err(err).Int64("id_empresa", companyID).Msg("no se pudo obtener la empresa emisora")
		return nil
	}
	return c
}

// logo descarga el logo más reciente de la empresa. Sin logo o con error devuelve nil.
func (s *InvoiceService) logo(ctx context.Context, companyID int64) []byte {
	if s.documentRepo == nil || s.storage == nil || companyID == 0 {
		return nil
	}
	doc, err := s.documentRepo.LatestByType(ctx, companyID, entity.DocumentTypeLogo)
	if err != nil {
		s.log.Warn().Err(err).Int64("id_empresa", companyID).Msg("no se pudo consultar el logo")
		return nil
	}
	if doc == nil || doc.FileID == "" {
		return nil
	}
	data, err := s.storage.Download(ctx, doc.FileID)
	if err != nil {
		s.log.Warn().Err(err).Str("file_id", doc.FileID).Msg("no se pudo descargar el logo, se omite")
		return nil
	}
	return data
}

// generate produce XML y PDF con el proveedor de timbrado si existe, si no con los renderers locales.
func (s *InvoiceService) generate(ctx context.Context, inv *entity.Invoice, useStamper bool) (documents, error) {
	if useStamper && s.stamper != nil {
		xml, pdf, err := s.stamper.Issue(ctx, inv)
		if err != nil {
			return documents{}, err
		}
		return documents{xml: xml, pdf: pdf}, nil
	}
	company := s.company(ctx, inv.CompanyID)
	xml, err := s.xmlRenderer.RenderXML(ctx, inv, company)
	if err != nil {
		return documents{}, fmt.Errorf("generar XML: %w", err)
	}
	pdf, err := s.pdfRenderer.RenderPDF(ctx, inv, company, s.logo(ctx, inv.CompanyID))
	if err != nil {
		return documents{}, fmt.Errorf("generar PDF: %w", err)
	}
	return documents{xml: xml, pdf: pdf}, nil
}

// upload sube ambos documentos al bucket de facturas.
func (s *InvoiceService) upload(ctx context.Context, id int64, docs documents) (storedIDs, error) {
	if s.storage == nil {
		return storedIDs{}, domain.Configuration("Almacenamiento de archivos no configurado")
	}
	name := "factura_" + strconv.FormatInt(id, 10)
	xmlID, err := s.storage.Upload(ctx, docs.xml, name+".xml", contentTypeXML, "")
	if err != nil {
		return storedIDs{}, err
	}
	pdfID, err := s.storage.Upload(ctx, docs.pdf, name+".pdf", contentTypePDF, "")
	if err != nil {
		return storedIDs{}, err
	}
	return storedIDs{xml: xmlID, pdf: pdfID}, nil
}

// generateAndUpload genera y sube los documentos de la factura.
func (s *InvoiceService) generateAndUpload(ctx context.Context, inv *entity.Invoice, useStamper bool) (storedIDs, error) {
	docs, err := s.generate(ctx, inv, useStamper)
	if err != nil {
		return storedIDs{}, err
	}
	return s.upload(ctx, inv.ID, docs)
}

// xmlBytes devuelve el XML guardado o, si no existe o falla la descarga, uno generado al vuelo.
func (s *InvoiceService) xmlBytes(ctx context.Context, inv *entity.Invoice) ([]byte, error) {
	if data, ok := s.stored(ctx, inv.XMLFileID); ok {
		return data, nil
	}
	xml, err := s.xmlRenderer.RenderXML(ctx, inv, s.company(ctx, inv.CompanyID))
	if err != nil {
		return nil, fmt.Errorf("generar XML: %w", err)
	}
	return xml, nil
}

// pdfBytes análogo a xmlBytes para la representación impresa.
func (s *InvoiceService) pdfBytes(ctx context.Context, inv *entity.Invoice) ([]byte, error) {
	if data, ok := s.stored(ctx, inv.PDFFileID); ok {
		return data, nil
	}
	pdf, err := s.pdfRenderer.RenderPDF(ctx, inv, s.company(ctx, inv.CompanyID), s.logo(ctx, inv.CompanyID))
	if err != nil {
		return nil, fmt.Errorf("generar PDF: %w", err)
	}
	return pdf, nil
}

func (s *InvoiceService) stored(ctx context.Context, fileID string) ([]byte, bool) {
	if fileID == "" || s.storage == nil {
		return nil, false
	}
	data, err := s.storage.Download(ctx, fileID)
	if err != nil {
		s.log.Warn().Err(err).Str("file_id", fileID).Msg("descarga fallida, se genera el documento al vuelo")
		return nil, false
	}
	return data, true
}
