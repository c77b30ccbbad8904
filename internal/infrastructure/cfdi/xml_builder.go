// Package cfdi genera el XML CFDI 4.0 de la factura (comprobante, impuestos y TimbreFiscalDigital).
package cfdi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/pkg/sat"
)

// Namespaces oficiales CFDI 4.0 y TFD 1.1.
const (
	NsCfdi = "http://www.sat.gob.mx/cfd/4"
	NsTfd  = "http://www.sat.gob.mx/TimbreFiscalDigital"
	nsXsi  = "http://www.w3.org/2001/XMLSchema-instance"

	schemaLocationCfdi = "http://www.sat.gob.mx/cfd/4 http://www.sat.gob.mx/sitio_internet/cfd/4/cfdv40.xsd"
	schemaLocationTfd  = "http://www.sat.gob.mx/TimbreFiscalDigital http://www.sat.gob.mx/sitio_internet/cfd/TimbreFiscalDigital/TimbreFiscalDigitalv11.xsd"
)

// Valores por defecto cuando faltan datos del emisor o receptor.
const (
	FallbackRFC             = sat.RFCGenerico
	FallbackNombreEmisor    = "EMPRESA NO REGISTRADA"
	FallbackRegimenEmisor   = "601"
	FallbackNombreReceptor  = "PUBLICO EN GENERAL"
	FallbackCPReceptor      = "78000"
	FallbackRegimenReceptor = "616"
	FallbackUsoCFDI         = "S01"
	FallbackMetodoPago      = "PUE"
	FallbackFormaPago       = "99"
	FallbackLugar           = "78000"

	Serie             = "A"
	Moneda            = "MXN"
	TipoDeComprobante = "I"
	Exportacion       = "01"
	TipoFactorTasa    = "Tasa"
)

// XMLBuilderService construye el comprobante y lo sella con el Signer configurado.
type XMLBuilderService struct {
	signer cfdi.Signer
	now    func() time.Time
}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService(signer cfdi.Signer) *XMLBuilderService {
	return &XMLBuilderService{signer: signer, now: time.Now}
}

// RenderXML genera el []byte del comprobante CFDI 4.0. company puede ser nil.
func (s *XMLBuilderService) RenderXML(ctx context.Context, inv *entity.Invoice, company *entity.Company) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("cfdi: factura nula")
	}
	fecha := s.now().UTC().Truncate(time.Second)
	summary := cfdi.Summarize(inv.Conceptos)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("cfdi:Comprobante")
	root.CreateAttr("xmlns:cfdi", NsCfdi)
	root.CreateAttr("xmlns:xsi", nsXsi)
	root.CreateAttr("xsi:schemaLocation", schemaLocationCfdi)
	root.CreateAttr("Version", "4.0")
	root.CreateAttr("Serie", Serie)
	root.CreateAttr("Folio", folioOf(inv))
	root.CreateAttr("Fecha", fecha.Format(cfdi.DateLayout))
	// Sello, NoCertificado y Certificado se llenan después de sellar; el orden de atributos se conserva.
	root.CreateAttr("Sello", "")
	root.CreateAttr("FormaPago", orDefault(inv.FormaPago, FallbackFormaPago))
	root.CreateAttr("NoCertificado", "")
	root.CreateAttr("Certificado", "")
	root.CreateAttr("SubTotal", money(summary.Subtotal))
	root.CreateAttr("Moneda", Moneda)
	root.CreateAttr("Total", money(inv.Total))
	root.CreateAttr("TipoDeComprobante", TipoDeComprobante)
	root.CreateAttr("Exportacion", Exportacion)
	root.CreateAttr("MetodoPago", orDefault(inv.MetodoPago, FallbackMetodoPago))
	root.CreateAttr("LugarExpedicion", orDefault(inv.LugarExpedicion, FallbackLugar))

	writeEmisor(root, company)
	writeReceptor(root, inv)
	writeConceptos(root, inv.Conceptos, summary)
	writeImpuestos(root, summary)

	unsigned, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("cfdi: serializar comprobante: %w", err)
	}
	seal, err := s.signer.Seal(ctx, unsigned)
	if err != nil {
		return nil, fmt.Errorf("cfdi: sellar comprobante: %w", err)
	}
	root.CreateAttr("Sello", seal.Sello)
	root.CreateAttr("NoCertificado", seal.NoCertificado)
	root.CreateAttr("Certificado", seal.Certificado)

	timbre, err := s.signer.Stamp(ctx, seal.Sello)
	if err != nil {
		return nil, fmt.Errorf("cfdi: timbrar comprobante: %w", err)
	}
	writeComplemento(root, timbre)

	doc.Indent(2)
	return doc.WriteToBytes()
}

func writeEmisor(root *etree.Element, company *entity.Company) {
	rfc, nombre, regimen := FallbackRFC, FallbackNombreEmisor, FallbackRegimenEmisor
	if company != nil {
		rfc = orDefault(company.RFC, rfc)
		nombre = orDefault(company.RazonSocial, nombre)
		regimen = orDefault(company.RegimenFiscal, regimen)
	}
	e := root.CreateElement("cfdi:Emisor")
	e.CreateAttr("Rfc", rfc)
	e.CreateAttr("Nombre", nombre)
	e.CreateAttr("RegimenFiscal", regimen)
}

func writeReceptor(root *etree.Element, inv *entity.Invoice) {
	r := root.CreateElement("cfdi:Receptor")
	r.CreateAttr("Rfc", orDefault(inv.RFCCliente, FallbackRFC))
	r.CreateAttr("Nombre", orDefault(inv.Cliente, FallbackNombreReceptor))
	r.CreateAttr("DomicilioFiscalReceptor", orDefault(inv.CPCliente, FallbackCPReceptor))
	r.CreateAttr("RegimenFiscalReceptor", orDefault(inv.RegimenFiscalCliente, FallbackRegimenReceptor))
	r.CreateAttr("UsoCFDI", orDefault(inv.UsoCFDICliente, FallbackUsoCFDI))
}

func writeConceptos(root *etree.Element, conceptos []entity.Concepto, summary cfdi.Summary) {
	list := root.CreateElement("cfdi:Conceptos")
	for i, c := range conceptos {
		e := list.CreateElement("cfdi:Concepto")
		e.CreateAttr("ClaveProdServ", orDefault(c.ClaveSAT, entity.DefaultClaveSAT))
		e.CreateAttr("Cantidad", c.Cantidad.String())
		e.CreateAttr("ClaveUnidad", orDefault(c.UnidadSAT, entity.DefaultUnidadSAT))
		e.CreateAttr("Descripcion", c.Descripcion)
		e.CreateAttr("ValorUnitario", money(c.PrecioUnitario))
		e.CreateAttr("Importe", money(c.Importe))
		e.CreateAttr("ObjetoImp", orDefault(c.ObjetoImp, entity.DefaultObjetoImp))

		line := summary.Lines[i]
		traslados, retenciones := line.Traslados(), line.Retenciones()
		if len(traslados) == 0 && len(retenciones) == 0 {
			continue
		}
		imp := e.CreateElement("cfdi:Impuestos")
		if len(traslados) > 0 {
			t := imp.CreateElement("cfdi:Traslados")
			for _, tx := range traslados {
				writeTaxEntry(t.CreateElement("cfdi:Traslado"), tx, true)
			}
		}
		if len(retenciones) > 0 {
			r := imp.CreateElement("cfdi:Retenciones")
			for _, tx := range retenciones {
				writeTaxEntry(r.CreateElement("cfdi:Retencion"), tx, true)
			}
		}
	}
}

// writeImpuestos escribe el bloque agregado. Las retenciones agregadas solo llevan Impuesto e Importe.
func writeImpuestos(root *etree.Element, summary cfdi.Summary) {
	imp := root.CreateElement("cfdi:Impuestos")
	imp.CreateAttr("TotalImpuestosTrasladados", money(summary.TotalTrasladados()))
	imp.CreateAttr("TotalImpuestosRetenidos", money(summary.TotalRetenidos()))
	if len(summary.Traslados) > 0 {
		t := imp.CreateElement("cfdi:Traslados")
		for _, tx := range summary.Traslados {
			writeTaxEntry(t.CreateElement("cfdi:Traslado"), tx, true)
		}
	}
	if len(summary.Retenciones) > 0 {
		r := imp.CreateElement("cfdi:Retenciones")
		for _, tx := range summary.Retenciones {
			writeTaxEntry(r.CreateElement("cfdi:Retencion"), tx, false)
		}
	}
}

func writeTaxEntry(e *etree.Element, tx cfdi.TaxEntry, withRate bool) {
	if withRate {
		e.CreateAttr("Base", money(tx.Base))
	}
	e.CreateAttr("Impuesto", tx.Impuesto)
	if withRate {
		e.CreateAttr("TipoFactor", TipoFactorTasa)
		e.CreateAttr("TasaOCuota", rate(tx.Tasa))
	}
	e.CreateAttr("Importe", money(tx.Importe))
}

func writeComplemento(root *etree.Element, t cfdi.Timbre) {
	comp := root.CreateElement("cfdi:Complemento")
	tfd := comp.CreateElement("tfd:TimbreFiscalDigital")
	tfd.CreateAttr("xmlns:tfd", NsTfd)
	tfd.CreateAttr("xsi:schemaLocation", schemaLocationTfd)
	tfd.CreateAttr("Version", cfdi.TimbreVersion)
	tfd.CreateAttr("UUID", t.UUID)
	tfd.CreateAttr("FechaTimbrado", t.FechaTimbrado.Format(cfdi.DateLayout))
	tfd.CreateAttr("RfcProvCertif", t.RfcProvCertif)
	tfd.CreateAttr("SelloCFD", t.SelloCFD)
	tfd.CreateAttr("NoCertificadoSAT", t.NoCertificadoSAT)
	tfd.CreateAttr("SelloSAT", t.SelloSAT)
}

func folioOf(inv *entity.Invoice) string {
	if inv.Folio != "" {
		return inv.Folio
	}
	return strconv.FormatInt(inv.ID, 10)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func rate(d decimal.Decimal) string { return d.StringFixed(6) }
