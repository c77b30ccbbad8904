package entity

import "github.com/shopspring/decimal"

// InvoicePatch describe una actualización parcial: solo cambian los campos no nil.
// Las colecciones no nil reemplazan por completo a las existentes (incluso si vienen vacías).
type InvoicePatch struct {
	Folio                *string
	Cliente              *string
	RFCCliente           *string
	RegimenFiscalCliente *string
	UsoCFDICliente       *string
	CPCliente            *string
	FormaPago            *string
	MetodoPago           *string
	LugarExpedicion      *string
	Total                *decimal.Decimal
	Status               *string
	XMLFileID            *string
	PDFFileID            *string

	Conceptos      *[]Concepto
	Autotransporte **Autotransporte // puntero a nil = quitar el complemento
	Mercancias     *[]Mercancia
	Ubicaciones    *[]Ubicacion
}

// HasHeaderChanges indica si hay al menos un campo de cabecera presente.
func (p *InvoicePatch) HasHeaderChanges() bool {
	return p.Folio != nil || p.Cliente != nil || p.RFCCliente != nil ||
		p.RegimenFiscalCliente != nil || p.UsoCFDICliente != nil || p.CPCliente != nil ||
		p.FormaPago != nil || p.MetodoPago != nil || p.LugarExpedicion != nil ||
		p.Total != nil || p.Status != nil || p.XMLFileID != nil || p.PDFFileID != nil
}

// ApplyTo copia en inv los campos presentes del parche.
func (p *InvoicePatch) ApplyTo(inv *Invoice) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&inv.Folio, p.Folio)
	set(&inv.Cliente, p.Cliente)
	set(&inv.RFCCliente, p.RFCCliente)
	set(&inv.RegimenFiscalCliente, p.RegimenFiscalCliente)
	set(&inv.UsoCFDICliente, p.UsoCFDICliente)
	set(&inv.CPCliente, p.CPCliente)
	set(&inv.FormaPago, p.FormaPago)
	set(&inv.MetodoPago, p.MetodoPago)
	set(&inv.LugarExpedicion, p.LugarExpedicion)
	set(&inv.Status, p.Status)
	set(&inv.XMLFileID, p.XMLFileID)
	set(&inv.PDFFileID, p.PDFFileID)
	if p.Total != nil {
		inv.Total = *p.Total
	}
	if p.Conceptos != nil {
		inv.Conceptos = *p.Conceptos
	}
	if p.Autotransporte != nil {
		inv.Autotransporte = *p.Autotransporte
	}
	if p.Mercancias != nil {
		inv.Mercancias = *p.Mercancias
	}
	if p.Ubicaciones != nil {
		inv.Ubicaciones = *p.Ubicaciones
	}
}
