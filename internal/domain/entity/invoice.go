package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estatus de una factura CFDI.
const (
	InvoiceStatusDraft     = "borrador"
	InvoiceStatusPending   = "pendiente" // equivalente a borrador: no genera documentos
	InvoiceStatusValidated = "validada"
	InvoiceStatusStamped   = "timbrada"
	InvoiceStatusCancelled = "cancelada"
)

// Valores por defecto de la cabecera cuando el cliente no los envía.
const (
	DefaultRegimenCliente = "616"
	DefaultUsoCFDI        = "S01"
	DefaultCPCliente      = "78140"
	DefaultFormaPago      = "99"
	DefaultMetodoPago     = "PPD"
	DefaultLugar          = "78140"
)

// Invoice es la cabecera de una factura (tabla facturas) con sus hijos ya resueltos.
type Invoice struct {
	ID                   int64
	CompanyID            int64
	UserID               int64
	Folio                string
	Cliente              string
	RFCCliente           string
	RegimenFiscalCliente string
	UsoCFDICliente       string
	CPCliente            string
	FormaPago            string
	MetodoPago           string
	LugarExpedicion      string
	Total                decimal.Decimal
	Status               string
	XMLFileID            string // vacío hasta que se genera el XML
	PDFFileID            string
	MotivoCancelacion    string
	FolioSustitucion     string
	FechaCancelacion     *time.Time
	EmailEnviado         bool
	FechaEnvioEmail      *time.Time
	FechaEmision         time.Time

	Conceptos      []Concepto
	Autotransporte *Autotransporte
	Mercancias     []Mercancia
	Ubicaciones    []Ubicacion
}

// IsDraftLike indica si el estatus omite la generación de documentos.
func IsDraftLike(status string) bool {
	return status == InvoiceStatusDraft || status == InvoiceStatusPending
}

// IsDraft indica si la factura está en borrador (o pendiente).
func (i *Invoice) IsDraft() bool { return IsDraftLike(i.Status) }

// CanCancel valida la transición a cancelada; devuelve el motivo del rechazo o "".
func (i *Invoice) CanCancel() string {
	switch i.Status {
	case InvoiceStatusCancelled:
		return "La factura ya está cancelada"
	case InvoiceStatusStamped, InvoiceStatusValidated:
		return ""
	default:
		return "Solo se pueden cancelar facturas timbradas o validadas"
	}
}

// Subtotal suma los importes de los conceptos.
func (i *Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range i.Conceptos {
		sum = sum.Add(c.Importe)
	}
	return sum
}

// ApplyDefaults completa los campos fiscales opcionales del receptor y del pago.
func (i *Invoice) ApplyDefaults() {
	if i.RegimenFiscalCliente == "" {
		i.RegimenFiscalCliente = DefaultRegimenCliente
	}
	if i.UsoCFDICliente == "" {
		i.UsoCFDICliente = DefaultUsoCFDI
	}
	if i.CPCliente == "" {
		i.CPCliente = DefaultCPCliente
	}
	if i.FormaPago == "" {
		i.FormaPago = DefaultFormaPago
	}
	if i.MetodoPago == "" {
		i.MetodoPago = DefaultMetodoPago
	}
	if i.LugarExpedicion == "" {
		i.LugarExpedicion = DefaultLugar
	}
	if i.Status == "" {
		i.Status = InvoiceStatusValidated
	}
	for k := range i.Conceptos {
		i.Conceptos[k].ApplyDefaults()
	}
}
