package entity

import "github.com/shopspring/decimal"

// Claves SAT usadas cuando el concepto no trae las suyas.
const (
	DefaultClaveSAT  = "01010101"
	DefaultUnidadSAT = "H87"
	DefaultObjetoImp = "02"
)

// TaxRates son las tasas por concepto en porcentaje (16 = 16 %). nil = tasa por defecto.
type TaxRates struct {
	IVA          *decimal.Decimal
	IEPS         *decimal.Decimal
	RetencionISR *decimal.Decimal
	RetencionIVA *decimal.Decimal
}

// Concepto es una línea de la factura (tabla conceptos_factura).
type Concepto struct {
	ID             int64
	InvoiceID      int64
	ProductID      *int64
	ClaveSAT       string
	UnidadSAT      string
	ObjetoImp      string
	Descripcion    string
	Cantidad       decimal.Decimal
	PrecioUnitario decimal.Decimal
	Importe        decimal.Decimal // lo envía el cliente; no se recalcula
	Tasas          TaxRates
}

// ApplyDefaults completa claves SAT faltantes.
func (c *Concepto) ApplyDefaults() {
	if c.ClaveSAT == "" {
		c.ClaveSAT = DefaultClaveSAT
	}
	if c.UnidadSAT == "" {
		c.UnidadSAT = DefaultUnidadSAT
	}
	if c.ObjetoImp == "" {
		c.ObjetoImp = DefaultObjetoImp
	}
}
