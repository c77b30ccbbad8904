package entity

import "time"

// Estatus de la empresa (tenant).
const (
	CompanyStatusPending   = "pendiente"
	CompanyStatusActive    = "activa"
	CompanyStatusSuspended = "suspendida"
)

// Company representa una empresa/tenant (tabla empresas). RFC y razón social alimentan al emisor del CFDI.
type Company struct {
	ID            int64
	RazonSocial   string
	RFC           string
	RegimenFiscal string
	CodigoPostal  string
	Email         string
	Telefono      string
	Status        string
	CreatedAt     time.Time
}

// IsActive indica si la empresa puede operar.
func (c *Company) IsActive() bool { return c.Status == CompanyStatusActive }

// Tipos de documento de empresa que se consultan desde facturación.
const DocumentTypeLogo = "logo"

// CompanyDocument es un archivo de la empresa guardado en storage (tabla documentos_empresa).
type CompanyDocument struct {
	ID             int64
	CompanyID      int64
	Tipo           string
	NombreOriginal string
	NombreStorage  string
	FileID         string
	Extension      string
	FechaSubida    time.Time
}
