package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de ubicación del complemento carta porte.
const (
	UbicacionOrigen     = "origen"
	UbicacionDestino    = "destino"
	UbicacionIntermedia = "intermedia"
)

// Autotransporte liga la factura con el vehículo y el operador (tabla cp_autotransporte).
type Autotransporte struct {
	ID         int64
	InvoiceID  int64
	VehiculoID int64
	OperadorID int64
}

// Valid indica si ambas referencias existen (distintas de cero).
func (a *Autotransporte) Valid() bool {
	return a != nil && a.VehiculoID > 0 && a.OperadorID > 0
}

// Mercancia es un bien transportado (tabla cp_mercancias).
type Mercancia struct {
	ID             int64
	InvoiceID      int64
	Descripcion    string
	PesoKg         decimal.Decimal
	ValorMercancia decimal.Decimal
}

// Ubicacion es un punto del recorrido (tabla cp_ubicaciones).
type Ubicacion struct {
	ID          int64
	InvoiceID   int64
	Tipo        string
	Descripcion string
	Domicilio   string
	FechaHora   *time.Time
	Latitud     *decimal.Decimal
	Longitud    *decimal.Decimal
}
