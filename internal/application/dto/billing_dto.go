package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Optional distingue un campo ausente de uno enviado, incluso si llega como null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON marca el campo como presente; null deja Value en nil.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Some construye un Optional presente con valor.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// ConceptoRequest línea de factura. Las tasas van en porcentaje (16 = 16 %); ausentes = IVA 16 %, resto 0.
type ConceptoRequest struct {
	IDProducto     *int64           `json:"id_producto,omitempty"`
	ClaveSAT       string           `json:"clave_sat,omitempty"`
	UnidadSAT      string           `json:"unidad_sat,omitempty"`
	ObjetoImp      string           `json:"objeto_imp,omitempty"`
	Descripcion    string           `json:"descripcion"`
	Cantidad       decimal.Decimal  `json:"cantidad"`
	PrecioUnitario decimal.Decimal  `json:"precio_unitario"`
	Importe        decimal.Decimal  `json:"importe"`
	IVA            *decimal.Decimal `json:"iva,omitempty"`
	IEPS           *decimal.Decimal `json:"ieps,omitempty"`
	RetencionISR   *decimal.Decimal `json:"retencion_isr,omitempty"`
	RetencionIVA   *decimal.Decimal `json:"retencion_iva,omitempty"`
}

// AutotransporteRequest referencia vehículo y operador del complemento carta porte.
type AutotransporteRequest struct {
	IDVehiculo int64 `json:"id_vehiculo"`
	IDOperador int64 `json:"id_operador"`
}

// MercanciaRequest bien transportado.
type MercanciaRequest struct {
	Descripcion    string          `json:"descripcion"`
	PesoKg         decimal.Decimal `json:"peso_kg"`
	ValorMercancia decimal.Decimal `json:"valor_mercancia"`
}

// UbicacionRequest punto del recorrido (origen, destino o intermedia).
type UbicacionRequest struct {
	Tipo        string           `json:"tipo"`
	Descripcion string           `json:"descripcion"`
	Domicilio   string           `json:"domicilio"`
	FechaHora   *time.Time       `json:"fecha_hora,omitempty"`
	Latitud     *decimal.Decimal `json:"latitud,omitempty"`
	Longitud    *decimal.Decimal `json:"longitud,omitempty"`
}

// CreateInvoiceRequest body para POST /api/facturas.
// IDEmpresa vacío toma la empresa del token.
type CreateInvoiceRequest struct {
	IDEmpresa            int64                  `json:"id_empresa"`
	Folio                string                 `json:"folio"`
	Cliente              string                 `json:"cliente"`
	RFCCliente           string                 `json:"rfc_cliente"`
	RegimenFiscalCliente string                 `json:"regimen_fiscal_cliente,omitempty"`
	UsoCFDICliente       string                 `json:"uso_cfdi_cliente,omitempty"`
	CPCliente            string                 `json:"cp_cliente,omitempty"`
	FormaPago            string                 `json:"forma_pago,omitempty"`
	MetodoPago           string                 `json:"metodo_pago,omitempty"`
	LugarExpedicion      string                 `json:"lugar_expedicion,omitempty"`
	Total                decimal.Decimal        `json:"total"`
	Estatus              string                 `json:"estatus,omitempty"`
	Conceptos            []ConceptoRequest      `json:"conceptos"`
	Autotransporte       *AutotransporteRequest `json:"autotransporte,omitempty"`
	Mercancias           []MercanciaRequest     `json:"mercancias,omitempty"`
	Ubicaciones          []UbicacionRequest     `json:"ubicaciones,omitempty"`
}

// UpdateInvoiceRequest body para PUT /api/facturas/:id. Solo cambian los campos enviados;
// las colecciones enviadas (aunque sea null o []) reemplazan a las existentes.
type UpdateInvoiceRequest struct {
	Folio                *string          `json:"folio,omitempty"`
	Cliente              *string          `json:"cliente,omitempty"`
	RFCCliente           *string          `json:"rfc_cliente,omitempty"`
	RegimenFiscalCliente *string          `json:"regimen_fiscal_cliente,omitempty"`
	UsoCFDICliente       *string          `json:"uso_cfdi_cliente,omitempty"`
	CPCliente            *string          `json:"cp_cliente,omitempty"`
	FormaPago            *string          `json:"forma_pago,omitempty"`
	MetodoPago           *string          `json:"metodo_pago,omitempty"`
	LugarExpedicion      *string          `json:"lugar_expedicion,omitempty"`
	Total                *decimal.Decimal `json:"total,omitempty"`
	Estatus              *string          `json:"estatus,omitempty"`
	XMLFileID            *string          `json:"xml_fileId,omitempty"`
	PDFFileID            *string          `json:"pdf_fileId,omitempty"`

	Conceptos      Optional[[]ConceptoRequest]     `json:"conceptos" swaggertype:"array,object"`
	Autotransporte Optional[AutotransporteRequest] `json:"autotransporte" swaggertype:"object"`
	Mercancias     Optional[[]MercanciaRequest]    `json:"mercancias" swaggertype:"array,object"`
	Ubicaciones    Optional[[]UbicacionRequest]    `json:"ubicaciones" swaggertype:"array,object"`
}

// CancelInvoiceRequest body para PUT /api/facturas/:id/cancelar.
type CancelInvoiceRequest struct {
	Motivo           string `json:"motivo"`
	FolioSustitucion string `json:"folio_sustitucion,omitempty"`
}

// SendInvoiceEmailRequest body para POST /api/facturas/:id/enviar-email.
type SendInvoiceEmailRequest struct {
	EmailCliente     string `json:"email_cliente"`
	EnviarAutomatico bool   `json:"enviar_automatico"`
}

// ValidateSATRequest body para POST /api/facturas/validar-sat.
type ValidateSATRequest struct {
	FacturaData ValidateSATData `json:"facturaData"`
	Ambiente    string          `json:"ambiente,omitempty"`
}

// ValidateSATData datos a revisar antes de timbrar.
type ValidateSATData struct {
	RFCEmisor            string            `json:"rfc_emisor,omitempty"`
	RFCCliente           string            `json:"rfc_cliente,omitempty"`
	RegimenFiscalCliente string            `json:"regimen_fiscal_cliente,omitempty"`
	UsoCFDICliente       string            `json:"uso_cfdi_cliente,omitempty"`
	CPCliente            string            `json:"cp_cliente,omitempty"`
	Conceptos            []ConceptoRequest `json:"conceptos"`
	TipoTransporte       string            `json:"tipo_transporte,omitempty"`
	OperadorID           int64             `json:"operador_id,omitempty"`
	VehiculoID           int64             `json:"vehiculo_id,omitempty"`
	Ubicaciones          []json.RawMessage `json:"ubicaciones,omitempty" swaggertype:"array,object"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	Total                decimal.Decimal   `json:"total"`
}

// ── respuestas ─────────────────────────────────────────────────────────────

// ConceptoResponse línea de factura en respuestas.
type ConceptoResponse struct {
	IDConcepto     int64            `json:"id_concepto"`
	IDFactura      int64            `json:"id_factura"`
	IDProducto     *int64           `json:"id_producto"`
	ClaveSAT       string           `json:"clave_sat"`
	UnidadSAT      string           `json:"unidad_sat"`
	ObjetoImp      string           `json:"objeto_imp"`
	Descripcion    string           `json:"descripcion"`
	Cantidad       decimal.Decimal  `json:"cantidad"`
	PrecioUnitario decimal.Decimal  `json:"precio_unitario"`
	Importe        decimal.Decimal  `json:"importe"`
	IVA            *decimal.Decimal `json:"iva,omitempty"`
	IEPS           *decimal.Decimal `json:"ieps,omitempty"`
	RetencionISR   *decimal.Decimal `json:"retencion_isr,omitempty"`
	RetencionIVA   *decimal.Decimal `json:"retencion_iva,omitempty"`
}

// AutotransporteResponse complemento autotransporte.
type AutotransporteResponse struct {
	IDAutotransporte int64 `json:"id_autotransporte"`
	IDFactura        int64 `json:"id_factura"`
	IDVehiculo       int64 `json:"id_vehiculo"`
	IDOperador       int64 `json:"id_operador"`
}

// MercanciaResponse mercancía del complemento.
type MercanciaResponse struct {
	IDMercancia    int64           `json:"id_mercancia"`
	IDFactura      int64           `json:"id_factura"`
	Descripcion    string          `json:"descripcion"`
	PesoKg         decimal.Decimal `json:"peso_kg"`
	ValorMercancia decimal.Decimal `json:"valor_mercancia"`
}

// UbicacionResponse ubicación del complemento.
type UbicacionResponse struct {
	IDUbicacion int64            `json:"id_ubicacion"`
	IDFactura   int64            `json:"id_factura"`
	Tipo        string           `json:"tipo"`
	Descripcion string           `json:"descripcion"`
	Domicilio   string           `json:"domicilio"`
	FechaHora   *time.Time       `json:"fecha_hora"`
	Latitud     *decimal.Decimal `json:"latitud,omitempty"`
	Longitud    *decimal.Decimal `json:"longitud,omitempty"`
}

// InvoiceResponse factura para GET /api/facturas/:id (con hijos) y listados (sin hijos).
type InvoiceResponse struct {
	IDFactura            int64           `json:"id_factura"`
	IDEmpresa            int64           `json:"id_empresa"`
	IDUsuario            int64           `json:"id_usuario"`
	Folio                string          `json:"folio"`
	Cliente              string          `json:"cliente"`
	RFCCliente           string          `json:"rfc_cliente"`
	RegimenFiscalCliente string          `json:"regimen_fiscal_cliente"`
	UsoCFDICliente       string          `json:"uso_cfdi_cliente"`
	CPCliente            string          `json:"cp_cliente"`
	FormaPago            string          `json:"forma_pago"`
	MetodoPago           string          `json:"metodo_pago"`
	LugarExpedicion      string          `json:"lugar_expedicion"`
	Total                decimal.Decimal `json:"total"`
	Estatus              string          `json:"estatus"`
	XMLFileID            *string         `json:"xml_fileId"`
	PDFFileID            *string         `json:"pdf_fileId"`
	MotivoCancelacion    *string         `json:"motivo_cancelacion"`
	FolioSustitucion     *string         `json:"folio_sustitucion"`
	FechaCancelacion     *time.Time      `json:"fecha_cancelacion"`
	EmailEnviado         bool            `json:"email_enviado"`
	FechaEnvioEmail      *time.Time      `json:"fecha_envio_email"`
	FechaEmision         time.Time       `json:"fecha_emision"`

	Conceptos      []ConceptoResponse      `json:"conceptos,omitempty"`
	Autotransporte *AutotransporteResponse `json:"autotransporte,omitempty"`
	Mercancias     []MercanciaResponse     `json:"mercancias,omitempty"`
	Ubicaciones    []UbicacionResponse     `json:"ubicaciones,omitempty"`
}

// CreateInvoiceResponse resultado de POST /api/facturas.
type CreateInvoiceResponse struct {
	IDFactura int64   `json:"id_factura"`
	Estatus   string  `json:"estatus"`
	Mensaje   string  `json:"mensaje,omitempty"`
	XMLFileID *string `json:"xml_fileId,omitempty"`
	PDFFileID *string `json:"pdf_fileId,omitempty"`
}

// UpdateInvoiceResponse resultado de PUT /api/facturas/:id.
// Si la regeneración de documentos falla, los ids quedan en null y los datos ya están guardados.
type UpdateInvoiceResponse struct {
	OK        bool    `json:"ok"`
	IDFactura int64   `json:"id_factura"`
	Estatus   string  `json:"estatus"`
	Mensaje   string  `json:"mensaje,omitempty"`
	XMLFileID *string `json:"xml_fileId"`
	PDFFileID *string `json:"pdf_fileId"`
}

// CancelInvoiceResponse resultado de la cancelación.
type CancelInvoiceResponse struct {
	OK      bool   `json:"ok"`
	Mensaje string `json:"mensaje"`
	Folio   string `json:"folio"`
	Estatus string `json:"estatus"`
}

// SendInvoiceEmailResponse resultado del envío por correo.
type SendInvoiceEmailResponse struct {
	OK        bool   `json:"ok"`
	Mensaje   string `json:"mensaje"`
	Email     string `json:"email"`
	MessageID string `json:"messageId,omitempty"`
}

// OKResponse respuesta mínima de operaciones sin cuerpo.
type OKResponse struct {
	OK bool `json:"ok"`
}

// FileResponse documento descargable.
type FileResponse struct {
	Content     []byte
	Filename    string
	ContentType string
}
