package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fletes-api/internal/application/billing"
	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
)

// InvoiceService es lo que el handler necesita de billing.InvoiceService.
type InvoiceService interface {
	Create(ctx context.Context, actor billing.Actor, in dto.CreateInvoiceRequest) (*dto.CreateInvoiceResponse, error)
	Update(ctx context.Context, actor billing.Actor, id int64, in dto.UpdateInvoiceRequest) (*dto.UpdateInvoiceResponse, error)
	Cancel(ctx context.Context, actor billing.Actor, id int64, in dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error)
	SendByEmail(ctx context.Context, actor billing.Actor, id int64, in dto.SendInvoiceEmailRequest) (*dto.SendInvoiceEmailResponse, error)
	Get(ctx context.Context, actor billing.Actor, id int64) (*dto.InvoiceResponse, error)
	List(ctx context.Context, actor billing.Actor, companyID *int64) ([]dto.InvoiceResponse, error)
	Delete(ctx context.Context, actor billing.Actor, id int64) error
	DownloadXML(ctx context.Context, actor billing.Actor, id int64) (*dto.FileResponse, error)
	DownloadPDF(ctx context.Context, actor billing.Actor, id int64) (*dto.FileResponse, error)
	ValidateSAT(ctx context.Context, in dto.ValidateSATRequest) cfdi.ValidationReport
}

var _ InvoiceService = (*billing.InvoiceService)(nil)

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
type InvoiceHandler struct {
	svc InvoiceService
	log zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc InvoiceService, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear factura
// @Description  Guarda la factura con sus conceptos y complemento carta porte. Los borradores no se timbran.
// @Tags         facturas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateInvoiceRequest  true  "Factura"
// @Success      201   {object}  dto.CreateInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/facturas [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ValidateSAT godoc
// @Summary      Validar datos contra catálogos SAT
// @Tags         facturas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ValidateSATRequest  true  "facturaData y ambiente (sandbox por defecto)"
// @Success      200   {object}  cfdi.ValidationReport
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/facturas/validar-sat [post]
func (h *InvoiceHandler) ValidateSAT(c *fiber.Ctx) error {
	var in dto.ValidateSATRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return c.JSON(h.svc.ValidateSAT(c.UserContext(), in))
}

// List godoc
// @Summary      Listar facturas
// @Description  Sin id_empresa el superadmin ve todas; el resto solo las de su empresa.
// @Tags         facturas
// @Security     Bearer
// @Produce      json
// @Param        id_empresa  path      int  false  "Empresa"
// @Success      200         {array}   dto.InvoiceResponse
// @Failure      403         {object}  dto.ErrorResponse
// @Router       /api/facturas [get]
// @Router       /api/facturas/empresa/{id_empresa} [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var companyID *int64
	if raw := c.Params("id_empresa"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id_empresa inválido"})
		}
		companyID = &id
	}
	out, err := h.svc.List(c.UserContext(), actorFrom(c), companyID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener factura con su detalle
// @Tags         facturas
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "Factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/facturas/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	out, err := h.svc.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// DownloadXML godoc
// @Summary      Descargar XML CFDI
// @Tags         facturas
// @Security     Bearer
// @Produce      application/xml
// @Param        id   path  int  true  "Factura"
// @Success      200  {file}  file
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/facturas/{id}/xml [get]
func (h *InvoiceHandler) DownloadXML(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	file, err := h.svc.DownloadXML(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return sendFile(c, file)
}

// DownloadPDF godoc
// @Summary      Descargar PDF
// @Tags         facturas
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  int  true  "Factura"
// @Success      200  {file}  file
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/facturas/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	file, err := h.svc.DownloadPDF(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return sendFile(c, file)
}

// Update godoc
// @Summary      Editar factura
// @Description  Solo cambian los campos enviados; las colecciones enviadas reemplazan a las existentes.
// @Tags         facturas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                       true  "Factura"
// @Param        body  body      dto.UpdateInvoiceRequest  true  "Cambios"
// @Success      200   {object}  dto.UpdateInvoiceResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/facturas/{id} [put]
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Update(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar factura
// @Tags         facturas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                       true  "Factura"
// @Param        body  body      dto.CancelInvoiceRequest  true  "motivo y folio_sustitucion"
// @Success      200   {object}  dto.CancelInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/facturas/{id}/cancelar [put]
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	var in dto.CancelInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Cancel(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// SendByEmail godoc
// @Summary      Enviar factura por correo
// @Tags         facturas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      int                          true  "Factura"
// @Param        body  body      dto.SendInvoiceEmailRequest  true  "email_cliente y enviar_automatico"
// @Success      200   {object}  dto.SendInvoiceEmailResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/facturas/{id}/enviar-email [post]
func (h *InvoiceHandler) SendByEmail(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	var in dto.SendInvoiceEmailRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.SendByEmail(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar factura
// @Tags         facturas
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "Factura"
// @Success      200  {object}  dto.OKResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/facturas/{id} [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	id, ok := invoiceID(c)
	if !ok {
		return invalidID(c)
	}
	if err := h.svc.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// ── helpers ────────────────────────────────────────────────────────────────

func invoiceID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de factura inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func sendFile(c *fiber.Ctx, f *dto.FileResponse) error {
	c.Set(fiber.HeaderContentType, f.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+f.Filename+`"`)
	return c.Send(f.Content)
}
