package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoices  InvoiceService
	JWTSecret string
	Log       zerolog.Logger
}

// Router registra las rutas de la API. Todas las de facturas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	facturas := api.Group("/facturas", AuthMiddleware(deps.JWTSecret))
	h := NewInvoiceHandler(deps.Invoices, deps.Log)

	// Rutas fijas antes de /:id
	facturas.Post("/", h.Create)
	facturas.Post("/validar-sat", h.ValidateSAT)
	facturas.Get("/empresa/:id_empresa", h.List)
	facturas.Get("/", h.List)

	facturas.Get("/:id", h.GetByID)
	facturas.Get("/:id/xml", h.DownloadXML)
	facturas.Get("/:id/pdf", h.DownloadPDF)
	facturas.Put("/:id", h.Update)
	facturas.Put("/:id/cancelar", h.Cancel)
	facturas.Post("/:id/enviar-email", h.SendByEmail)
	facturas.Delete("/:id", h.Delete)
}
