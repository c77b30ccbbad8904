package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrGeneration, fiber.StatusInternalServerError, "GENERATION"},
	{domain.ErrConfiguration, fiber.StatusInternalServerError, "CONFIGURATION"},
	{domain.ErrUpstream, fiber.StatusBadGateway, "UPSTREAM"},
}

// fail traduce un error de dominio a su respuesta HTTP según la categoría del error más externo
// (una falla de generación que envuelve a una de proveedor sigue siendo 500). Los no clasificados
// se registran y responden 500 sin exponer detalles.
func (h *InvoiceHandler) fail(c *fiber.Ctx, err error) error {
	kind, msg := err, err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		kind, msg = de.Kind, de.Error()
	}
	for _, m := range errorMappings {
		if errors.Is(kind, m.kind) {
			if m.status >= fiber.StatusInternalServerError {
				h.log.Error().Err(err).Str("path", c.Path()).Msg(m.code)
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	h.log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "Error interno del servidor"})
}
