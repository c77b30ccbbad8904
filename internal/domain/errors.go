package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada uno identifica una categoría; el mensaje visible para el usuario viaja en *Error.
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrConfiguration = errors.New("configuración incompleta")
	ErrUpstream      = errors.New("servicio externo falló")
	ErrGeneration    = errors.New("error generando documentos")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
)

// Error es un error de dominio con mensaje legible y categoría comparable con errors.Is.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Unwrap expone la categoría y la causa original.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newErr(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation construye un error de validación (400).
func Validation(format string, args ...any) error {
	return newErr(ErrInvalidInput, nil, format, args...)
}

// NotFound construye un error de recurso inexistente (404).
func NotFound(format string, args ...any) error {
	return newErr(ErrNotFound, nil, format, args...)
}

// Conflict construye un error de conflicto de estado o duplicado (409).
func Conflict(format string, args ...any) error {
	return newErr(ErrConflict, nil, format, args...)
}

// Configuration construye un error de configuración ausente.
func Configuration(format string, args ...any) error {
	return newErr(ErrConfiguration, nil, format, args...)
}

// Upstream envuelve la falla de un proveedor externo (storage, timbrado, SMTP).
func Upstream(cause error, format string, args ...any) error {
	return newErr(ErrUpstream, cause, format, args...)
}

// Generation envuelve una falla al armar o subir los documentos de la factura.
func Generation(cause error, format string, args ...any) error {
	return newErr(ErrGeneration, cause, format, args...)
}

// MessageOf devuelve el mensaje legible de un error de dominio, o fallback si no lo es.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return fallback
}
