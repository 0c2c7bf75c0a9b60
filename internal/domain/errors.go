package domain

import (
	"errors"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("solicitud inválida")
	ErrInvalidState           = errors.New("estado inválido para la operación")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrDestinationMissing     = errors.New("no existe inventario en el destino")
	ErrNoOpMovement           = errors.New("origen y destino son el mismo inventario")
	ErrConcurrentModification = errors.New("el inventario fue modificado por otra operación")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
)

// RuleError es un fallo de negocio con detalle legible para el usuario.
// Dentro de una transacción provoca Rollback; errors.Is(err, Kind) sigue funcionando.
type RuleError struct {
	Kind    error
	Details []string
}

// NewRuleError construye un RuleError con uno o varios mensajes.
func NewRuleError(kind error, details ...string) *RuleError {
	return &RuleError{Kind: kind, Details: details}
}

func (e *RuleError) Error() string {
	if len(e.Details) == 0 {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *RuleError) Unwrap() error { return e.Kind }

// Messages devuelve los detalles o, si no hay, el texto del tipo de error.
func (e *RuleError) Messages() []string {
	if len(e.Details) == 0 {
		return []string{e.Kind.Error()}
	}
	out := make([]string, len(e.Details))
	copy(out, e.Details)
	return out
}

// Code devuelve el código estable usado en respuestas (VALIDATION, NOT_FOUND, ...).
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrDestinationMissing):
		return "DESTINATION_MISSING"
	case errors.Is(err, ErrNoOpMovement):
		return "NO_OP_MOVEMENT"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// IsRule indica si err es un fallo de negocio esperado (no de infraestructura).
func IsRule(err error) bool {
	if err == nil {
		return false
	}
	var re *RuleError
	if errors.As(err, &re) {
		return true
	}
	return Code(err) != "INTERNAL"
}
