package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
)

func TestCode_PorTipo(t *testing.T) {
	cases := map[error]string{
		domain.ErrInvalidInput:           "INVALID_REQUEST",
		domain.ErrNotFound:               "NOT_FOUND",
		domain.ErrInvalidState:           "INVALID_STATE",
		domain.ErrInsufficientStock:      "INSUFFICIENT_STOCK",
		domain.ErrDestinationMissing:     "DESTINATION_MISSING",
		domain.ErrNoOpMovement:           "NO_OP_MOVEMENT",
		domain.ErrConcurrentModification: "CONCURRENT_MODIFICATION",
		domain.ErrDuplicate:              "DUPLICATE",
		domain.ErrUnauthorized:           "UNAUTHORIZED",
		errors.New("conexión rechazada"):  "INTERNAL",
	}
	for err, want := range cases {
		assert.Equal(t, want, domain.Code(err), err.Error())
		assert.Equal(t, want, domain.Code(fmt.Errorf("envuelto: %w", domain.NewRuleError(err, "x"))), "envuelto "+err.Error())
	}
	assert.Empty(t, domain.Code(nil))
}

func TestRuleError_Mensajes(t *testing.T) {
	err := domain.NewRuleError(domain.ErrInsufficientStock, "faltan hembras", "faltan machos")
	assert.Equal(t, "stock insuficiente: faltan hembras; faltan machos", err.Error())
	assert.Equal(t, []string{"faltan hembras", "faltan machos"}, err.Messages())
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	msgs := err.Messages()
	msgs[0] = "modificado"
	assert.Equal(t, "faltan hembras", err.Details[0], "Messages devuelve una copia")

	bare := domain.NewRuleError(domain.ErrNotFound)
	assert.Equal(t, "recurso no encontrado", bare.Error())
	assert.Equal(t, []string{"recurso no encontrado"}, bare.Messages())
}

func TestIsRule(t *testing.T) {
	assert.False(t, domain.IsRule(nil))
	assert.False(t, domain.IsRule(errors.New("timeout")))
	assert.True(t, domain.IsRule(domain.ErrDuplicate))
	assert.True(t, domain.IsRule(fmt.Errorf("tx: %w", domain.NewRuleError(domain.ErrInvalidState, "ya procesado"))))
	assert.True(t, domain.IsRule(domain.NewRuleError(errors.New("otro"), "regla propia")), "cualquier RuleError es de negocio")
}
