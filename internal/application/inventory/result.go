package inventory

import (
	"errors"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

// CodeOK código de un Result exitoso.
const CodeOK = "OK"

// Result resultado tipado de una operación de movimiento: éxito o un tipo de error de negocio.
// Los fallos inesperados (BD caída, resolver) no viajan aquí sino como error.
type Result struct {
	Success     bool
	Code        string
	Errors      []string
	MovementID  string
	MovementIDs []string
	InventoryID string
	Movement    *entity.Movement
}

// Err reconstruye el error de dominio del resultado (nil si fue exitoso).
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return domain.NewRuleError(kindForCode(r.Code), r.Errors...)
}

func success(mov *entity.Movement) Result {
	r := Result{Success: true, Code: CodeOK, Movement: mov}
	if mov != nil {
		r.MovementID = mov.ID
	}
	return r
}

// failure convierte un error de negocio en Result; ok=false si err no es de negocio.
func failure(err error) (Result, bool) {
	if !domain.IsRule(err) {
		return Result{}, false
	}
	var re *domain.RuleError
	msgs := []string{err.Error()}
	if errors.As(err, &re) {
		msgs = re.Messages()
	}
	return Result{Success: false, Code: domain.Code(err), Errors: msgs}, true
}

func kindForCode(code string) error {
	switch code {
	case "INVALID_REQUEST":
		return domain.ErrInvalidInput
	case "NOT_FOUND":
		return domain.ErrNotFound
	case "INVALID_STATE":
		return domain.ErrInvalidState
	case "INSUFFICIENT_STOCK":
		return domain.ErrInsufficientStock
	case "DESTINATION_MISSING":
		return domain.ErrDestinationMissing
	case "NO_OP_MOVEMENT":
		return domain.ErrNoOpMovement
	case "CONCURRENT_MODIFICATION":
		return domain.ErrConcurrentModification
	case "DUPLICATE":
		return domain.ErrDuplicate
	case "UNAUTHORIZED":
		return domain.ErrUnauthorized
	}
	return errors.New(code)
}

// ValidationResult respuesta de Validate: sin efectos, solo "¿se puede hacer?".
type ValidationResult struct {
	Valid  bool
	Errors []string
}
