package repository

import (
	"context"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

// MovementFilter filtros de búsqueda de movimientos.
type MovementFilter struct {
	Status string
	Type   string
	LotID  string // origen o destino
	FarmID string // origen o destino
	UserID string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// InventoryMovementRepository define el puerto de persistencia para movimientos de aves.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	GetByNumber(ctx context.Context, number string) (*entity.Movement, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	// SaveTransition persiste la salida de PENDING (procesado o cancelado).
	// Si la fila ya no estaba PENDING devuelve domain.ErrConcurrentModification.
	SaveTransition(ctx context.Context, movement *entity.Movement) error
	Search(ctx context.Context, filter MovementFilter) ([]*entity.Movement, int, error)
	CountByStatus(ctx context.Context, from, to *time.Time) (map[string]int, error)
	CountByType(ctx context.Context, from, to *time.Time) (map[string]int, error)
	// MovedByType aves movidas por tipo, solo movimientos COMPLETED.
	MovedByType(ctx context.Context, from, to *time.Time) (map[string]entity.Quantities, error)
}
