package entity

import "time"

// Tipos de cambio registrados en el historial.
const (
	HistoryKindEntry      = "ENTRY"
	HistoryKindExit       = "EXIT"
	HistoryKindAdjustment = "ADJUSTMENT"
	HistoryKindTransfer   = "TRANSFER"
)

// HistoryEntry registro inmutable de un cambio de cantidades sobre un InventoryRecord.
// Sequence lo asigna la persistencia y desempata entradas con el mismo CreatedAt.
type HistoryEntry struct {
	ID                string
	Sequence          int64
	InventoryRecordID string
	LotID             string
	MovementID        string // vacío para operaciones manuales
	Location          Location
	Kind              string
	Before            Quantities
	After             Quantities
	UserID            string
	UserName          string
	Reason            string
	Notes             string
	CreatedAt         time.Time
}

// Delta cambio con signo por categoría (After - Before).
func (h *HistoryEntry) Delta() Quantities {
	return h.After.Sub(h.Before)
}

// TotalDelta cambio total con signo.
func (h *HistoryEntry) TotalDelta() int {
	return h.Delta().Total()
}

// IsValidHistoryKind valida el tipo recibido en filtros.
func IsValidHistoryKind(k string) bool {
	switch k {
	case HistoryKindEntry, HistoryKindExit, HistoryKindAdjustment, HistoryKindTransfer:
		return true
	}
	return false
}

// HistoryKindFor tipo de historial que produce un tipo de movimiento.
func HistoryKindFor(movementType string) string {
	switch movementType {
	case MovementTypeTransfer:
		return HistoryKindTransfer
	case MovementTypeLiquidation:
		return HistoryKindExit
	default:
		return HistoryKindAdjustment
	}
}

// HistoryKindForSide tipo de historial de un lado del movimiento. Un ajuste de un solo lado
// es entrada si acredita y salida si descuenta; el resto usa HistoryKindFor.
func HistoryKindForSide(movementType string, debit bool) string {
	if movementType != MovementTypeAdjustment {
		return HistoryKindFor(movementType)
	}
	if debit {
		return HistoryKindExit
	}
	return HistoryKindEntry
}
