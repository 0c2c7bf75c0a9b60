package entity

import "time"

// Estados de un registro de inventario.
const (
	RecordStatusActive      = "ACTIVE"
	RecordStatusTransferred = "TRANSFERRED"
	RecordStatusLiquidated  = "LIQUIDATED"
)

// InventoryRecord cantidad viva de aves de un lote en una ubicación.
// Nunca se borra físicamente: cambia de estado para conservar el historial.
type InventoryRecord struct {
	ID         string
	LotID      string
	Location   Location
	Quantities Quantities
	Status     string
	Version    int64 // token de concurrencia optimista; se incrementa en cada escritura
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive indica si el registro acepta débitos.
func (r *InventoryRecord) IsActive() bool {
	return r.Status == RecordStatusActive
}

// CanCredit indica si el registro acepta créditos (todo salvo liquidado).
func (r *InventoryRecord) CanCredit() bool {
	return r.Status != RecordStatusLiquidated
}

// IsValidRecordStatus valida un estado recibido desde afuera (filtros, BD).
func IsValidRecordStatus(s string) bool {
	switch s {
	case RecordStatusActive, RecordStatusTransferred, RecordStatusLiquidated:
		return true
	}
	return false
}
