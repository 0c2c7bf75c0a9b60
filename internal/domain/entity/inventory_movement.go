package entity

import (
	"strings"
	"time"
)

// Tipos de movimiento.
const (
	MovementTypeTransfer    = "TRANSFER"    // traslado entre ubicaciones o lotes
	MovementTypeAdjustment  = "ADJUSTMENT"  // ajuste de un solo lado (entrada o salida)
	MovementTypeLiquidation = "LIQUIDATION" // salida definitiva; liquida el origen
)

// Estados de un movimiento. COMPLETED y CANCELLED son terminales.
const (
	MovementStatusPending   = "PENDING"
	MovementStatusCompleted = "COMPLETED"
	MovementStatusCancelled = "CANCELLED"
)

// MovementEndpoint un extremo del movimiento: un registro existente o un par lote+ubicación.
type MovementEndpoint struct {
	RecordID string   `json:"record_id,omitempty"`
	LotID    string   `json:"lot_id,omitempty"`
	Location Location `json:"location"`
}

// SamePlace indica si dos extremos apuntan al mismo registro o al mismo lote+ubicación.
func (e MovementEndpoint) SamePlace(o MovementEndpoint) bool {
	if e.RecordID != "" && e.RecordID == o.RecordID {
		return true
	}
	return e.LotID != "" && e.LotID == o.LotID && e.Location.Equal(o.Location)
}

// Movement solicitud (o ejecución) de un cambio de cantidades de aves.
type Movement struct {
	ID              string
	Number          string
	Type            string
	Status          string
	Origin          *MovementEndpoint
	Destination     *MovementEndpoint
	Quantities      Quantities
	RequestedBy     string
	RequestedByName string
	Reason          string
	Notes           string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	ProcessedBy     string
	CancelledAt     *time.Time
	CancelReason    string
	CancelledBy     string
}

// MovementNumber número legible: MOV-AAAAMMDD-XXXXXXXX (fecha de creación + prefijo del id).
func MovementNumber(createdAt time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "MOV-" + createdAt.UTC().Format("20060102") + "-" + suffix
}

// IsValidMovementType valida el tipo recibido.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeTransfer, MovementTypeAdjustment, MovementTypeLiquidation:
		return true
	}
	return false
}

// IsValidMovementStatus valida el estado recibido en filtros.
func IsValidMovementStatus(s string) bool {
	switch s {
	case MovementStatusPending, MovementStatusCompleted, MovementStatusCancelled:
		return true
	}
	return false
}

// IsPending solo un movimiento pendiente puede procesarse o cancelarse.
func (m *Movement) IsPending() bool {
	return m.Status == MovementStatusPending
}

// IsTerminal COMPLETED o CANCELLED.
func (m *Movement) IsTerminal() bool {
	return m.Status == MovementStatusCompleted || m.Status == MovementStatusCancelled
}

// ShapeErrors revisa que los extremos correspondan al tipo de movimiento.
func (m *Movement) ShapeErrors() []string {
	var out []string
	switch m.Type {
	case MovementTypeTransfer:
		if m.Origin == nil {
			out = append(out, "un traslado requiere origen")
		}
		if m.Destination == nil {
			out = append(out, "un traslado requiere destino")
		}
	case MovementTypeLiquidation:
		if m.Origin == nil {
			out = append(out, "una liquidación requiere origen")
		}
		if m.Destination != nil {
			out = append(out, "una liquidación no admite destino")
		}
	case MovementTypeAdjustment:
		if (m.Origin == nil) == (m.Destination == nil) {
			out = append(out, "un ajuste requiere exactamente un extremo (origen para salida, destino para entrada)")
		}
	default:
		out = append(out, "tipo de movimiento inválido: "+m.Type)
	}
	return out
}

// MarkCompleted transición PENDING -> COMPLETED.
func (m *Movement) MarkCompleted(now time.Time, userID string) {
	m.Status = MovementStatusCompleted
	t := now
	m.ProcessedAt = &t
	m.ProcessedBy = userID
}

// MarkCancelled transición PENDING -> CANCELLED; el motivo se agrega a las notas.
func (m *Movement) MarkCancelled(now time.Time, userID, reason string) {
	m.Status = MovementStatusCancelled
	t := now
	m.CancelledAt = &t
	m.CancelledBy = userID
	m.CancelReason = reason
	note := "Cancelado: " + reason
	if m.Notes == "" {
		m.Notes = note
	} else {
		m.Notes += "\n" + note
	}
}
