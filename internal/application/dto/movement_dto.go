package dto

import (
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateMovementRequest body para POST /api/movements, /validate y /quick-transfer.
type CreateMovementRequest struct {
	Type        string                   `json:"type"`
	Origin      *entity.MovementEndpoint `json:"origin,omitempty"`
	Destination *entity.MovementEndpoint `json:"destination,omitempty"`
	Quantities  entity.Quantities        `json:"quantities"`
	Reason      string                   `json:"reason,omitempty"`
	Notes       string                   `json:"notes,omitempty"`
}

// ProcessMovementRequest body opcional para POST /api/movements/:id/process.
type ProcessMovementRequest struct {
	AutoCreateDestination bool `json:"auto_create_destination"`
}

// CancelMovementRequest body para POST /api/movements/:id/cancel.
type CancelMovementRequest struct {
	Reason string `json:"reason"`
}

// AdjustMovementRequest body para POST /api/movements/adjust.
type AdjustMovementRequest struct {
	Direction  string                  `json:"direction"` // IN | OUT
	Endpoint   entity.MovementEndpoint `json:"endpoint"`
	Quantities entity.Quantities       `json:"quantities"`
	Reason     string                  `json:"reason,omitempty"`
	Notes      string                  `json:"notes,omitempty"`
}

// LiquidateRequest body para POST /api/movements/liquidate. Cantidades en cero = todo el registro.
type LiquidateRequest struct {
	Origin     entity.MovementEndpoint `json:"origin"`
	Quantities entity.Quantities       `json:"quantities"`
	Reason     string                  `json:"reason,omitempty"`
	Notes      string                  `json:"notes,omitempty"`
}

// SplitLotRequest body para POST /api/lots/split.
type SplitLotRequest struct {
	SourceLotID  string            `json:"source_lot_id"`
	DestLotID    string            `json:"dest_lot_id"`
	Quantities   entity.Quantities `json:"quantities"`
	Reason       string            `json:"reason,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Location     *entity.Location  `json:"location,omitempty"`
	DestLocation *entity.Location  `json:"dest_location,omitempty"`
}

// MergeLotsRequest body para POST /api/lots/merge.
type MergeLotsRequest struct {
	SourceLotID  string           `json:"source_lot_id"`
	DestLotID    string           `json:"dest_lot_id"`
	Reason       string           `json:"reason,omitempty"`
	DestLocation *entity.Location `json:"dest_location,omitempty"`
}

// MovementResponse movimiento.
type MovementResponse struct {
	ID              string                   `json:"id"`
	Number          string                   `json:"number"`
	Type            string                   `json:"type"`
	Status          string                   `json:"status"`
	Origin          *entity.MovementEndpoint `json:"origin,omitempty"`
	Destination     *entity.MovementEndpoint `json:"destination,omitempty"`
	Quantities      entity.Quantities        `json:"quantities"`
	Total           int                      `json:"total"`
	RequestedBy     string                   `json:"requested_by"`
	RequestedByName string                   `json:"requested_by_name,omitempty"`
	Reason          string                   `json:"reason,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	ProcessedAt     *time.Time               `json:"processed_at,omitempty"`
	ProcessedBy     string                   `json:"processed_by,omitempty"`
	CancelledAt     *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason    string                   `json:"cancel_reason,omitempty"`
	CancelledBy     string                   `json:"cancelled_by,omitempty"`
}

// MovementFrom mapea la entidad a respuesta.
func MovementFrom(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		Number:          m.Number,
		Type:            m.Type,
		Status:          m.Status,
		Origin:          m.Origin,
		Destination:     m.Destination,
		Quantities:      m.Quantities,
		Total:           m.Quantities.Total(),
		RequestedBy:     m.RequestedBy,
		RequestedByName: m.RequestedByName,
		Reason:          m.Reason,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		ProcessedAt:     m.ProcessedAt,
		ProcessedBy:     m.ProcessedBy,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
		CancelledBy:     m.CancelledBy,
	}
}

// MovementsFrom mapea una lista.
func MovementsFrom(list []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementFrom(m))
	}
	return out
}

// ResultDTO respuesta de las operaciones que crean o procesan movimientos.
type ResultDTO struct {
	Success     bool              `json:"success"`
	Code        string            `json:"code"`
	Errors      []string          `json:"errors"`
	MovementID  string            `json:"movement_id,omitempty"`
	MovementIDs []string          `json:"movement_ids,omitempty"`
	InventoryID string            `json:"inventory_id,omitempty"`
	Movement    *MovementResponse `json:"movement,omitempty"`
}

// ValidationResponse respuesta de POST /api/movements/validate.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// StatisticsResponse estadísticas de movimientos.
type StatisticsResponse struct {
	From          *time.Time                   `json:"from,omitempty"`
	To            *time.Time                   `json:"to,omitempty"`
	Total         int                          `json:"total"`
	ByStatus      map[string]int               `json:"by_status"`
	ByType        map[string]int               `json:"by_type"`
	BirdsMoved    map[string]entity.Quantities `json:"birds_moved"`
	CompletionPct decimal.Decimal              `json:"completion_pct"`
}
