package dto

import (
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

// HistoryEntryResponse entrada del historial.
type HistoryEntryResponse struct {
	ID                string            `json:"id"`
	Sequence          int64             `json:"sequence"`
	InventoryRecordID string            `json:"inventory_record_id"`
	LotID             string            `json:"lot_id"`
	MovementID        string            `json:"movement_id,omitempty"`
	Location          entity.Location   `json:"location"`
	Kind              string            `json:"kind"`
	Before            entity.Quantities `json:"before"`
	After             entity.Quantities `json:"after"`
	Delta             entity.Quantities `json:"delta"`
	UserID            string            `json:"user_id"`
	UserName          string            `json:"user_name,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// HistoryEntryFrom mapea la entidad a respuesta.
func HistoryEntryFrom(e *entity.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:                e.ID,
		Sequence:          e.Sequence,
		InventoryRecordID: e.InventoryRecordID,
		LotID:             e.LotID,
		MovementID:        e.MovementID,
		Location:          e.Location,
		Kind:              e.Kind,
		Before:            e.Before,
		After:             e.After,
		Delta:             e.Delta(),
		UserID:            e.UserID,
		UserName:          e.UserName,
		Reason:            e.Reason,
		Notes:             e.Notes,
		CreatedAt:         e.CreatedAt,
	}
}

// HistoryFrom mapea una lista.
func HistoryFrom(list []*entity.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, HistoryEntryFrom(e))
	}
	return out
}

// TraceStepResponse paso de la trazabilidad con acumulados.
type TraceStepResponse struct {
	Entry         HistoryEntryResponse `json:"entry"`
	RecordRunning entity.Quantities    `json:"record_running"`
	LotRunning    entity.Quantities    `json:"lot_running"`
}

// RecordTraceResponse verificación de un registro contra el historial.
type RecordTraceResponse struct {
	RecordID   string            `json:"record_id"`
	Location   entity.Location   `json:"location"`
	Status     string            `json:"status"`
	Current    entity.Quantities `json:"current"`
	Replayed   entity.Quantities `json:"replayed"`
	Consistent bool              `json:"consistent"`
}

// TraceabilityResponse trazabilidad de un lote.
type TraceabilityResponse struct {
	LotID      string                `json:"lot_id"`
	Current    entity.Quantities     `json:"current"`
	Consistent bool                  `json:"consistent"`
	Steps      []TraceStepResponse   `json:"steps"`
	Records    []RecordTraceResponse `json:"records"`
	ExportedAt *time.Time            `json:"exported_at,omitempty"`
	ExportedBy string                `json:"exported_by,omitempty"`
}

// ExportResponse exportación guardada en el archivo de auditoría.
type ExportResponse struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}
