package dto

import (
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// UpsertInventoryRequest body para POST /api/inventory/records.
// Sync=true responde con el registro existente en vez de DUPLICATE.
type UpsertInventoryRequest struct {
	LotID      string            `json:"lot_id"`
	Location   entity.Location   `json:"location"`
	Quantities entity.Quantities `json:"quantities"`
	Replace    bool              `json:"replace,omitempty"`
	Sync       bool              `json:"sync,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// AdjustRecordRequest body para POST /api/inventory/records/:id/adjust (valores absolutos).
type AdjustRecordRequest struct {
	Quantities entity.Quantities `json:"quantities"`
	Reason     string            `json:"reason"`
}

// RelocateRecordRequest body para POST /api/inventory/records/:id/relocate.
type RelocateRecordRequest struct {
	Location entity.Location `json:"location"`
	Reason   string          `json:"reason,omitempty"`
}

// InventoryRecordResponse registro de inventario.
type InventoryRecordResponse struct {
	ID         string            `json:"id"`
	LotID      string            `json:"lot_id"`
	Location   entity.Location   `json:"location"`
	Quantities entity.Quantities `json:"quantities"`
	Total      int               `json:"total"`
	Status     string            `json:"status"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// RecordFrom mapea la entidad a respuesta.
func RecordFrom(r *entity.InventoryRecord) InventoryRecordResponse {
	return InventoryRecordResponse{
		ID:         r.ID,
		LotID:      r.LotID,
		Location:   r.Location,
		Quantities: r.Quantities,
		Total:      r.Quantities.Total(),
		Status:     r.Status,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// RecordsFrom mapea una lista.
func RecordsFrom(list []*entity.InventoryRecord) []InventoryRecordResponse {
	out := make([]InventoryRecordResponse, 0, len(list))
	for _, r := range list {
		out = append(out, RecordFrom(r))
	}
	return out
}

// LocationSummaryResponse fila del resumen por ubicación.
type LocationSummaryResponse struct {
	Location   entity.Location   `json:"location"`
	Lots       int               `json:"lots"`
	Records    int               `json:"records"`
	Quantities entity.Quantities `json:"quantities"`
	Total      int               `json:"total"`
	SharePct   decimal.Decimal   `json:"share_pct"`
}

// SummaryFrom mapea el resumen.
func SummaryFrom(list []repository.LocationSummary) []LocationSummaryResponse {
	out := make([]LocationSummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, LocationSummaryResponse{
			Location:   s.Location,
			Lots:       s.Lots,
			Records:    s.Records,
			Quantities: s.Quantities,
			Total:      s.Quantities.Total(),
			SharePct:   s.SharePct,
		})
	}
	return out
}
