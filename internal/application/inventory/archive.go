package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/rs/zerolog"
)

const exportPrefix = "traceability/lot-"

// DTO convierte la trazabilidad al formato de respuesta/exportación.
func (t *LotTraceability) DTO() dto.TraceabilityResponse {
	out := dto.TraceabilityResponse{
		LotID:      t.LotID,
		Current:    t.Current,
		Consistent: t.Consistent,
		Steps:      make([]dto.TraceStepResponse, 0, len(t.Steps)),
		Records:    make([]dto.RecordTraceResponse, 0, len(t.Records)),
	}
	for _, s := range t.Steps {
		out.Steps = append(out.Steps, dto.TraceStepResponse{
			Entry:         dto.HistoryEntryFrom(s.Entry),
			RecordRunning: s.RecordRun,
			LotRunning:    s.LotRunning,
		})
	}
	for _, r := range t.Records {
		out.Records = append(out.Records, dto.RecordTraceResponse{
			RecordID:   r.RecordID,
			Location:   r.Location,
			Status:     r.Status,
			Current:    r.Current,
			Replayed:   r.Replayed,
			Consistent: r.Consistent,
		})
	}
	return out
}

// ArchiveUseCase exporta la trazabilidad de lotes a un almacenamiento de objetos.
type ArchiveUseCase struct {
	query *QueryService
	blobs BlobStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewArchiveUseCase construye el caso de uso de archivo.
func NewArchiveUseCase(query *QueryService, blobs BlobStore, log zerolog.Logger) *ArchiveUseCase {
	return &ArchiveUseCase{query: query, blobs: blobs, log: log, now: time.Now}
}

// ExportKey clave del objeto: traceability/lot-<id>/<AAAAMMDDThhmmssZ>.json
func ExportKey(lotID string, at time.Time) string {
	return exportPrefix + lotID + "/" + at.UTC().Format("20060102T150405Z") + ".json"
}

// ExportLotHistory serializa la trazabilidad del lote en JSON y la guarda.
func (uc *ArchiveUseCase) ExportLotHistory(ctx context.Context, actor entity.Actor, lotID string) (BlobInfo, error) {
	lotID = strings.TrimSpace(lotID)
	if lotID == "" || strings.ContainsAny(lotID, "/\\") {
		return BlobInfo{}, domain.NewRuleError(domain.ErrInvalidInput, "lot_id inválido")
	}
	trace, err := uc.query.Traceability(ctx, lotID)
	if err != nil {
		return BlobInfo{}, err
	}
	now := uc.now()
	body := trace.DTO()
	body.ExportedAt = &now
	body.ExportedBy = actor.UserID
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return BlobInfo{}, fmt.Errorf("serializar trazabilidad: %w", err)
	}
	key := ExportKey(lotID, now)
	info, err := uc.blobs.Put(ctx, key, bytes.NewReader(data), "application/json")
	if err != nil {
		if !domain.IsRule(err) {
			uc.log.Error().Err(err).Str("op", "export_lot_history").Str("lot_id", lotID).Str("key", key).Msg("no se pudo guardar la exportación")
		}
		return BlobInfo{}, fmt.Errorf("guardar exportación %s: %w", key, err)
	}
	uc.log.Info().Str("lot_id", lotID).Str("key", key).Int64("size", info.Size).Msg("trazabilidad exportada")
	return info, nil
}

// ListExports exportaciones previas de un lote, ordenadas por clave (cronológico).
func (uc *ArchiveUseCase) ListExports(ctx context.Context, lotID string) ([]BlobInfo, error) {
	lotID = strings.TrimSpace(lotID)
	if lotID == "" || strings.ContainsAny(lotID, "/\\") {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "lot_id inválido")
	}
	return uc.blobs.List(ctx, exportPrefix+lotID+"/")
}
