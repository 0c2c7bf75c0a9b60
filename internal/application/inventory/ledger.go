package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

// Ledger historial append-only de cambios de cantidades.
type Ledger struct {
	history repository.HistoryRepository
	records repository.InventoryRecordRepository
}

// NewLedger construye el ledger. records solo se usa en Traceability.
func NewLedger(history repository.HistoryRepository, records repository.InventoryRecordRepository) *Ledger {
	return &Ledger{history: history, records: records}
}

// Append inserta una entrada; nunca actualiza ni borra.
func (l *Ledger) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	if entry.InventoryRecordID == "" || entry.LotID == "" {
		return fmt.Errorf("history entry sin inventario o lote")
	}
	if !entity.IsValidHistoryKind(entry.Kind) {
		return fmt.Errorf("history entry con tipo inválido %q", entry.Kind)
	}
	if entry.Before.HasNegative() || entry.After.HasNegative() {
		return fmt.Errorf("history entry con cantidades negativas")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return l.history.Append(ctx, entry)
}

// record arma y agrega la entrada de un registro mutado.
func (l *Ledger) record(
	ctx context.Context,
	rec *entity.InventoryRecord,
	location entity.Location,
	kind string,
	before entity.Quantities,
	movementID string,
	actor entity.Actor,
	reason, notes string,
	at time.Time,
) error {
	return l.Append(ctx, &entity.HistoryEntry{
		InventoryRecordID: rec.ID,
		LotID:             rec.LotID,
		MovementID:        movementID,
		Location:          location,
		Kind:              kind,
		Before:            before,
		After:             rec.Quantities,
		UserID:            actor.UserID,
		UserName:          actor.UserName,
		Reason:            reason,
		Notes:             notes,
		CreatedAt:         at,
	})
}

// Search consulta libre con filtros y paginación.
func (l *Ledger) Search(ctx context.Context, f repository.HistoryFilter) ([]*entity.HistoryEntry, int, error) {
	if f.Kind != "" && !entity.IsValidHistoryKind(f.Kind) {
		return nil, 0, domain.NewRuleError(domain.ErrInvalidInput, "tipo de historial inválido: "+f.Kind)
	}
	return l.history.Search(ctx, f)
}

// QueryByLot historial de un lote.
func (l *Ledger) QueryByLot(ctx context.Context, lotID string, limit, offset int) ([]*entity.HistoryEntry, int, error) {
	return l.history.Search(ctx, repository.HistoryFilter{LotID: lotID, Limit: limit, Offset: offset})
}

// QueryByInventoryRecord historial de un registro.
func (l *Ledger) QueryByInventoryRecord(ctx context.Context, recordID string, limit, offset int) ([]*entity.HistoryEntry, int, error) {
	return l.history.Search(ctx, repository.HistoryFilter{RecordID: recordID, Limit: limit, Offset: offset})
}

// QueryByMovement entradas producidas por un movimiento (0, 1 o 2).
func (l *Ledger) QueryByMovement(ctx context.Context, movementID string) ([]*entity.HistoryEntry, error) {
	list, _, err := l.history.Search(ctx, repository.HistoryFilter{MovementID: movementID})
	return list, err
}

// QueryByDateRange historial en un rango [from, to].
func (l *Ledger) QueryByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*entity.HistoryEntry, int, error) {
	return l.history.Search(ctx, repository.HistoryFilter{From: &from, To: &to, Limit: limit, Offset: offset})
}

// QueryByUser historial de un usuario.
func (l *Ledger) QueryByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.HistoryEntry, int, error) {
	return l.history.Search(ctx, repository.HistoryFilter{UserID: userID, Limit: limit, Offset: offset})
}

// SortChronological ordena por (CreatedAt, Sequence).
func SortChronological(entries []*entity.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Sequence < b.Sequence
	})
}

// Replay suma los deltas de las entradas por registro en orden cronológico.
// Para un historial completo reproduce las cantidades actuales de cada registro.
func Replay(entries []*entity.HistoryEntry) map[string]entity.Quantities {
	ordered := make([]*entity.HistoryEntry, len(entries))
	copy(ordered, entries)
	SortChronological(ordered)
	out := make(map[string]entity.Quantities)
	for _, e := range ordered {
		out[e.InventoryRecordID] = out[e.InventoryRecordID].Add(e.Delta())
	}
	return out
}

// TraceStep un paso de la trazabilidad de un lote.
type TraceStep struct {
	Entry      *entity.HistoryEntry
	Delta      entity.Quantities
	RecordRun  entity.Quantities // cantidades del registro tras este paso
	LotRunning entity.Quantities // total del lote tras este paso
}

// RecordTrace estado de un registro del lote y su verificación por replay.
type RecordTrace struct {
	RecordID   string
	Location   entity.Location
	Status     string
	Current    entity.Quantities
	Replayed   entity.Quantities
	Consistent bool
}

// LotTraceability reconstrucción cronológica de ubicaciones y cantidades de un lote.
type LotTraceability struct {
	LotID      string
	Steps      []TraceStep
	Records    []RecordTrace
	Current    entity.Quantities // suma de registros activos
	Consistent bool
}

// Traceability reconstruye la historia del lote y verifica contra los registros actuales.
func (l *Ledger) Traceability(ctx context.Context, lotID string) (*LotTraceability, error) {
	entries, _, err := l.history.Search(ctx, repository.HistoryFilter{LotID: lotID})
	if err != nil {
		return nil, err
	}
	records, _, err := l.records.Search(ctx, repository.RecordFilter{LotID: lotID})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 && len(records) == 0 {
		return nil, domain.NewRuleError(domain.ErrNotFound, "el lote "+lotID+" no tiene inventario ni historial")
	}
	SortChronological(entries)

	out := &LotTraceability{LotID: lotID, Consistent: true}
	perRecord := make(map[string]entity.Quantities)
	var lotRunning entity.Quantities
	for _, e := range entries {
		d := e.Delta()
		perRecord[e.InventoryRecordID] = perRecord[e.InventoryRecordID].Add(d)
		lotRunning = lotRunning.Add(d)
		out.Steps = append(out.Steps, TraceStep{
			Entry:      e,
			Delta:      d,
			RecordRun:  perRecord[e.InventoryRecordID],
			LotRunning: lotRunning,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	for _, r := range records {
		replayed := perRecord[r.ID]
		ok := replayed == r.Quantities
		if !ok {
			out.Consistent = false
		}
		if r.IsActive() {
			out.Current = out.Current.Add(r.Quantities)
		}
		out.Records = append(out.Records, RecordTrace{
			RecordID:   r.ID,
			Location:   r.Location,
			Status:     r.Status,
			Current:    r.Quantities,
			Replayed:   replayed,
			Consistent: ok,
		})
	}
	return out, nil
}
