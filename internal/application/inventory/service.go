package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/rs/zerolog"
)

// InventoryService operaciones manuales sobre registros (carga inicial, conteos, reubicación).
// No crean movimientos pero sí dejan historial.
type InventoryService struct {
	txRunner TxRunner
	resolver LocationResolver
	log      zerolog.Logger
	now      func() time.Time
}

// NewInventoryService construye el servicio.
func NewInventoryService(txRunner TxRunner, resolver LocationResolver, log zerolog.Logger) *InventoryService {
	return &InventoryService{txRunner: txRunner, resolver: resolver, log: log, now: time.Now}
}

// UpsertInitial crea el inventario inicial de un lote en una ubicación (historial ENTRY).
// Con replace=true sobrescribe las cantidades de un registro activo existente (historial ADJUSTMENT).
func (s *InventoryService) UpsertInitial(
	ctx context.Context,
	actor entity.Actor,
	lotID string,
	loc entity.Location,
	q entity.Quantities,
	replace bool,
	reason string,
) (*entity.InventoryRecord, error) {
	lotID = strings.TrimSpace(lotID)
	loc = loc.Normalize()
	if err := s.checkTarget(ctx, actor, lotID, loc, q); err != nil {
		return nil, err
	}
	var out *entity.InventoryRecord
	err := s.inTx(ctx, func(store *RecordStore, ledger *Ledger, now time.Time) error {
		rec, before, created, err := store.UpsertInitial(ctx, lotID, loc, q, replace)
		if err != nil {
			return err
		}
		kind := entity.HistoryKindAdjustment
		if created {
			kind = entity.HistoryKindEntry
		}
		if reason == "" {
			reason = "Inventario inicial"
		}
		out = rec
		return ledger.record(ctx, rec, rec.Location, kind, before, "", actor, reason, "", now)
	})
	return out, s.logErr("upsert_initial", lotID, actor, err)
}

// SyncFromLotIntake sincroniza desde el ingreso del lote: crea el registro si no existe y
// devuelve el existente sin tocarlo si ya hay uno activo.
func (s *InventoryService) SyncFromLotIntake(
	ctx context.Context,
	actor entity.Actor,
	lotID string,
	loc entity.Location,
	q entity.Quantities,
) (*entity.InventoryRecord, bool, error) {
	rec, err := s.UpsertInitial(ctx, actor, lotID, loc, q, false, "Sincronización desde ingreso de lote")
	if err == nil {
		return rec, true, nil
	}
	if !domain.IsRule(err) || domain.Code(err) != "DUPLICATE" {
		return nil, false, err
	}
	var existing *entity.InventoryRecord
	err = s.inTx(ctx, func(store *RecordStore, _ *Ledger, _ time.Time) error {
		var err error
		existing, err = store.Get(ctx, strings.TrimSpace(lotID), loc)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// AdjustQuantities corrección absoluta por conteo físico (historial ADJUSTMENT).
func (s *InventoryService) AdjustQuantities(
	ctx context.Context,
	actor entity.Actor,
	recordID string,
	q entity.Quantities,
	reason string,
) (*entity.InventoryRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "debe indicar el motivo del ajuste")
	}
	var out *entity.InventoryRecord
	err := s.inTx(ctx, func(store *RecordStore, ledger *Ledger, now time.Time) error {
		rec, before, err := store.SetQuantities(ctx, recordID, q)
		if err != nil {
			return err
		}
		if before == q {
			return domain.NewRuleError(domain.ErrNoOpMovement, "las cantidades nuevas son iguales a las actuales")
		}
		out = rec
		return ledger.record(ctx, rec, rec.Location, entity.HistoryKindAdjustment, before, "", actor, reason, "", now)
	})
	return out, s.logErr("adjust_quantities", recordID, actor, err)
}

// RelocateRecord mueve el registro completo a otra ubicación (historial TRANSFER con before == after).
func (s *InventoryService) RelocateRecord(
	ctx context.Context,
	actor entity.Actor,
	recordID string,
	loc entity.Location,
	reason string,
) (*entity.InventoryRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	loc = loc.Normalize()
	if loc.FarmID == "" {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "farm_id es requerido")
	}
	ok, err := s.resolver.IsValidLocation(ctx, loc)
	if err != nil {
		return nil, s.logErr("relocate_record", recordID, actor, fmt.Errorf("resolver ubicación %s: %w", loc.Key(), err))
	}
	if !ok {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "ubicación destino no reconocida: "+loc.String())
	}
	var out *entity.InventoryRecord
	err = s.inTx(ctx, func(store *RecordStore, ledger *Ledger, now time.Time) error {
		rec, previous, err := store.Relocate(ctx, recordID, loc)
		if err != nil {
			return err
		}
		out = rec
		notes := "Reubicado desde " + previous.String()
		return ledger.record(ctx, rec, rec.Location, entity.HistoryKindTransfer, rec.Quantities, "", actor, reason, notes, now)
	})
	return out, s.logErr("relocate_record", recordID, actor, err)
}

func (s *InventoryService) checkTarget(ctx context.Context, actor entity.Actor, lotID string, loc entity.Location, q entity.Quantities) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	var msgs []string
	if lotID == "" {
		msgs = append(msgs, "lot_id es requerido")
	}
	if loc.FarmID == "" {
		msgs = append(msgs, "farm_id es requerido")
	}
	if q.HasNegative() {
		msgs = append(msgs, "las cantidades no pueden ser negativas")
	}
	if len(msgs) > 0 {
		return domain.NewRuleError(domain.ErrInvalidInput, msgs...)
	}
	ok, err := s.resolver.LotExists(ctx, lotID)
	if err != nil {
		return fmt.Errorf("resolver lote %s: %w", lotID, err)
	}
	if !ok {
		return domain.NewRuleError(domain.ErrNotFound, "el lote "+lotID+" no existe o no está activo")
	}
	ok, err = s.resolver.IsValidLocation(ctx, loc)
	if err != nil {
		return fmt.Errorf("resolver ubicación %s: %w", loc.Key(), err)
	}
	if !ok {
		return domain.NewRuleError(domain.ErrInvalidInput, "ubicación no reconocida: "+loc.String())
	}
	return nil
}

func (s *InventoryService) inTx(ctx context.Context, fn func(store *RecordStore, ledger *Ledger, now time.Time) error) error {
	return s.txRunner.Run(ctx, func(
		recordRepo repository.InventoryRecordRepository,
		_ repository.InventoryMovementRepository,
		historyRepo repository.HistoryRepository,
	) error {
		now := s.now()
		return fn(NewRecordStore(recordRepo, func() time.Time { return now }), NewLedger(historyRepo, recordRepo), now)
	})
}

func (s *InventoryService) logErr(op, ref string, actor entity.Actor, err error) error {
	if err == nil || domain.IsRule(err) {
		return err
	}
	s.log.Error().Err(err).Str("op", op).Str("ref", ref).Str("user_id", actor.UserID).Msg("fallo inesperado en inventario")
	return fmt.Errorf("%s: %w", op, err)
}
