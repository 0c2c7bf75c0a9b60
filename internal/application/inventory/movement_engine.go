package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/rs/zerolog"
)

// MovementEngine orquesta movimientos de aves: único escritor del estado de Movement y
// único que muta registros de inventario por movimientos. Cada procesamiento corre en una
// transacción (TxRunner) con bloqueo de filas; las consultas al resolver se hacen antes.
type MovementEngine struct {
	txRunner  TxRunner
	records   repository.InventoryRecordRepository
	movements repository.InventoryMovementRepository
	resolver  LocationResolver
	log       zerolog.Logger
	metrics   MetricsRecorder
	now       func() time.Time
}

// EngineOption configura dependencias opcionales del motor.
type EngineOption func(*MovementEngine)

// WithMetrics registra métricas por operación.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *MovementEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *MovementEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewMovementEngine construye el motor. records y movements son repos de lectura fuera de tx.
func NewMovementEngine(
	txRunner TxRunner,
	records repository.InventoryRecordRepository,
	movements repository.InventoryMovementRepository,
	resolver LocationResolver,
	log zerolog.Logger,
	opts ...EngineOption,
) *MovementEngine {
	e := &MovementEngine{
		txRunner:  txRunner,
		records:   records,
		movements: movements,
		resolver:  resolver,
		log:       log,
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MovementInput entrada para crear un movimiento.
// TRANSFER: Origin y Destination. LIQUIDATION: Origin. ADJUSTMENT: Origin (salida) o Destination (entrada).
// Cada extremo se indica por RecordID o por LotID + Location.
type MovementInput struct {
	Type        string
	Origin      *entity.MovementEndpoint
	Destination *entity.MovementEndpoint
	Quantities  entity.Quantities
	Reason      string
	Notes       string
}

// ProcessOptions opciones de Process.
type ProcessOptions struct {
	// AutoCreateDestination crea el registro destino con las cantidades movidas si no existe.
	AutoCreateDestination bool
}

// AdjustInput ajuste de un solo lado: IN suma al destino, OUT descuenta del origen.
type AdjustInput struct {
	Direction  string // IN | OUT
	Endpoint   entity.MovementEndpoint
	Quantities entity.Quantities
	Reason     string
	Notes      string
}

// Direcciones de ajuste.
const (
	AdjustIn  = "IN"
	AdjustOut = "OUT"
)

// SplitLotInput divide un lote: mueve Quantities del lote origen a un lote nuevo/distinto.
// Location elige el registro origen cuando el lote ocupa varias ubicaciones;
// DestLocation por defecto es la misma ubicación del origen.
type SplitLotInput struct {
	SourceLotID  string
	DestLotID    string
	Quantities   entity.Quantities
	Reason       string
	Notes        string
	Location     *entity.Location
	DestLocation *entity.Location
}

// MergeLotsInput fusiona todo el inventario activo del lote origen en el registro del lote destino.
// DestLocation es obligatoria si el lote destino ocupa varias ubicaciones.
type MergeLotsInput struct {
	SourceLotID  string
	DestLotID    string
	Reason       string
	DestLocation *entity.Location
}

type txScope struct {
	records    *RecordStore
	recordRepo repository.InventoryRecordRepository
	movements  repository.InventoryMovementRepository
	ledger     *Ledger
	now        time.Time
}

type opRef struct {
	movementID string
	lotID      string
}

// Create valida y registra un movimiento PENDING. No revisa stock: eso se hace al procesar.
func (e *MovementEngine) Create(ctx context.Context, actor entity.Actor, in MovementInput) (Result, error) {
	start := time.Now()
	mov, err := e.prepare(ctx, actor, in)
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			stamp(mov, actor, s.now)
			return s.movements.Create(ctx, mov)
		})
	}
	return e.finish("create", in.Type, start, actor, refOf(mov), err, func() Result { return success(mov) })
}

// Validate pre-chequeo de solo lectura: forma, existencia del origen, stock y destino válido.
func (e *MovementEngine) Validate(ctx context.Context, actor entity.Actor, in MovementInput) (ValidationResult, error) {
	mov, err := e.prepare(ctx, actor, in)
	if err != nil {
		if res, ok := failure(err); ok {
			return ValidationResult{Valid: false, Errors: res.Errors}, nil
		}
		return ValidationResult{}, err
	}
	var msgs []string
	if mov.Origin != nil {
		origin, err := resolveEndpoint(ctx, e.records, mov.Origin)
		if err != nil {
			return ValidationResult{}, err
		}
		switch {
		case origin == nil:
			msgs = append(msgs, fmt.Sprintf("no existe inventario activo de origen del lote %s en %s", mov.Origin.LotID, mov.Origin.Location))
		case !origin.IsActive():
			msgs = append(msgs, fmt.Sprintf("el inventario de origen no está activo (estado %s)", origin.Status))
		default:
			msgs = append(msgs, origin.Quantities.Shortages(mov.Quantities)...)
		}
	}
	if mov.Destination != nil && mov.Destination.RecordID != "" {
		dest, err := e.records.GetByID(ctx, mov.Destination.RecordID)
		if err != nil {
			return ValidationResult{}, err
		}
		if dest != nil && !dest.CanCredit() {
			msgs = append(msgs, "el inventario destino está liquidado")
		}
	}
	return ValidationResult{Valid: len(msgs) == 0, Errors: msgs}, nil
}

// Process ejecuta un movimiento PENDING: re-valida stock al momento de uso, debita, acredita,
// marca COMPLETED y escribe el historial; todo o nada.
func (e *MovementEngine) Process(ctx context.Context, actor entity.Actor, movementID string, opts ProcessOptions) (Result, error) {
	start := time.Now()
	var (
		mov *entity.Movement
		out processOutcome
	)
	err := requireActor(actor)
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			m, err := s.movements.GetForUpdate(ctx, movementID)
			if err != nil {
				return err
			}
			if m == nil {
				return domain.NewRuleError(domain.ErrNotFound, "movimiento no encontrado: "+movementID)
			}
			mov = m
			out, err = e.processInTx(ctx, s, m, opts, actor)
			return err
		})
	}
	ref := refOf(mov)
	if ref.movementID == "" {
		ref.movementID = movementID
	}
	return e.finish("process", typeOf(mov), start, actor, ref, err, func() Result {
		res := success(mov)
		res.InventoryID = out.inventoryID()
		return res
	})
}

// Cancel cancela un movimiento PENDING. Nunca toca inventario.
func (e *MovementEngine) Cancel(ctx context.Context, actor entity.Actor, movementID, reason string) (Result, error) {
	start := time.Now()
	var mov *entity.Movement
	reason = strings.TrimSpace(reason)
	err := requireActor(actor)
	if err == nil && reason == "" {
		err = domain.NewRuleError(domain.ErrInvalidInput, "debe indicar el motivo de la cancelación")
	}
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			m, err := s.movements.GetForUpdate(ctx, movementID)
			if err != nil {
				return err
			}
			if m == nil {
				return domain.NewRuleError(domain.ErrNotFound, "movimiento no encontrado: "+movementID)
			}
			mov = m
			if !m.IsPending() {
				return domain.NewRuleError(domain.ErrInvalidState,
					fmt.Sprintf("el movimiento %s ya está %s y no puede cancelarse", m.Number, m.Status))
			}
			m.MarkCancelled(s.now, actor.UserID, reason)
			return s.movements.SaveTransition(ctx, m)
		})
	}
	ref := refOf(mov)
	if ref.movementID == "" {
		ref.movementID = movementID
	}
	return e.finish("cancel", typeOf(mov), start, actor, ref, err, func() Result { return success(mov) })
}

// QuickTransfer crea y procesa un traslado en la misma transacción; si falla no queda nada.
func (e *MovementEngine) QuickTransfer(ctx context.Context, actor entity.Actor, in MovementInput) (Result, error) {
	in.Type = entity.MovementTypeTransfer
	return e.execute(ctx, "quick_transfer", actor, in)
}

// Adjust registra una entrada (IN) o salida (OUT) como movimiento ADJUSTMENT procesado al instante.
func (e *MovementEngine) Adjust(ctx context.Context, actor entity.Actor, in AdjustInput) (Result, error) {
	mi := MovementInput{
		Type:       entity.MovementTypeAdjustment,
		Quantities: in.Quantities,
		Reason:     in.Reason,
		Notes:      in.Notes,
	}
	ep := in.Endpoint
	switch strings.ToUpper(strings.TrimSpace(in.Direction)) {
	case AdjustIn:
		mi.Destination = &ep
	case AdjustOut:
		mi.Origin = &ep
	default:
		res, _ := failure(domain.NewRuleError(domain.ErrInvalidInput, "dirección de ajuste inválida (IN | OUT): "+in.Direction))
		return res, nil
	}
	return e.execute(ctx, "adjust", actor, mi)
}

// Liquidate crea y procesa una liquidación: descuenta del origen y lo marca LIQUIDATED.
// Con cantidades en cero liquida todo lo que tenga el registro.
func (e *MovementEngine) Liquidate(ctx context.Context, actor entity.Actor, origin entity.MovementEndpoint, q entity.Quantities, reason, notes string) (Result, error) {
	if q.IsZero() {
		rec, err := resolveEndpoint(ctx, e.records, normEndpoint(&origin))
		if err != nil {
			return e.finish("liquidate", entity.MovementTypeLiquidation, time.Now(), actor, opRef{lotID: origin.LotID}, err, nil)
		}
		if rec != nil && rec.Quantities.IsZero() {
			return e.closeEmpty(ctx, actor, rec.ID, reason, notes)
		}
		if rec != nil {
			q = rec.Quantities
		}
	}
	return e.execute(ctx, "liquidate", actor, MovementInput{
		Type:       entity.MovementTypeLiquidation,
		Origin:     &origin,
		Quantities: q,
		Reason:     reason,
		Notes:      notes,
	})
}

// closeEmpty liquida un registro activo que ya no tiene aves. No hay movimiento que
// procesar: cambia el estado y deja una entrada EXIT sin variación con el responsable.
func (e *MovementEngine) closeEmpty(ctx context.Context, actor entity.Actor, recordID, reason, notes string) (Result, error) {
	start := time.Now()
	var rec *entity.InventoryRecord
	err := requireActor(actor)
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			cur, err := s.recordRepo.GetForUpdate(ctx, recordID)
			if err != nil {
				return err
			}
			if cur == nil {
				return domain.NewRuleError(domain.ErrNotFound, "inventario no encontrado: "+recordID)
			}
			if !cur.IsActive() {
				return domain.NewRuleError(domain.ErrInvalidState,
					fmt.Sprintf("el inventario %s no está activo (estado %s)", cur.ID, cur.Status))
			}
			if !cur.Quantities.IsZero() {
				return domain.NewRuleError(domain.ErrConcurrentModification, "el inventario "+cur.ID+" recibió aves durante la liquidación")
			}
			if rec, err = s.records.MarkStatus(ctx, cur.ID, entity.RecordStatusLiquidated); err != nil {
				return err
			}
			return s.ledger.record(ctx, rec, rec.Location, entity.HistoryKindExit, rec.Quantities, "", actor, reason, notes, s.now)
		})
	}
	ref := opRef{}
	if rec != nil {
		ref.lotID = rec.LotID
	}
	return e.finish("liquidate", entity.MovementTypeLiquidation, start, actor, ref, err, func() Result {
		res := success(nil)
		res.InventoryID = rec.ID
		return res
	})
}

// SplitLot divide un lote moviendo parte de sus aves a otro lote (misma u otra ubicación).
func (e *MovementEngine) SplitLot(ctx context.Context, actor entity.Actor, in SplitLotInput) (Result, error) {
	start := time.Now()
	var (
		mov *entity.Movement
		out processOutcome
	)
	in.SourceLotID = strings.TrimSpace(in.SourceLotID)
	in.DestLotID = strings.TrimSpace(in.DestLotID)
	err := e.checkLotPair(ctx, actor, in.SourceLotID, in.DestLotID, in.DestLocation)
	if err == nil {
		if msgs := in.Quantities.Validate(); len(msgs) > 0 {
			err = domain.NewRuleError(domain.ErrInvalidInput, msgs...)
		}
	}
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			src, err := e.pickSourceRecord(ctx, s, in.SourceLotID, in.Location)
			if err != nil {
				return err
			}
			destLoc := src.Location
			if in.DestLocation != nil {
				destLoc = in.DestLocation.Normalize()
			}
			mov = &entity.Movement{
				Type:        entity.MovementTypeTransfer,
				Origin:      &entity.MovementEndpoint{RecordID: src.ID, LotID: src.LotID, Location: src.Location},
				Destination: &entity.MovementEndpoint{LotID: in.DestLotID, Location: destLoc},
				Quantities:  in.Quantities,
				Reason:      in.Reason,
				Notes:       in.Notes,
			}
			stamp(mov, actor, s.now)
			if err := s.movements.Create(ctx, mov); err != nil {
				return err
			}
			out, err = e.processInTx(ctx, s, mov, ProcessOptions{AutoCreateDestination: true}, actor)
			return err
		})
	}
	ref := refOf(mov)
	ref.lotID = in.SourceLotID
	return e.finish("split_lot", entity.MovementTypeTransfer, start, actor, ref, err, func() Result {
		res := success(mov)
		res.InventoryID = out.inventoryID()
		return res
	})
}

// MergeLots mueve la totalidad de los registros activos del lote origen al registro del lote
// destino; cada registro origen queda TRANSFERRED. Un movimiento por registro origen.
func (e *MovementEngine) MergeLots(ctx context.Context, actor entity.Actor, in MergeLotsInput) (Result, error) {
	start := time.Now()
	var (
		movs   []*entity.Movement
		destID string
	)
	in.SourceLotID = strings.TrimSpace(in.SourceLotID)
	in.DestLotID = strings.TrimSpace(in.DestLotID)
	err := e.checkLotPair(ctx, actor, in.SourceLotID, in.DestLotID, in.DestLocation)
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			sources, err := s.recordRepo.ListActiveByLot(ctx, in.SourceLotID)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return domain.NewRuleError(domain.ErrNotFound, "el lote "+in.SourceLotID+" no tiene inventario activo")
			}
			sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
			locked := make([]*entity.InventoryRecord, 0, len(sources))
			for _, src := range sources {
				rec, err := s.recordRepo.GetForUpdate(ctx, src.ID)
				if err != nil {
					return err
				}
				if rec == nil || !rec.IsActive() {
					return domain.NewRuleError(domain.ErrConcurrentModification, "el inventario "+src.ID+" cambió durante la fusión")
				}
				locked = append(locked, rec)
			}

			dest, err := e.mergeDestination(ctx, s, in)
			if err != nil {
				return err
			}
			for _, src := range locked {
				if !src.Quantities.IsZero() {
					d := dest
					mov := &entity.Movement{
						Type:        entity.MovementTypeTransfer,
						Origin:      &entity.MovementEndpoint{RecordID: src.ID, LotID: src.LotID, Location: src.Location},
						Destination: &d,
						Quantities:  src.Quantities,
						Reason:      in.Reason,
						Notes:       "Fusión del lote " + in.SourceLotID + " en el lote " + in.DestLotID,
					}
					stamp(mov, actor, s.now)
					if err := s.movements.Create(ctx, mov); err != nil {
						return err
					}
					out, err := e.processInTx(ctx, s, mov, ProcessOptions{AutoCreateDestination: true}, actor)
					if err != nil {
						return err
					}
					movs = append(movs, mov)
					if out.destination != nil {
						destID = out.destination.ID
						dest = entity.MovementEndpoint{RecordID: out.destination.ID, LotID: out.destination.LotID, Location: out.destination.Location}
					}
				}
				if _, err := s.records.MarkStatus(ctx, src.ID, entity.RecordStatusTransferred); err != nil {
					return err
				}
			}
			return nil
		})
	}
	ref := opRef{lotID: in.SourceLotID}
	if len(movs) > 0 {
		ref.movementID = movs[0].ID
	}
	return e.finish("merge_lots", entity.MovementTypeTransfer, start, actor, ref, err, func() Result {
		var first *entity.Movement
		if len(movs) > 0 {
			first = movs[0]
		}
		res := success(first)
		for _, m := range movs {
			res.MovementIDs = append(res.MovementIDs, m.ID)
		}
		res.InventoryID = destID
		return res
	})
}

// execute crea y procesa en una sola transacción (traslado rápido, ajuste, liquidación).
func (e *MovementEngine) execute(ctx context.Context, op string, actor entity.Actor, in MovementInput) (Result, error) {
	start := time.Now()
	var out processOutcome
	mov, err := e.prepare(ctx, actor, in)
	if err == nil {
		err = e.inTx(ctx, func(s *txScope) error {
			stamp(mov, actor, s.now)
			if err := s.movements.Create(ctx, mov); err != nil {
				return err
			}
			var err error
			out, err = e.processInTx(ctx, s, mov, ProcessOptions{AutoCreateDestination: true}, actor)
			return err
		})
	}
	return e.finish(op, in.Type, start, actor, refOf(mov), err, func() Result {
		res := success(mov)
		res.InventoryID = out.inventoryID()
		return res
	})
}

type processOutcome struct {
	origin      *entity.InventoryRecord
	destination *entity.InventoryRecord
}

func (o processOutcome) inventoryID() string {
	if o.destination != nil {
		return o.destination.ID
	}
	if o.origin != nil {
		return o.origin.ID
	}
	return ""
}

// processInTx pasos de procesamiento dentro de la transacción abierta.
func (e *MovementEngine) processInTx(
	ctx context.Context,
	s *txScope,
	mov *entity.Movement,
	opts ProcessOptions,
	actor entity.Actor,
) (processOutcome, error) {
	var out processOutcome
	if !mov.IsPending() {
		return out, domain.NewRuleError(domain.ErrInvalidState,
			fmt.Sprintf("el movimiento %s está %s; solo se procesan movimientos PENDING", mov.Number, mov.Status))
	}
	if msgs := mov.ShapeErrors(); len(msgs) > 0 {
		return out, domain.NewRuleError(domain.ErrInvalidInput, msgs...)
	}

	origin, err := resolveEndpoint(ctx, s.recordRepo, mov.Origin)
	if err != nil {
		return out, err
	}
	if mov.Origin != nil && origin == nil {
		return out, domain.NewRuleError(domain.ErrNotFound,
			fmt.Sprintf("no existe inventario activo de origen del lote %s en %s", mov.Origin.LotID, mov.Origin.Location))
	}
	dest, err := resolveEndpoint(ctx, s.recordRepo, mov.Destination)
	if err != nil {
		return out, err
	}
	if mov.Destination != nil && dest == nil && mov.Destination.RecordID != "" {
		return out, domain.NewRuleError(domain.ErrDestinationMissing, "el inventario destino no existe: "+mov.Destination.RecordID)
	}
	if origin != nil && dest != nil && origin.ID == dest.ID {
		return out, domain.NewRuleError(domain.ErrNoOpMovement, "origen y destino son el mismo inventario")
	}

	// Bloqueo en orden ascendente de id: dos movimientos cruzados no se esperan mutuamente.
	locked, err := lockInOrder(ctx, s.recordRepo, origin, dest)
	if err != nil {
		return out, err
	}
	if origin != nil {
		origin = locked[origin.ID]
		if !origin.IsActive() {
			return out, domain.NewRuleError(domain.ErrInsufficientStock,
				fmt.Sprintf("el inventario de origen no está activo (estado %s)", origin.Status))
		}
		if short := origin.Quantities.Shortages(mov.Quantities); len(short) > 0 {
			return out, domain.NewRuleError(domain.ErrInsufficientStock, short...)
		}
	}
	if dest != nil {
		dest = locked[dest.ID]
	}

	var originBefore, destBefore entity.Quantities
	if origin != nil {
		origin, originBefore, err = s.records.ApplyDebit(ctx, origin.ID, mov.Quantities)
		if err != nil {
			return out, err
		}
		if mov.Type == entity.MovementTypeLiquidation {
			if origin, err = s.records.MarkStatus(ctx, origin.ID, entity.RecordStatusLiquidated); err != nil {
				return out, err
			}
		}
	}
	if mov.Destination != nil {
		switch {
		case dest != nil:
			dest, destBefore, err = s.records.ApplyCredit(ctx, dest.ID, mov.Quantities)
			if err != nil {
				return out, err
			}
		case opts.AutoCreateDestination:
			dest, err = s.records.Create(ctx, mov.Destination.LotID, mov.Destination.Location, mov.Quantities)
			if err != nil {
				return out, err
			}
		default:
			return out, domain.NewRuleError(domain.ErrDestinationMissing,
				fmt.Sprintf("no existe inventario del lote %s en %s y no se habilitó la creación automática",
					mov.Destination.LotID, mov.Destination.Location))
		}
	}

	if origin != nil {
		mov.Origin.RecordID, mov.Origin.LotID, mov.Origin.Location = origin.ID, origin.LotID, origin.Location
	}
	if dest != nil {
		mov.Destination.RecordID, mov.Destination.LotID, mov.Destination.Location = dest.ID, dest.LotID, dest.Location
	}
	mov.MarkCompleted(s.now, actor.UserID)
	if err := s.movements.SaveTransition(ctx, mov); err != nil {
		return out, err
	}

	// Historial: origen siempre antes que destino.
	if origin != nil {
		kind := entity.HistoryKindForSide(mov.Type, true)
		if err := s.ledger.record(ctx, origin, origin.Location, kind, originBefore, mov.ID, actor, mov.Reason, mov.Notes, s.now); err != nil {
			return out, err
		}
	}
	if dest != nil {
		kind := entity.HistoryKindForSide(mov.Type, false)
		if err := s.ledger.record(ctx, dest, dest.Location, kind, destBefore, mov.ID, actor, mov.Reason, mov.Notes, s.now); err != nil {
			return out, err
		}
	}
	out.origin, out.destination = origin, dest
	return out, nil
}

// prepare valida la solicitud y normaliza extremos. Consulta el resolver (fuera de tx).
func (e *MovementEngine) prepare(ctx context.Context, actor entity.Actor, in MovementInput) (*entity.Movement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	mov := &entity.Movement{
		Type:        strings.ToUpper(strings.TrimSpace(in.Type)),
		Origin:      normEndpoint(in.Origin),
		Destination: normEndpoint(in.Destination),
		Quantities:  in.Quantities,
		Reason:      strings.TrimSpace(in.Reason),
		Notes:       strings.TrimSpace(in.Notes),
	}
	msgs := mov.ShapeErrors()
	msgs = append(msgs, in.Quantities.Validate()...)
	for _, side := range []struct {
		name string
		ep   *entity.MovementEndpoint
	}{{"origen", mov.Origin}, {"destino", mov.Destination}} {
		if side.ep != nil && side.ep.RecordID == "" && (side.ep.LotID == "" || side.ep.Location.IsZero()) {
			msgs = append(msgs, "el "+side.name+" requiere record_id o lot_id + farm_id")
		}
	}
	if len(msgs) > 0 {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, msgs...)
	}

	// Extremos indicados por record_id: completar lote y ubicación.
	for _, ep := range []*entity.MovementEndpoint{mov.Origin, mov.Destination} {
		if ep == nil || ep.RecordID == "" {
			continue
		}
		rec, err := e.records.GetByID(ctx, ep.RecordID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, domain.NewRuleError(domain.ErrNotFound, "inventario no encontrado: "+ep.RecordID)
		}
		if ep.LotID != "" && ep.LotID != rec.LotID {
			return nil, domain.NewRuleError(domain.ErrInvalidInput,
				fmt.Sprintf("el inventario %s pertenece al lote %s, no al %s", rec.ID, rec.LotID, ep.LotID))
		}
		ep.LotID, ep.Location = rec.LotID, rec.Location
	}

	checked := map[string]bool{}
	for _, ep := range []*entity.MovementEndpoint{mov.Origin, mov.Destination} {
		if ep == nil || checked[ep.LotID] {
			continue
		}
		checked[ep.LotID] = true
		ok, err := e.resolver.LotExists(ctx, ep.LotID)
		if err != nil {
			return nil, fmt.Errorf("resolver lote %s: %w", ep.LotID, err)
		}
		if !ok {
			return nil, domain.NewRuleError(domain.ErrNotFound, "el lote "+ep.LotID+" no existe o no está activo")
		}
	}
	if d := mov.Destination; d != nil && d.RecordID == "" {
		ok, err := e.resolver.IsValidLocation(ctx, d.Location)
		if err != nil {
			return nil, fmt.Errorf("resolver ubicación %s: %w", d.Location.Key(), err)
		}
		if !ok {
			return nil, domain.NewRuleError(domain.ErrInvalidInput, "ubicación destino no reconocida: "+d.Location.String())
		}
	}
	if mov.Origin != nil && mov.Destination != nil && mov.Origin.SamePlace(*mov.Destination) {
		return nil, domain.NewRuleError(domain.ErrNoOpMovement, "origen y destino son el mismo inventario")
	}
	return mov, nil
}

// checkLotPair validaciones comunes de división y fusión (antes de la transacción).
func (e *MovementEngine) checkLotPair(ctx context.Context, actor entity.Actor, sourceLotID, destLotID string, destLoc *entity.Location) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if sourceLotID == "" || destLotID == "" {
		return domain.NewRuleError(domain.ErrInvalidInput, "lote origen y lote destino son requeridos")
	}
	if sourceLotID == destLotID {
		return domain.NewRuleError(domain.ErrInvalidInput, "el lote origen y el destino deben ser distintos")
	}
	for _, lot := range []string{sourceLotID, destLotID} {
		ok, err := e.resolver.LotExists(ctx, lot)
		if err != nil {
			return fmt.Errorf("resolver lote %s: %w", lot, err)
		}
		if !ok {
			return domain.NewRuleError(domain.ErrNotFound, "el lote "+lot+" no existe o no está activo")
		}
	}
	if destLoc != nil {
		ok, err := e.resolver.IsValidLocation(ctx, destLoc.Normalize())
		if err != nil {
			return fmt.Errorf("resolver ubicación %s: %w", destLoc.Key(), err)
		}
		if !ok {
			return domain.NewRuleError(domain.ErrInvalidInput, "ubicación destino no reconocida: "+destLoc.String())
		}
	}
	return nil
}

func (e *MovementEngine) pickSourceRecord(ctx context.Context, s *txScope, lotID string, loc *entity.Location) (*entity.InventoryRecord, error) {
	if loc != nil {
		return s.records.Get(ctx, lotID, *loc)
	}
	active, err := s.recordRepo.ListActiveByLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, domain.NewRuleError(domain.ErrNotFound, "el lote "+lotID+" no tiene inventario activo")
	case 1:
		return active[0], nil
	default:
		return nil, domain.NewRuleError(domain.ErrInvalidInput,
			fmt.Sprintf("el lote %s ocupa %d ubicaciones; indique la ubicación de origen", lotID, len(active)))
	}
}

func (e *MovementEngine) mergeDestination(ctx context.Context, s *txScope, in MergeLotsInput) (entity.MovementEndpoint, error) {
	if in.DestLocation != nil {
		loc := in.DestLocation.Normalize()
		rec, err := s.recordRepo.FindActive(ctx, in.DestLotID, loc)
		if err != nil {
			return entity.MovementEndpoint{}, err
		}
		if rec != nil {
			return entity.MovementEndpoint{RecordID: rec.ID, LotID: rec.LotID, Location: rec.Location}, nil
		}
		return entity.MovementEndpoint{LotID: in.DestLotID, Location: loc}, nil
	}
	dests, err := s.recordRepo.ListActiveByLot(ctx, in.DestLotID)
	if err != nil {
		return entity.MovementEndpoint{}, err
	}
	switch len(dests) {
	case 0:
		return entity.MovementEndpoint{}, domain.NewRuleError(domain.ErrDestinationMissing,
			"el lote "+in.DestLotID+" no tiene inventario activo; indique la ubicación destino")
	case 1:
		d := dests[0]
		return entity.MovementEndpoint{RecordID: d.ID, LotID: d.LotID, Location: d.Location}, nil
	default:
		return entity.MovementEndpoint{}, domain.NewRuleError(domain.ErrInvalidInput,
			fmt.Sprintf("el lote %s ocupa %d ubicaciones; indique la ubicación destino", in.DestLotID, len(dests)))
	}
}

func (e *MovementEngine) inTx(ctx context.Context, fn func(s *txScope) error) error {
	return e.txRunner.Run(ctx, func(
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
		historyRepo repository.HistoryRepository,
	) error {
		now := e.now()
		return fn(&txScope{
			records:    NewRecordStore(recordRepo, func() time.Time { return now }),
			recordRepo: recordRepo,
			movements:  movRepo,
			ledger:     NewLedger(historyRepo, recordRepo),
			now:        now,
		})
	})
}

// finish traduce el error a Result, registra métricas y loguea fallos inesperados con contexto.
func (e *MovementEngine) finish(
	op, movType string,
	start time.Time,
	actor entity.Actor,
	ref opRef,
	err error,
	ok func() Result,
) (Result, error) {
	movType = strings.ToUpper(strings.TrimSpace(movType))
	elapsed := time.Since(start)
	if err == nil {
		res := ok()
		e.metrics.ObserveOperation(op, movType, res.Code, elapsed)
		e.log.Info().
			Str("op", op).
			Str("movement_id", res.MovementID).
			Str("lot_id", ref.lotID).
			Str("user_id", actor.UserID).
			Dur("elapsed", elapsed).
			Msg("operación de inventario completada")
		return res, nil
	}
	if res, isRule := failure(err); isRule {
		res.MovementID = ref.movementID
		e.metrics.ObserveOperation(op, movType, res.Code, elapsed)
		e.log.Debug().
			Str("op", op).
			Str("code", res.Code).
			Str("movement_id", ref.movementID).
			Str("lot_id", ref.lotID).
			Str("user_id", actor.UserID).
			Strs("errors", res.Errors).
			Msg("operación de inventario rechazada")
		return res, nil
	}
	e.metrics.ObserveOperation(op, movType, "INTERNAL", elapsed)
	e.log.Error().
		Err(err).
		Str("op", op).
		Str("movement_id", ref.movementID).
		Str("lot_id", ref.lotID).
		Str("user_id", actor.UserID).
		Msg("fallo inesperado en motor de movimientos")
	return Result{}, fmt.Errorf("%s: %w", op, err)
}

func resolveEndpoint(ctx context.Context, repo repository.InventoryRecordRepository, ep *entity.MovementEndpoint) (*entity.InventoryRecord, error) {
	if ep == nil {
		return nil, nil
	}
	if ep.RecordID != "" {
		return repo.GetByID(ctx, ep.RecordID)
	}
	return repo.FindActive(ctx, ep.LotID, ep.Location)
}

func lockInOrder(ctx context.Context, repo repository.InventoryRecordRepository, recs ...*entity.InventoryRecord) (map[string]*entity.InventoryRecord, error) {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	out := make(map[string]*entity.InventoryRecord, len(ids))
	for _, id := range ids {
		rec, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, domain.NewRuleError(domain.ErrConcurrentModification, "el inventario "+id+" desapareció durante el procesamiento")
		}
		out[id] = rec
	}
	return out, nil
}

func stamp(mov *entity.Movement, actor entity.Actor, now time.Time) {
	mov.ID = uuid.New().String()
	mov.Number = entity.MovementNumber(now, mov.ID)
	mov.Status = entity.MovementStatusPending
	mov.RequestedBy = actor.UserID
	mov.RequestedByName = actor.UserName
	mov.CreatedAt = now
}

func normEndpoint(ep *entity.MovementEndpoint) *entity.MovementEndpoint {
	if ep == nil {
		return nil
	}
	return &entity.MovementEndpoint{
		RecordID: strings.TrimSpace(ep.RecordID),
		LotID:    strings.TrimSpace(ep.LotID),
		Location: ep.Location.Normalize(),
	}
}

func requireActor(actor entity.Actor) error {
	if strings.TrimSpace(actor.UserID) == "" {
		return domain.NewRuleError(domain.ErrUnauthorized, "usuario requerido para registrar movimientos")
	}
	return nil
}

func refOf(mov *entity.Movement) opRef {
	if mov == nil {
		return opRef{}
	}
	ref := opRef{movementID: mov.ID}
	switch {
	case mov.Origin != nil:
		ref.lotID = mov.Origin.LotID
	case mov.Destination != nil:
		ref.lotID = mov.Destination.LotID
	}
	return ref
}

func typeOf(mov *entity.Movement) string {
	if mov == nil {
		return ""
	}
	return mov.Type
}
