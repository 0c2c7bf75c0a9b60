package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

const movementColumns = `id, number, type, status,
	origin_record_id, origin_lot_id, origin_farm_id, origin_nucleus_id, origin_shed_id,
	dest_record_id, dest_lot_id, dest_farm_id, dest_nucleus_id, dest_shed_id,
	females, males, mixed, requested_by, requested_by_name, reason, notes,
	created_at, processed_at, processed_by, cancelled_at, cancel_reason, cancelled_by`

const rangeFilter = `($1::timestamptz IS NULL OR created_at >= $1::timestamptz)
	AND ($2::timestamptz IS NULL OR created_at <= $2::timestamptz)`

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO bird_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`
	args := []any{m.ID, m.Number, m.Type, m.Status}
	args = append(args, endpointArgs(m.Origin)...)
	args = append(args, endpointArgs(m.Destination)...)
	args = append(args,
		m.Quantities.Females, m.Quantities.Males, m.Quantities.Mixed,
		m.RequestedBy, nullStr(m.RequestedByName), nullStr(m.Reason), nullStr(m.Notes),
		m.CreatedAt, m.ProcessedAt, nullStr(m.ProcessedBy), m.CancelledAt, nullStr(m.CancelReason), nullStr(m.CancelledBy),
	)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return wrapErr("create movement", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *InventoryMovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement", `SELECT `+movementColumns+` FROM bird_movements WHERE id = $1`, id)
}

// GetByNumber obtiene un movimiento por número (MOV-...).
func (r *InventoryMovementRepo) GetByNumber(ctx context.Context, number string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement by number", `SELECT `+movementColumns+` FROM bird_movements WHERE number = $1`, number)
}

// GetForUpdate bloquea la fila del movimiento.
func (r *InventoryMovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement for update", `SELECT `+movementColumns+` FROM bird_movements WHERE id = $1 FOR UPDATE`, id)
}

// SaveTransition guarda el cierre del movimiento solo si seguía PENDING.
func (r *InventoryMovementRepo) SaveTransition(ctx context.Context, m *entity.Movement) error {
	query := `
		UPDATE bird_movements
		SET status = $2,
		    origin_record_id = $3, origin_lot_id = $4, origin_farm_id = $5, origin_nucleus_id = $6, origin_shed_id = $7,
		    dest_record_id = $8, dest_lot_id = $9, dest_farm_id = $10, dest_nucleus_id = $11, dest_shed_id = $12,
		    notes = $13, processed_at = $14, processed_by = $15,
		    cancelled_at = $16, cancel_reason = $17, cancelled_by = $18
		WHERE id = $1 AND status = 'PENDING'`
	args := []any{m.ID, m.Status}
	args = append(args, endpointArgs(m.Origin)...)
	args = append(args, endpointArgs(m.Destination)...)
	args = append(args,
		nullStr(m.Notes), m.ProcessedAt, nullStr(m.ProcessedBy),
		m.CancelledAt, nullStr(m.CancelReason), nullStr(m.CancelledBy),
	)
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return wrapErr("save movement transition", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save movement %s: %w", m.ID, domain.ErrConcurrentModification)
	}
	return nil
}

// Search búsqueda filtrada, más recientes primero.
func (r *InventoryMovementRepo) Search(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, int, error) {
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}
	if f.LotID != "" {
		w.add("(origin_lot_id = ? OR dest_lot_id = ?)", f.LotID)
	}
	if f.FarmID != "" {
		w.add("(origin_farm_id = ? OR dest_farm_id = ?)", f.FarmID)
	}
	if f.UserID != "" {
		w.add("requested_by = ?", f.UserID)
	}
	if f.From != nil {
		w.add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= ?", *f.To)
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM bird_movements`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count movements", err)
	}
	query := `SELECT ` + movementColumns + ` FROM bird_movements` + w.sql() + ` ORDER BY created_at DESC, number DESC`
	query += w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, wrapErr("search movements", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, wrapErr("scan movement", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("search movements", err)
	}
	return list, total, nil
}

// CountByStatus conteo por estado en el rango.
func (r *InventoryMovementRepo) CountByStatus(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	return r.countBy(ctx, "status", from, to)
}

// CountByType conteo por tipo en el rango.
func (r *InventoryMovementRepo) CountByType(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	return r.countBy(ctx, "type", from, to)
}

// MovedByType aves movidas por tipo (solo COMPLETED).
func (r *InventoryMovementRepo) MovedByType(ctx context.Context, from, to *time.Time) (map[string]entity.Quantities, error) {
	query := `
		SELECT type, COALESCE(SUM(females), 0), COALESCE(SUM(males), 0), COALESCE(SUM(mixed), 0)
		FROM bird_movements
		WHERE status = 'COMPLETED' AND ` + rangeFilter + `
		GROUP BY type`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, wrapErr("moved by type", err)
	}
	defer rows.Close()
	out := make(map[string]entity.Quantities)
	for rows.Next() {
		var (
			t string
			q entity.Quantities
		)
		if err := rows.Scan(&t, &q.Females, &q.Males, &q.Mixed); err != nil {
			return nil, wrapErr("scan moved by type", err)
		}
		out[t] = q
	}
	return out, rows.Err()
}

func (r *InventoryMovementRepo) countBy(ctx context.Context, column string, from, to *time.Time) (map[string]int, error) {
	query := `SELECT ` + column + `, COUNT(*) FROM bird_movements WHERE ` + rangeFilter + ` GROUP BY ` + column
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, wrapErr("count movements by "+column, err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, wrapErr("scan count", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *InventoryMovementRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return m, nil
}

func endpointArgs(ep *entity.MovementEndpoint) []any {
	if ep == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	return []any{
		nullStr(ep.RecordID), nullStr(ep.LotID),
		nullStr(ep.Location.FarmID), nullStr(ep.Location.NucleusID), nullStr(ep.Location.ShedID),
	}
}

type endpointCols struct {
	record, lot, farm, nucleus, shed *string
}

func (c endpointCols) endpoint() *entity.MovementEndpoint {
	if c.record == nil && c.lot == nil && c.farm == nil {
		return nil
	}
	return &entity.MovementEndpoint{
		RecordID: deref(c.record),
		LotID:    deref(c.lot),
		Location: entity.Location{FarmID: deref(c.farm), NucleusID: deref(c.nucleus), ShedID: deref(c.shed)},
	}
}

func scanMovement(row scanner) (*entity.Movement, error) {
	var (
		m                                   entity.Movement
		origin, dest                        endpointCols
		byName, reason, notes               *string
		processedBy, cancelReason, cancelBy *string
	)
	err := row.Scan(
		&m.ID, &m.Number, &m.Type, &m.Status,
		&origin.record, &origin.lot, &origin.farm, &origin.nucleus, &origin.shed,
		&dest.record, &dest.lot, &dest.farm, &dest.nucleus, &dest.shed,
		&m.Quantities.Females, &m.Quantities.Males, &m.Quantities.Mixed,
		&m.RequestedBy, &byName, &reason, &notes,
		&m.CreatedAt, &m.ProcessedAt, &processedBy, &m.CancelledAt, &cancelReason, &cancelBy,
	)
	if err != nil {
		return nil, err
	}
	m.Origin, m.Destination = origin.endpoint(), dest.endpoint()
	m.RequestedByName, m.Reason, m.Notes = deref(byName), deref(reason), deref(notes)
	m.ProcessedBy, m.CancelReason, m.CancelledBy = deref(processedBy), deref(cancelReason), deref(cancelBy)
	return &m, nil
}
