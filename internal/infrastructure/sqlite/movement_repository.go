package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, number, type, status,
	origin_record_id, origin_lot_id, origin_farm_id, origin_nucleus_id, origin_shed_id,
	dest_record_id, dest_lot_id, dest_farm_id, dest_nucleus_id, dest_shed_id,
	females, males, mixed, requested_by, requested_by_name, reason, notes,
	created_at, processed_at, processed_by, cancelled_at, cancel_reason, cancelled_by`

// MovementRepo movimientos sobre SQLite.
type MovementRepo struct {
	q dbtx
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	args := []any{m.ID, m.Number, m.Type, m.Status}
	args = append(args, endpointArgs(m.Origin)...)
	args = append(args, endpointArgs(m.Destination)...)
	args = append(args,
		m.Quantities.Females, m.Quantities.Males, m.Quantities.Mixed,
		m.RequestedBy, nullStr(m.RequestedByName), nullStr(m.Reason), nullStr(m.Notes),
		fmtTime(m.CreatedAt), fmtTimePtr(m.ProcessedAt), nullStr(m.ProcessedBy),
		fmtTimePtr(m.CancelledAt), nullStr(m.CancelReason), nullStr(m.CancelledBy),
	)
	_, err := r.q.ExecContext(ctx, `INSERT INTO bird_movements (`+movementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return wrapErr("create movement", err)
	}
	return nil
}

func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement", `SELECT `+movementColumns+` FROM bird_movements WHERE id = ?`, id)
}

func (r *MovementRepo) GetByNumber(ctx context.Context, number string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement by number", `SELECT `+movementColumns+` FROM bird_movements WHERE number = ?`, number)
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) SaveTransition(ctx context.Context, m *entity.Movement) error {
	args := []any{m.Status}
	args = append(args, endpointArgs(m.Origin)...)
	args = append(args, endpointArgs(m.Destination)...)
	args = append(args,
		nullStr(m.Notes), fmtTimePtr(m.ProcessedAt), nullStr(m.ProcessedBy),
		fmtTimePtr(m.CancelledAt), nullStr(m.CancelReason), nullStr(m.CancelledBy),
		m.ID,
	)
	res, err := r.q.ExecContext(ctx, `
		UPDATE bird_movements
		SET status = ?,
		    origin_record_id = ?, origin_lot_id = ?, origin_farm_id = ?, origin_nucleus_id = ?, origin_shed_id = ?,
		    dest_record_id = ?, dest_lot_id = ?, dest_farm_id = ?, dest_nucleus_id = ?, dest_shed_id = ?,
		    notes = ?, processed_at = ?, processed_by = ?,
		    cancelled_at = ?, cancel_reason = ?, cancelled_by = ?
		WHERE id = ? AND status = 'PENDING'`, args...)
	if err != nil {
		return wrapErr("save movement transition", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("save movement transition", err)
	}
	if n == 0 {
		return fmt.Errorf("save movement %s: %w", m.ID, domain.ErrConcurrentModification)
	}
	return nil
}

func (r *MovementRepo) Search(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, int, error) {
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
		w.add("created_at >= ?", fmtTime(*f.From))
	}
	if f.To != nil {
		w.add("created_at <= ?", fmtTime(*f.To))
	}
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bird_movements`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count movements", err)
	}
	query := `SELECT ` + movementColumns + ` FROM bird_movements` + w.sql() + ` ORDER BY created_at DESC, number DESC`
	query += w.page(f.Limit, f.Offset)
	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, wrapErr("search movements", err)
	}
	defer func() { _ = rows.Close() }()
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

func (r *MovementRepo) CountByStatus(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	return r.countBy(ctx, "status", from, to)
}

func (r *MovementRepo) CountByType(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	return r.countBy(ctx, "type", from, to)
}

func (r *MovementRepo) MovedByType(ctx context.Context, from, to *time.Time) (map[string]entity.Quantities, error) {
	w := rangeWhere(from, to)
	w.add("status = ?", entity.MovementStatusCompleted)
	rows, err := r.q.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(females), 0), COALESCE(SUM(males), 0), COALESCE(SUM(mixed), 0)
		FROM bird_movements`+w.sql()+` GROUP BY type`, w.args...)
	if err != nil {
		return nil, wrapErr("moved by type", err)
	}
	defer func() { _ = rows.Close() }()
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

func (r *MovementRepo) countBy(ctx context.Context, column string, from, to *time.Time) (map[string]int, error) {
	w := rangeWhere(from, to)
	rows, err := r.q.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM bird_movements`+w.sql()+` GROUP BY `+column, w.args...)
	if err != nil {
		return nil, wrapErr("count movements by "+column, err)
	}
	defer func() { _ = rows.Close() }()
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

func (r *MovementRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return m, nil
}

func rangeWhere(from, to *time.Time) *where {
	w := &where{}
	if from != nil {
		w.add("created_at >= ?", fmtTime(*from))
	}
	if to != nil {
		w.add("created_at <= ?", fmtTime(*to))
	}
	return w
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
	record, lot, farm, nucleus, shed sql.NullString
}

func (c endpointCols) endpoint() *entity.MovementEndpoint {
	if !c.record.Valid && !c.lot.Valid && !c.farm.Valid {
		return nil
	}
	return &entity.MovementEndpoint{
		RecordID: c.record.String,
		LotID:    c.lot.String,
		Location: entity.Location{FarmID: c.farm.String, NucleusID: c.nucleus.String, ShedID: c.shed.String},
	}
}

func scanMovement(row scanner) (*entity.Movement, error) {
	var (
		m                                   entity.Movement
		origin, dest                        endpointCols
		byName, reason, notes               sql.NullString
		processedBy, cancelReason, cancelBy sql.NullString
		processedAt, cancelledAt            sql.NullString
		createdAt                           string
	)
	err := row.Scan(
		&m.ID, &m.Number, &m.Type, &m.Status,
		&origin.record, &origin.lot, &origin.farm, &origin.nucleus, &origin.shed,
		&dest.record, &dest.lot, &dest.farm, &dest.nucleus, &dest.shed,
		&m.Quantities.Females, &m.Quantities.Males, &m.Quantities.Mixed,
		&m.RequestedBy, &byName, &reason, &notes,
		&createdAt, &processedAt, &processedBy, &cancelledAt, &cancelReason, &cancelBy,
	)
	if err != nil {
		return nil, err
	}
	m.Origin, m.Destination = origin.endpoint(), dest.endpoint()
	m.RequestedByName, m.Reason, m.Notes = byName.String, reason.String, notes.String
	m.ProcessedBy, m.CancelReason, m.CancelledBy = processedBy.String, cancelReason.String, cancelBy.String
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.ProcessedAt, err = parseTimePtr(processedAt); err != nil {
		return nil, err
	}
	if m.CancelledAt, err = parseTimePtr(cancelledAt); err != nil {
		return nil, err
	}
	return &m, nil
}
