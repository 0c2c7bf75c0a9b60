package postgres

import (
	"context"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

const historyColumns = `id, seq, inventory_id, lot_id, movement_id, farm_id, nucleus_id, shed_id, kind,
	females_before, males_before, mixed_before, females_after, males_after, mixed_after,
	user_id, user_name, reason, notes, created_at`

// HistoryRepo historial de inventario sobre PostgreSQL; solo INSERT y SELECT.
type HistoryRepo struct {
	q Querier
}

// NewHistoryRepository construye el adaptador. Acepta pool o tx (Querier).
func NewHistoryRepository(q Querier) *HistoryRepo {
	return &HistoryRepo{q: q}
}

// Append inserta la entrada; seq lo asigna la secuencia de la tabla.
func (r *HistoryRepo) Append(ctx context.Context, e *entity.HistoryEntry) error {
	query := `
		INSERT INTO bird_inventory_history (
			id, inventory_id, lot_id, movement_id, farm_id, nucleus_id, shed_id, kind,
			females_before, males_before, mixed_before, females_after, males_after, mixed_after,
			user_id, user_name, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		e.ID, e.InventoryRecordID, e.LotID, nullStr(e.MovementID),
		e.Location.FarmID, nullStr(e.Location.NucleusID), nullStr(e.Location.ShedID), e.Kind,
		e.Before.Females, e.Before.Males, e.Before.Mixed,
		e.After.Females, e.After.Males, e.After.Mixed,
		e.UserID, nullStr(e.UserName), nullStr(e.Reason), nullStr(e.Notes), e.CreatedAt,
	).Scan(&e.Sequence)
	if err != nil {
		return wrapErr("append history", err)
	}
	return nil
}

// Search historial filtrado en orden cronológico (created_at, seq).
func (r *HistoryRepo) Search(ctx context.Context, f repository.HistoryFilter) ([]*entity.HistoryEntry, int, error) {
	w := &where{}
	if f.LotID != "" {
		w.add("lot_id = ?", f.LotID)
	}
	if f.RecordID != "" {
		w.add("inventory_id = ?", f.RecordID)
	}
	if f.MovementID != "" {
		w.add("movement_id = ?", f.MovementID)
	}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Kind != "" {
		w.add("kind = ?", f.Kind)
	}
	if f.From != nil {
		w.add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= ?", *f.To)
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM bird_inventory_history`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count history", err)
	}
	query := `SELECT ` + historyColumns + ` FROM bird_inventory_history` + w.sql() + ` ORDER BY created_at, seq`
	query += w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, wrapErr("search history", err)
	}
	defer rows.Close()
	var list []*entity.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, 0, wrapErr("scan history", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("search history", err)
	}
	return list, total, nil
}

func scanHistory(row scanner) (*entity.HistoryEntry, error) {
	var (
		e                         entity.HistoryEntry
		movementID, nucleus, shed *string
		userName, reason, notes   *string
	)
	err := row.Scan(
		&e.ID, &e.Sequence, &e.InventoryRecordID, &e.LotID, &movementID,
		&e.Location.FarmID, &nucleus, &shed, &e.Kind,
		&e.Before.Females, &e.Before.Males, &e.Before.Mixed,
		&e.After.Females, &e.After.Males, &e.After.Mixed,
		&e.UserID, &userName, &reason, &notes, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.MovementID = deref(movementID)
	e.Location.NucleusID, e.Location.ShedID = deref(nucleus), deref(shed)
	e.UserName, e.Reason, e.Notes = deref(userName), deref(reason), deref(notes)
	return &e, nil
}
