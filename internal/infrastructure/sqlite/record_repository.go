package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*RecordRepo)(nil)

const recordColumns = `id, lot_id, farm_id, nucleus_id, shed_id, females, males, mixed, status, version, created_at, updated_at`

// RecordRepo registros de inventario sobre SQLite.
type RecordRepo struct {
	q dbtx
}

func (r *RecordRepo) Create(ctx context.Context, rec *entity.InventoryRecord) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO bird_inventory (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.LotID, rec.Location.FarmID, nullStr(rec.Location.NucleusID), nullStr(rec.Location.ShedID),
		rec.Quantities.Females, rec.Quantities.Males, rec.Quantities.Mixed,
		rec.Status, rec.Version, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt),
	)
	if err != nil {
		return wrapErr("create inventory record", err)
	}
	return nil
}

func (r *RecordRepo) GetByID(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	return r.getOne(ctx, "get inventory record", `SELECT `+recordColumns+` FROM bird_inventory WHERE id = ?`, id)
}

// GetForUpdate la conexión única ya serializa las transacciones; no hay FOR UPDATE en SQLite.
func (r *RecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *RecordRepo) FindActive(ctx context.Context, lotID string, loc entity.Location) (*entity.InventoryRecord, error) {
	loc = loc.Normalize()
	query := `SELECT ` + recordColumns + ` FROM bird_inventory
		WHERE lot_id = ? AND farm_id = ? AND COALESCE(nucleus_id, '') = ? AND COALESCE(shed_id, '') = ?
		  AND status = 'ACTIVE'`
	return r.getOne(ctx, "find active inventory", query, lotID, loc.FarmID, loc.NucleusID, loc.ShedID)
}

func (r *RecordRepo) ListActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error) {
	list, _, err := r.Search(ctx, repository.RecordFilter{LotID: lotID, Status: entity.RecordStatusActive})
	return list, err
}

func (r *RecordRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE bird_inventory
		SET farm_id = ?, nucleus_id = ?, shed_id = ?, females = ?, males = ?, mixed = ?,
		    status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		rec.Location.FarmID, nullStr(rec.Location.NucleusID), nullStr(rec.Location.ShedID),
		rec.Quantities.Females, rec.Quantities.Males, rec.Quantities.Mixed,
		rec.Status, fmtTime(rec.UpdatedAt), rec.ID, rec.Version,
	)
	if err != nil {
		return wrapErr("update inventory record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update inventory record", err)
	}
	if n == 0 {
		return fmt.Errorf("update inventory record %s: %w", rec.ID, domain.ErrConcurrentModification)
	}
	rec.Version++
	return nil
}

func (r *RecordRepo) Search(ctx context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, int, error) {
	w := &where{}
	if f.LotID != "" {
		w.add("lot_id = ?", f.LotID)
	}
	if f.FarmID != "" {
		w.add("farm_id = ?", f.FarmID)
	}
	if f.NucleusID != "" {
		w.add("nucleus_id = ?", f.NucleusID)
	}
	if f.ShedID != "" {
		w.add("shed_id = ?", f.ShedID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bird_inventory`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count inventory records", err)
	}
	query := `SELECT ` + recordColumns + ` FROM bird_inventory` + w.sql() + ` ORDER BY created_at, id`
	query += w.page(f.Limit, f.Offset)
	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, wrapErr("search inventory records", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, wrapErr("scan inventory record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("search inventory records", err)
	}
	return out, total, nil
}

func (r *RecordRepo) SummaryByLocation(ctx context.Context, farmID string) ([]repository.LocationSummary, error) {
	query := `
		SELECT farm_id, COALESCE(nucleus_id, ''), COALESCE(shed_id, ''),
		       COUNT(DISTINCT lot_id), COUNT(*), SUM(females), SUM(males), SUM(mixed)
		FROM bird_inventory
		WHERE status = 'ACTIVE' AND (? = '' OR farm_id = ?)
		GROUP BY 1, 2, 3
		ORDER BY 1, 2, 3`
	rows, err := r.q.QueryContext(ctx, query, farmID, farmID)
	if err != nil {
		return nil, wrapErr("summary by location", err)
	}
	defer func() { _ = rows.Close() }()
	var out []repository.LocationSummary
	for rows.Next() {
		var s repository.LocationSummary
		if err := rows.Scan(
			&s.Location.FarmID, &s.Location.NucleusID, &s.Location.ShedID,
			&s.Lots, &s.Records, &s.Quantities.Females, &s.Quantities.Males, &s.Quantities.Mixed,
		); err != nil {
			return nil, wrapErr("scan summary", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("summary by location", err)
	}
	repository.ComputeShares(out)
	return out, nil
}

func (r *RecordRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.InventoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*entity.InventoryRecord, error) {
	var (
		rec                  entity.InventoryRecord
		nucleus, shed        sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&rec.ID, &rec.LotID, &rec.Location.FarmID, &nucleus, &shed,
		&rec.Quantities.Females, &rec.Quantities.Males, &rec.Quantities.Mixed,
		&rec.Status, &rec.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	rec.Location.NucleusID, rec.Location.ShedID = nucleus.String, shed.String
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
