package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

const recordColumns = `id, lot_id, farm_id, nucleus_id, shed_id, females, males, mixed, status, version, created_at, updated_at`

// InventoryRecordRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

// Create inserta un registro nuevo.
func (r *InventoryRecordRepo) Create(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO bird_inventory (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.LotID, rec.Location.FarmID, nullStr(rec.Location.NucleusID), nullStr(rec.Location.ShedID),
		rec.Quantities.Females, rec.Quantities.Males, rec.Quantities.Mixed,
		rec.Status, rec.Version, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create inventory record", err)
	}
	return nil
}

// GetByID obtiene un registro por ID.
func (r *InventoryRecordRepo) GetByID(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM bird_inventory WHERE id = $1`
	return r.getOne(ctx, "get inventory record", query, id)
}

// GetForUpdate obtiene el registro y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM bird_inventory WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "get inventory record for update", query, id)
}

// FindActive registro ACTIVE del lote en la ubicación exacta (NULL = componente vacío).
func (r *InventoryRecordRepo) FindActive(ctx context.Context, lotID string, loc entity.Location) (*entity.InventoryRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM bird_inventory
		WHERE lot_id = $1 AND farm_id = $2
		  AND COALESCE(nucleus_id, '') = $3 AND COALESCE(shed_id, '') = $4
		  AND status = 'ACTIVE'`
	loc = loc.Normalize()
	return r.getOne(ctx, "find active inventory", query, lotID, loc.FarmID, loc.NucleusID, loc.ShedID)
}

// ListActiveByLot registros ACTIVE de un lote.
func (r *InventoryRecordRepo) ListActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error) {
	list, _, err := r.Search(ctx, repository.RecordFilter{LotID: lotID, Status: entity.RecordStatusActive})
	return list, err
}

// Update actualización condicional por versión.
func (r *InventoryRecordRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		UPDATE bird_inventory
		SET farm_id = $3, nucleus_id = $4, shed_id = $5,
		    females = $6, males = $7, mixed = $8,
		    status = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		rec.ID, rec.Version,
		rec.Location.FarmID, nullStr(rec.Location.NucleusID), nullStr(rec.Location.ShedID),
		rec.Quantities.Females, rec.Quantities.Males, rec.Quantities.Mixed,
		rec.Status, rec.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update inventory record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update inventory record %s: %w", rec.ID, domain.ErrConcurrentModification)
	}
	rec.Version++
	return nil
}

// Search listado filtrado; total sin paginar.
func (r *InventoryRecordRepo) Search(ctx context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, int, error) {
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
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM bird_inventory`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count inventory records", err)
	}
	query := `SELECT ` + recordColumns + ` FROM bird_inventory` + w.sql() + ` ORDER BY created_at, id`
	query += w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, wrapErr("search inventory records", err)
	}
	defer rows.Close()
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

// SummaryByLocation totales por ubicación; el porcentaje se calcula en SQL como NUMERIC.
func (r *InventoryRecordRepo) SummaryByLocation(ctx context.Context, farmID string) ([]repository.LocationSummary, error) {
	query := `
		WITH t AS (
			SELECT farm_id, COALESCE(nucleus_id, '') AS nucleus_id, COALESCE(shed_id, '') AS shed_id,
			       COUNT(DISTINCT lot_id) AS lots, COUNT(*) AS records,
			       SUM(females) AS females, SUM(males) AS males, SUM(mixed) AS mixed
			FROM bird_inventory
			WHERE status = 'ACTIVE' AND ($1::text = '' OR farm_id = $1::text)
			GROUP BY 1, 2, 3
		)
		SELECT farm_id, nucleus_id, shed_id, lots, records, females, males, mixed,
		       COALESCE(ROUND((females + males + mixed)::numeric * 100
		                / NULLIF(SUM(females + males + mixed) OVER (), 0), 2), 0) AS share_pct
		FROM t
		ORDER BY farm_id, nucleus_id, shed_id`
	rows, err := r.q.Query(ctx, query, farmID)
	if err != nil {
		return nil, wrapErr("summary by location", err)
	}
	defer rows.Close()
	var out []repository.LocationSummary
	for rows.Next() {
		var s repository.LocationSummary
		if err := rows.Scan(
			&s.Location.FarmID, &s.Location.NucleusID, &s.Location.ShedID,
			&s.Lots, &s.Records,
			&s.Quantities.Females, &s.Quantities.Males, &s.Quantities.Mixed,
			&s.SharePct,
		); err != nil {
			return nil, wrapErr("scan summary", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("summary by location", err)
	}
	return out, nil
}

func (r *InventoryRecordRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.InventoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return rec, nil
}

func scanRecord(row scanner) (*entity.InventoryRecord, error) {
	var (
		rec           entity.InventoryRecord
		nucleus, shed *string
	)
	err := row.Scan(
		&rec.ID, &rec.LotID, &rec.Location.FarmID, &nucleus, &shed,
		&rec.Quantities.Females, &rec.Quantities.Males, &rec.Quantities.Mixed,
		&rec.Status, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Location.NucleusID, rec.Location.ShedID = deref(nucleus), deref(shed)
	return &rec, nil
}
