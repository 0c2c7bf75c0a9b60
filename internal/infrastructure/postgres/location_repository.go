package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

var _ inventory.LocationResolver = (*LocationRepo)(nil)

// LocationRepo resuelve granjas, núcleos, galpones y lotes contra las tablas de catálogo.
type LocationRepo struct {
	pool *pgxpool.Pool
}

// NewLocationRepository construye el resolver de ubicaciones.
func NewLocationRepository(pool *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{pool: pool}
}

// IsValidLocation la granja debe existir y estar activa; núcleo y galpón, si vienen, deben pertenecerle.
func (r *LocationRepo) IsValidLocation(ctx context.Context, loc entity.Location) (bool, error) {
	loc = loc.Normalize()
	if loc.IsZero() {
		return false, nil
	}
	query := `
		SELECT EXISTS (SELECT 1 FROM farms f WHERE f.id = $1 AND f.active)
		   AND ($2::text = '' OR EXISTS (SELECT 1 FROM nuclei n WHERE n.farm_id = $1 AND n.id = $2::text))
		   AND ($3::text = '' OR EXISTS (
		        SELECT 1 FROM sheds s WHERE s.farm_id = $1 AND s.nucleus_id = $2::text AND s.id = $3::text))`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, loc.FarmID, loc.NucleusID, loc.ShedID).Scan(&ok); err != nil {
		return false, fmt.Errorf("validate location: %w", err)
	}
	return ok, nil
}

// LotExists el lote existe y está activo.
func (r *LocationRepo) LotExists(ctx context.Context, lotID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lots WHERE id = $1 AND active)`, lotID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lot exists: %w", err)
	}
	return ok, nil
}
