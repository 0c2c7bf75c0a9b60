package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

// RecordStore operaciones sobre registros de inventario atadas a un repositorio
// (normalmente el de la transacción en curso). Toda mutación actualiza UpdatedAt y Version.
type RecordStore struct {
	repo repository.InventoryRecordRepository
	now  func() time.Time
}

// NewRecordStore construye el store sobre repo; now nil usa time.Now.
func NewRecordStore(repo repository.InventoryRecordRepository, now func() time.Time) *RecordStore {
	if now == nil {
		now = time.Now
	}
	return &RecordStore{repo: repo, now: now}
}

// Get registro activo de un lote en una ubicación.
func (s *RecordStore) Get(ctx context.Context, lotID string, location entity.Location) (*entity.InventoryRecord, error) {
	rec, err := s.repo.FindActive(ctx, lotID, location.Normalize())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewRuleError(domain.ErrNotFound,
			fmt.Sprintf("no existe inventario activo del lote %s en %s", lotID, location))
	}
	return rec, nil
}

// GetActiveByLot registros activos de un lote (uno por ubicación ocupada).
func (s *RecordStore) GetActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error) {
	return s.repo.ListActiveByLot(ctx, lotID)
}

// UpsertInitial crea el registro inicial de un par lote+ubicación. Si ya hay uno activo
// falla con ErrDuplicate, salvo replace=true, en cuyo caso reemplaza sus cantidades.
// Devuelve el registro, las cantidades previas y si fue creado.
func (s *RecordStore) UpsertInitial(
	ctx context.Context,
	lotID string,
	location entity.Location,
	q entity.Quantities,
	replace bool,
) (*entity.InventoryRecord, entity.Quantities, bool, error) {
	if q.HasNegative() {
		return nil, entity.Quantities{}, false, domain.NewRuleError(domain.ErrInvalidInput, "las cantidades no pueden ser negativas")
	}
	location = location.Normalize()
	existing, err := s.repo.FindActive(ctx, lotID, location)
	if err != nil {
		return nil, entity.Quantities{}, false, err
	}
	if existing != nil {
		if !replace {
			return nil, entity.Quantities{}, false, domain.NewRuleError(domain.ErrDuplicate,
				fmt.Sprintf("ya existe inventario activo del lote %s en %s", lotID, location))
		}
		before := existing.Quantities
		existing.Quantities = q
		existing.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, entity.Quantities{}, false, err
		}
		return existing, before, false, nil
	}
	rec, err := s.Create(ctx, lotID, location, q)
	if err != nil {
		return nil, entity.Quantities{}, false, err
	}
	return rec, entity.Quantities{}, true, nil
}

// Create inserta un registro ACTIVE nuevo.
func (s *RecordStore) Create(ctx context.Context, lotID string, location entity.Location, q entity.Quantities) (*entity.InventoryRecord, error) {
	now := s.now()
	rec := &entity.InventoryRecord{
		ID:         uuid.New().String(),
		LotID:      lotID,
		Location:   location.Normalize(),
		Quantities: q,
		Status:     entity.RecordStatusActive,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyDebit descuenta q del registro. Falla con ErrInsufficientStock si alguna categoría
// no alcanza o si el registro no está ACTIVE.
func (s *RecordStore) ApplyDebit(ctx context.Context, recordID string, q entity.Quantities) (*entity.InventoryRecord, entity.Quantities, error) {
	rec, err := s.lock(ctx, recordID)
	if err != nil {
		return nil, entity.Quantities{}, err
	}
	if !rec.IsActive() {
		return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInsufficientStock,
			fmt.Sprintf("el inventario %s no está activo (estado %s)", rec.ID, rec.Status))
	}
	if short := rec.Quantities.Shortages(q); len(short) > 0 {
		return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInsufficientStock, short...)
	}
	before := rec.Quantities
	rec.Quantities = rec.Quantities.Sub(q)
	rec.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, entity.Quantities{}, err
	}
	return rec, before, nil
}

// ApplyCredit suma q al registro; sin tope superior. Falla solo si está LIQUIDATED.
// Un registro TRANSFERRED que recibe aves vuelve a ACTIVE.
func (s *RecordStore) ApplyCredit(ctx context.Context, recordID string, q entity.Quantities) (*entity.InventoryRecord, entity.Quantities, error) {
	rec, err := s.lock(ctx, recordID)
	if err != nil {
		return nil, entity.Quantities{}, err
	}
	if !rec.CanCredit() {
		return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInvalidState,
			fmt.Sprintf("el inventario %s está liquidado y no admite ingresos", rec.ID))
	}
	if !rec.IsActive() {
		// Solo un registro activo por lote y ubicación.
		other, err := s.repo.FindActive(ctx, rec.LotID, rec.Location)
		if err != nil {
			return nil, entity.Quantities{}, err
		}
		if other != nil && other.ID != rec.ID {
			return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInvalidState,
				fmt.Sprintf("el inventario %s está %s y el lote %s ya tiene el registro activo %s en %s; use ese registro como destino",
					rec.ID, rec.Status, rec.LotID, other.ID, rec.Location))
		}
	}
	before := rec.Quantities
	rec.Quantities = rec.Quantities.Add(q)
	rec.Status = entity.RecordStatusActive
	rec.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, entity.Quantities{}, err
	}
	return rec, before, nil
}

// SetQuantities reemplaza las cantidades (ajuste manual absoluto).
func (s *RecordStore) SetQuantities(ctx context.Context, recordID string, q entity.Quantities) (*entity.InventoryRecord, entity.Quantities, error) {
	if q.HasNegative() {
		return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInvalidInput, "las cantidades no pueden ser negativas")
	}
	rec, err := s.lock(ctx, recordID)
	if err != nil {
		return nil, entity.Quantities{}, err
	}
	if !rec.IsActive() {
		return nil, entity.Quantities{}, domain.NewRuleError(domain.ErrInvalidState,
			fmt.Sprintf("el inventario %s no está activo (estado %s)", rec.ID, rec.Status))
	}
	before := rec.Quantities
	rec.Quantities = q
	rec.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, entity.Quantities{}, err
	}
	return rec, before, nil
}

// Relocate cambia la ubicación del registro completo sin tocar cantidades.
func (s *RecordStore) Relocate(ctx context.Context, recordID string, location entity.Location) (*entity.InventoryRecord, entity.Location, error) {
	rec, err := s.lock(ctx, recordID)
	if err != nil {
		return nil, entity.Location{}, err
	}
	if !rec.IsActive() {
		return nil, entity.Location{}, domain.NewRuleError(domain.ErrInvalidState,
			fmt.Sprintf("el inventario %s no está activo (estado %s)", rec.ID, rec.Status))
	}
	location = location.Normalize()
	previous := rec.Location
	if previous.Equal(location) {
		return nil, entity.Location{}, domain.NewRuleError(domain.ErrNoOpMovement, "la ubicación nueva es igual a la actual")
	}
	other, err := s.repo.FindActive(ctx, rec.LotID, location)
	if err != nil {
		return nil, entity.Location{}, err
	}
	if other != nil {
		return nil, entity.Location{}, domain.NewRuleError(domain.ErrDuplicate,
			fmt.Sprintf("ya existe inventario activo del lote %s en %s; use un traslado", rec.LotID, location))
	}
	rec.Location = location
	rec.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, entity.Location{}, err
	}
	return rec, previous, nil
}

// MarkStatus cambia el estado (TRANSFERRED, LIQUIDATED).
func (s *RecordStore) MarkStatus(ctx context.Context, recordID, status string) (*entity.InventoryRecord, error) {
	if !entity.IsValidRecordStatus(status) {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "estado de inventario inválido: "+status)
	}
	rec, err := s.lock(ctx, recordID)
	if err != nil {
		return nil, err
	}
	rec.Status = status
	rec.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecordStore) lock(ctx context.Context, recordID string) (*entity.InventoryRecord, error) {
	rec, err := s.repo.GetForUpdate(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewRuleError(domain.ErrNotFound, "inventario no encontrado: "+recordID)
	}
	return rec, nil
}
