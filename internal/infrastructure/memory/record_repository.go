package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*RecordRepo)(nil)

// RecordRepo registros de inventario en memoria.
type RecordRepo struct {
	db access
}

func (r *RecordRepo) Create(_ context.Context, rec *entity.InventoryRecord) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.records[rec.ID]; ok {
			return fmt.Errorf("create inventory record %s: ya existe", rec.ID)
		}
		if rec.IsActive() {
			for _, other := range st.records {
				if other.IsActive() && other.LotID == rec.LotID && other.Location.Equal(rec.Location) {
					return fmt.Errorf("create inventory record: registro activo duplicado: %w", domain.ErrConcurrentModification)
				}
			}
		}
		st.records[rec.ID] = *rec
		return nil
	})
}

func (r *RecordRepo) GetByID(_ context.Context, id string) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.db.read(func(st *state) error {
		if rec, ok := st.records[id]; ok {
			out = &rec
		}
		return nil
	})
	return out, err
}

// GetForUpdate en memoria equivale a GetByID: la transacción ya es exclusiva.
func (r *RecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *RecordRepo) FindActive(_ context.Context, lotID string, loc entity.Location) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.db.read(func(st *state) error {
		for _, rec := range st.records {
			if rec.IsActive() && rec.LotID == lotID && rec.Location.Equal(loc) {
				rec := rec
				out = &rec
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *RecordRepo) ListActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error) {
	list, _, err := r.Search(ctx, repository.RecordFilter{LotID: lotID, Status: entity.RecordStatusActive})
	return list, err
}

func (r *RecordRepo) Update(_ context.Context, rec *entity.InventoryRecord) error {
	return r.db.write(func(st *state) error {
		cur, ok := st.records[rec.ID]
		if !ok || cur.Version != rec.Version {
			return fmt.Errorf("update inventory record %s: %w", rec.ID, domain.ErrConcurrentModification)
		}
		rec.Version++
		st.records[rec.ID] = *rec
		return nil
	})
}

func (r *RecordRepo) Search(_ context.Context, f repository.RecordFilter) ([]*entity.InventoryRecord, int, error) {
	var all []*entity.InventoryRecord
	err := r.db.read(func(st *state) error {
		for _, rec := range st.records {
			if matchRecord(rec, f) {
				rec := rec
				all = append(all, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *RecordRepo) SummaryByLocation(_ context.Context, farmID string) ([]repository.LocationSummary, error) {
	byKey := make(map[string]*repository.LocationSummary)
	lots := make(map[string]map[string]struct{})
	err := r.db.read(func(st *state) error {
		for _, rec := range st.records {
			if !rec.IsActive() || (farmID != "" && rec.Location.FarmID != farmID) {
				continue
			}
			key := rec.Location.Key()
			s, ok := byKey[key]
			if !ok {
				s = &repository.LocationSummary{Location: rec.Location}
				byKey[key] = s
				lots[key] = make(map[string]struct{})
			}
			s.Records++
			s.Quantities = s.Quantities.Add(rec.Quantities)
			lots[key][rec.LotID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]repository.LocationSummary, 0, len(byKey))
	for key, s := range byKey {
		s.Lots = len(lots[key])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Key() < out[j].Location.Key() })
	repository.ComputeShares(out)
	return out, nil
}

func matchRecord(rec entity.InventoryRecord, f repository.RecordFilter) bool {
	switch {
	case f.LotID != "" && rec.LotID != f.LotID:
		return false
	case f.FarmID != "" && rec.Location.FarmID != f.FarmID:
		return false
	case f.NucleusID != "" && rec.Location.NucleusID != f.NucleusID:
		return false
	case f.ShedID != "" && rec.Location.ShedID != f.ShedID:
		return false
	case f.Status != "" && rec.Status != f.Status:
		return false
	}
	return true
}
