package memory

import (
	"context"
	"fmt"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo historial append-only en memoria.
type HistoryRepo struct {
	db access
}

func (r *HistoryRepo) Append(_ context.Context, e *entity.HistoryEntry) error {
	return r.db.write(func(st *state) error {
		for _, other := range st.history {
			if other.ID == e.ID {
				return fmt.Errorf("append history %s: ya existe", e.ID)
			}
		}
		st.seq++
		e.Sequence = st.seq
		st.history = append(st.history, *e)
		return nil
	})
}

func (r *HistoryRepo) Search(_ context.Context, f repository.HistoryFilter) ([]*entity.HistoryEntry, int, error) {
	var all []*entity.HistoryEntry
	err := r.db.read(func(st *state) error {
		for _, e := range st.history {
			if matchHistory(e, f) {
				e := e
				all = append(all, &e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	inventory.SortChronological(all)
	return page(all, f.Limit, f.Offset), len(all), nil
}

func matchHistory(e entity.HistoryEntry, f repository.HistoryFilter) bool {
	switch {
	case f.LotID != "" && e.LotID != f.LotID:
		return false
	case f.RecordID != "" && e.InventoryRecordID != f.RecordID:
		return false
	case f.MovementID != "" && e.MovementID != f.MovementID:
		return false
	case f.UserID != "" && e.UserID != f.UserID:
		return false
	case f.Kind != "" && e.Kind != f.Kind:
		return false
	}
	return inRange(e.CreatedAt, f.From, f.To)
}
