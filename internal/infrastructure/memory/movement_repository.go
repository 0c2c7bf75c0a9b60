package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*MovementRepo)(nil)

// MovementRepo movimientos en memoria.
type MovementRepo struct {
	db access
}

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.movements[m.ID]; ok {
			return fmt.Errorf("create movement %s: ya existe", m.ID)
		}
		for _, other := range st.movements {
			if other.Number == m.Number {
				return fmt.Errorf("create movement: número %s repetido: %w", m.Number, domain.ErrDuplicate)
			}
		}
		st.movements[m.ID] = cloneMovement(*m)
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.db.read(func(st *state) error {
		if m, ok := st.movements[id]; ok {
			c := cloneMovement(m)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetByNumber(_ context.Context, number string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.db.read(func(st *state) error {
		for _, m := range st.movements {
			if m.Number == number {
				c := cloneMovement(m)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) SaveTransition(_ context.Context, m *entity.Movement) error {
	return r.db.write(func(st *state) error {
		cur, ok := st.movements[m.ID]
		if !ok || cur.Status != entity.MovementStatusPending {
			return fmt.Errorf("save movement %s: %w", m.ID, domain.ErrConcurrentModification)
		}
		st.movements[m.ID] = cloneMovement(*m)
		return nil
	})
}

func (r *MovementRepo) Search(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, int, error) {
	var all []*entity.Movement
	err := r.db.read(func(st *state) error {
		for _, m := range st.movements {
			if matchMovement(m, f) {
				c := cloneMovement(m)
				all = append(all, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Number > all[j].Number
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *MovementRepo) CountByStatus(_ context.Context, from, to *time.Time) (map[string]int, error) {
	out := make(map[string]int)
	err := r.db.read(func(st *state) error {
		for _, m := range st.movements {
			if inRange(m.CreatedAt, from, to) {
				out[m.Status]++
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) CountByType(_ context.Context, from, to *time.Time) (map[string]int, error) {
	out := make(map[string]int)
	err := r.db.read(func(st *state) error {
		for _, m := range st.movements {
			if inRange(m.CreatedAt, from, to) {
				out[m.Type]++
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) MovedByType(_ context.Context, from, to *time.Time) (map[string]entity.Quantities, error) {
	out := make(map[string]entity.Quantities)
	err := r.db.read(func(st *state) error {
		for _, m := range st.movements {
			if m.Status == entity.MovementStatusCompleted && inRange(m.CreatedAt, from, to) {
				out[m.Type] = out[m.Type].Add(m.Quantities)
			}
		}
		return nil
	})
	return out, err
}

func matchMovement(m entity.Movement, f repository.MovementFilter) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.UserID != "" && m.RequestedBy != f.UserID {
		return false
	}
	if !inRange(m.CreatedAt, f.From, f.To) {
		return false
	}
	if f.LotID != "" && !endpointMatches(m, func(ep *entity.MovementEndpoint) bool { return ep.LotID == f.LotID }) {
		return false
	}
	if f.FarmID != "" && !endpointMatches(m, func(ep *entity.MovementEndpoint) bool { return ep.Location.FarmID == f.FarmID }) {
		return false
	}
	return true
}

func endpointMatches(m entity.Movement, pred func(ep *entity.MovementEndpoint) bool) bool {
	return (m.Origin != nil && pred(m.Origin)) || (m.Destination != nil && pred(m.Destination))
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
