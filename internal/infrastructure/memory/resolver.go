package memory

import (
	"context"
	"sync"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

var _ inventory.LocationResolver = (*Resolver)(nil)

// Resolver catálogo estático de ubicaciones y lotes.
type Resolver struct {
	mu        sync.RWMutex
	open      bool
	locations map[string]struct{}
	lots      map[string]struct{}
}

// NewResolver crea un resolver vacío.
func NewResolver() *Resolver {
	return &Resolver{
		locations: make(map[string]struct{}),
		lots:      make(map[string]struct{}),
	}
}

// NewOpenResolver acepta cualquier granja y lote no vacíos (modo demo sin catálogo).
func NewOpenResolver() *Resolver {
	r := NewResolver()
	r.open = true
	return r
}

// AddLocation registra la ubicación y sus prefijos (granja, granja+núcleo).
func (r *Resolver) AddLocation(loc entity.Location) *Resolver {
	loc = loc.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[entity.Location{FarmID: loc.FarmID}.Key()] = struct{}{}
	if loc.NucleusID != "" {
		r.locations[entity.Location{FarmID: loc.FarmID, NucleusID: loc.NucleusID}.Key()] = struct{}{}
	}
	r.locations[loc.Key()] = struct{}{}
	return r
}

// AddLot registra un lote activo.
func (r *Resolver) AddLot(ids ...string) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.lots[id] = struct{}{}
	}
	return r
}

func (r *Resolver) IsValidLocation(_ context.Context, loc entity.Location) (bool, error) {
	if loc.IsZero() {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.open {
		return true, nil
	}
	_, ok := r.locations[loc.Key()]
	return ok, nil
}

func (r *Resolver) LotExists(_ context.Context, lotID string) (bool, error) {
	if lotID == "" {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.open {
		return true, nil
	}
	_, ok := r.lots[lotID]
	return ok, nil
}
