package memory

import (
	"context"
	"sync"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	records   map[string]entity.InventoryRecord
	movements map[string]entity.Movement
	history   []entity.HistoryEntry
	seq       int64
}

func newState() state {
	return state{
		records:   make(map[string]entity.InventoryRecord),
		movements: make(map[string]entity.Movement),
	}
}

func (s state) clone() state {
	out := state{
		records:   make(map[string]entity.InventoryRecord, len(s.records)),
		movements: make(map[string]entity.Movement, len(s.movements)),
		history:   make([]entity.HistoryEntry, len(s.history)),
		seq:       s.seq,
	}
	for k, v := range s.records {
		out.records[k] = v
	}
	for k, v := range s.movements {
		out.movements[k] = cloneMovement(v)
	}
	copy(out.history, s.history)
	return out
}

// Store almacenamiento en memoria (tests y modo demo). Las transacciones se serializan
// y trabajan sobre una copia del estado; el commit reemplaza el estado completo.
type Store struct {
	mu    sync.RWMutex
	state state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Run ejecuta fn sobre una copia del estado; si fn devuelve error la copia se descarta.
func (s *Store) Run(_ context.Context, fn func(
	recordRepo repository.InventoryRecordRepository,
	movRepo repository.InventoryMovementRepository,
	historyRepo repository.HistoryRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txAccess{st: s.state.clone()}
	if err := fn(&RecordRepo{db: tx}, &MovementRepo{db: tx}, &HistoryRepo{db: tx}); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

// Records repositorio de lectura/escritura fuera de transacción.
func (s *Store) Records() *RecordRepo { return &RecordRepo{db: storeAccess{s}} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{db: storeAccess{s}} }

// History repositorio del historial fuera de transacción.
func (s *Store) History() *HistoryRepo { return &HistoryRepo{db: storeAccess{s}} }

// access abstrae el estado: el global con lock o la copia de la transacción en curso.
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type storeAccess struct{ s *Store }

func (a storeAccess) read(fn func(st *state) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(&a.s.state)
}

func (a storeAccess) write(fn func(st *state) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(&a.s.state)
}

type txAccess struct{ st state }

func (a *txAccess) read(fn func(st *state) error) error  { return fn(&a.st) }
func (a *txAccess) write(fn func(st *state) error) error { return fn(&a.st) }

func cloneMovement(m entity.Movement) entity.Movement {
	if m.Origin != nil {
		o := *m.Origin
		m.Origin = &o
	}
	if m.Destination != nil {
		d := *m.Destination
		m.Destination = &d
	}
	if m.ProcessedAt != nil {
		t := *m.ProcessedAt
		m.ProcessedAt = &t
	}
	if m.CancelledAt != nil {
		t := *m.CancelledAt
		m.CancelledAt = &t
	}
	return m
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
