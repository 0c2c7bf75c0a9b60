package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/memory"
)

var (
	granja1 = entity.Location{FarmID: "G1", NucleusID: "N1", ShedID: "GP1"}
	granja2 = entity.Location{FarmID: "G2", NucleusID: "N1", ShedID: "GP1"}
	granja3 = entity.Location{FarmID: "G3"}

	operador = entity.Actor{UserID: "u-1", UserName: "Operador Granja"}
)

type fixture struct {
	store    *memory.Store
	resolver *memory.Resolver
	metrics  *fakeMetrics
	engine   *inventory.MovementEngine
	service  *inventory.InventoryService
	query    *inventory.QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	resolver := memory.NewResolver().
		AddLocation(granja1).
		AddLocation(granja2).
		AddLocation(granja3).
		AddLot("L1", "L2", "L3")
	fm := &fakeMetrics{}
	log := zerolog.Nop()
	return &fixture{
		store:    store,
		resolver: resolver,
		metrics:  fm,
		engine:   inventory.NewMovementEngine(store, store.Records(), store.Movements(), resolver, log, inventory.WithMetrics(fm)),
		service:  inventory.NewInventoryService(store, resolver, log),
		query:    inventory.NewQueryService(store.Records(), store.Movements(), store.History()),
	}
}

// seed crea el inventario inicial del lote en la ubicación.
func (f *fixture) seed(t *testing.T, lotID string, loc entity.Location, q entity.Quantities) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.service.UpsertInitial(context.Background(), operador, lotID, loc, q, false, "")
	require.NoError(t, err)
	return rec
}

func (f *fixture) record(t *testing.T, id string) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.query.GetRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) active(t *testing.T, lotID string, loc entity.Location) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.query.ByLotAndLocation(context.Background(), lotID, loc)
	require.NoError(t, err)
	return rec
}

func (f *fixture) history(t *testing.T, filter repository.HistoryFilter) []*entity.HistoryEntry {
	t.Helper()
	list, _, err := f.store.History().Search(context.Background(), filter)
	require.NoError(t, err)
	return list
}

// totalBirds suma aves de todos los registros (cualquier estado).
func (f *fixture) totalBirds(t *testing.T) entity.Quantities {
	t.Helper()
	list, _, err := f.store.Records().Search(context.Background(), repository.RecordFilter{})
	require.NoError(t, err)
	var total entity.Quantities
	for _, r := range list {
		total = total.Add(r.Quantities)
	}
	return total
}

func transfer(lotID string, from, to entity.Location, q entity.Quantities) inventory.MovementInput {
	return inventory.MovementInput{
		Type:        entity.MovementTypeTransfer,
		Origin:      &entity.MovementEndpoint{LotID: lotID, Location: from},
		Destination: &entity.MovementEndpoint{LotID: lotID, Location: to},
		Quantities:  q,
		Reason:      "traslado de prueba",
	}
}

type observation struct {
	operation, movementType, result string
}

type fakeMetrics struct {
	mu   sync.Mutex
	seen []observation
}

func (m *fakeMetrics) ObserveOperation(operation, movementType, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, observation{operation, movementType, result})
}

func (m *fakeMetrics) last() observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seen) == 0 {
		return observation{}
	}
	return m.seen[len(m.seen)-1]
}
