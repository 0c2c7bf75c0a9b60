package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/sqlite"
)

var (
	granja1 = entity.Location{FarmID: "G1", NucleusID: "N1", ShedID: "GP1"}
	granja2 = entity.Location{FarmID: "G2"}
	actor   = entity.Actor{UserID: "u-1", UserName: "Operador"}
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "data", "inventario.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SeedLocation(ctx, granja1))
	require.NoError(t, store.SeedLocation(ctx, granja2))
	require.NoError(t, store.SeedLot(ctx, "L1"))
	require.NoError(t, store.SeedLot(ctx, "L2"))
	return store
}

func TestStore_Resolver(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, tc := range []struct {
		loc  entity.Location
		want bool
	}{
		{granja1, true},
		{entity.Location{FarmID: "G1"}, true},
		{entity.Location{FarmID: "G1", NucleusID: "N1"}, true},
		{entity.Location{FarmID: "G1", NucleusID: "N2"}, false},
		{entity.Location{FarmID: "G1", NucleusID: "N1", ShedID: "GP9"}, false},
		{entity.Location{FarmID: "G9"}, false},
		{entity.Location{}, false},
	} {
		ok, err := store.IsValidLocation(ctx, tc.loc)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, tc.loc.Key())
	}

	ok, err := store.LotExists(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.LotExists(ctx, "L404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TrasladoCompletoSobreSQLite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	log := zerolog.Nop()
	svc := inventory.NewInventoryService(store, store, log)
	engine := inventory.NewMovementEngine(store, store.Records(), store.Movements(), store, log)
	query := inventory.NewQueryService(store.Records(), store.Movements(), store.History())

	origin, err := svc.UpsertInitial(ctx, actor, "L1", granja1, entity.Quantities{Females: 100, Males: 20}, false, "")
	require.NoError(t, err)

	created, err := engine.Create(ctx, actor, inventory.MovementInput{
		Type:        entity.MovementTypeTransfer,
		Origin:      &entity.MovementEndpoint{RecordID: origin.ID},
		Destination: &entity.MovementEndpoint{LotID: "L1", Location: granja2},
		Quantities:  entity.Quantities{Females: 40, Males: 5},
		Reason:      "traslado",
	})
	require.NoError(t, err)
	require.True(t, created.Success, "errores: %v", created.Errors)

	res, err := engine.Process(ctx, actor, created.MovementID, inventory.ProcessOptions{AutoCreateDestination: true})
	require.NoError(t, err)
	require.True(t, res.Success, "errores: %v", res.Errors)

	got, err := query.GetRecord(ctx, origin.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Quantities{Females: 60, Males: 15}, got.Quantities)
	assert.Equal(t, int64(2), got.Version)

	dest, err := query.ByLotAndLocation(ctx, "L1", granja2)
	require.NoError(t, err)
	assert.Equal(t, entity.Quantities{Females: 40, Males: 5}, dest.Quantities)
	assert.Empty(t, dest.Location.NucleusID, "NULL vuelve como componente vacío")

	mov, err := query.GetMovement(ctx, res.Movement.Number)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusCompleted, mov.Status)
	require.NotNil(t, mov.ProcessedAt)
	assert.Equal(t, dest.ID, mov.Destination.RecordID)

	entries, total, err := store.History().Search(ctx, repository.HistoryFilter{MovementID: created.MovementID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, origin.ID, entries[0].InventoryRecordID)
	assert.Less(t, entries[0].Sequence, entries[1].Sequence)

	trace, err := query.Traceability(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, trace.Consistent)
	assert.Equal(t, entity.Quantities{Females: 100, Males: 20}, trace.Current)
}

func TestStore_StockInsuficienteHaceRollback(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	log := zerolog.Nop()
	svc := inventory.NewInventoryService(store, store, log)
	engine := inventory.NewMovementEngine(store, store.Records(), store.Movements(), store, log)

	origin, err := svc.UpsertInitial(ctx, actor, "L1", granja1, entity.Quantities{Females: 100, Males: 20}, false, "")
	require.NoError(t, err)

	res, err := engine.QuickTransfer(ctx, actor, inventory.MovementInput{
		Origin:      &entity.MovementEndpoint{RecordID: origin.ID},
		Destination: &entity.MovementEndpoint{LotID: "L1", Location: granja2},
		Quantities:  entity.Quantities{Females: 150},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSUFFICIENT_STOCK", res.Code)

	_, total, err := store.Movements().Search(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Zero(t, total, "el movimiento creado dentro de la tx se descarta")
	_, total, err = store.History().Search(ctx, repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "solo la entrada inicial")
}

func TestStore_UpdateConVersionVieja(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	svc := inventory.NewInventoryService(store, store, zerolog.Nop())

	rec, err := svc.UpsertInitial(ctx, actor, "L1", granja1, entity.Quantities{Females: 10}, false, "")
	require.NoError(t, err)

	stale := *rec
	rec.Quantities.Females = 9
	require.NoError(t, store.Records().Update(ctx, rec))

	stale.Quantities.Females = 8
	err = store.Records().Update(ctx, &stale)
	require.Error(t, err)
	assert.Equal(t, "CONCURRENT_MODIFICATION", domain.Code(err))
}

func TestStore_DuplicadoActivoRechazado(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	rec := &entity.InventoryRecord{ID: "r-1", LotID: "L1", Location: granja1, Status: entity.RecordStatusActive, Version: 1}
	require.NoError(t, store.Records().Create(ctx, rec))
	dup := &entity.InventoryRecord{ID: "r-2", LotID: "L1", Location: granja1, Status: entity.RecordStatusActive, Version: 1}
	err := store.Records().Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, domain.IsRule(err), "la unicidad de activos es un fallo de negocio: %v", err)
}

func TestStore_TraspasosConcurrentes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	log := zerolog.Nop()
	svc := inventory.NewInventoryService(store, store, log)
	engine := inventory.NewMovementEngine(store, store.Records(), store.Movements(), store, log)

	origin, err := svc.UpsertInitial(ctx, actor, "L1", granja1, entity.Quantities{Mixed: 50}, false, "")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.QuickTransfer(ctx, actor, inventory.MovementInput{
				Origin:      &entity.MovementEndpoint{RecordID: origin.ID},
				Destination: &entity.MovementEndpoint{LotID: "L1", Location: granja2},
				Quantities:  entity.Quantities{Mixed: 10},
			})
			if err == nil && res.Success {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	got, err := store.Records().GetByID(ctx, origin.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Quantities.Mixed)
}

func TestStore_ResumenYEstadisticas(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	log := zerolog.Nop()
	svc := inventory.NewInventoryService(store, store, log)
	engine := inventory.NewMovementEngine(store, store.Records(), store.Movements(), store, log)
	query := inventory.NewQueryService(store.Records(), store.Movements(), store.History())

	_, err := svc.UpsertInitial(ctx, actor, "L1", granja1, entity.Quantities{Females: 30}, false, "")
	require.NoError(t, err)
	_, err = svc.UpsertInitial(ctx, actor, "L2", granja2, entity.Quantities{Females: 60, Males: 10}, false, "")
	require.NoError(t, err)
	_, err = engine.Liquidate(ctx, actor, entity.MovementEndpoint{LotID: "L2", Location: granja2}, entity.Quantities{Males: 10}, "venta", "")
	require.NoError(t, err)

	summary, err := query.SummaryByLocation(ctx, "")
	require.NoError(t, err)
	require.Len(t, summary, 1, "el registro liquidado sale del resumen")
	assert.True(t, summary[0].Location.Equal(granja1))
	assert.True(t, decimal.NewFromInt(100).Equal(summary[0].SharePct))

	stats, err := query.Statistics(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, entity.Quantities{Males: 10}, stats.BirdsMoved[entity.MovementTypeLiquidation])
}
