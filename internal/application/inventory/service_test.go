package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

func TestUpsertInitial_CreaConEntradaYRechazaDuplicado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.service.UpsertInitial(ctx, operador, "L1", granja1, entity.Quantities{Females: 500, Males: 50}, false, "")
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusActive, rec.Status)
	assert.Equal(t, int64(1), rec.Version)

	entries := f.history(t, repository.HistoryFilter{RecordID: rec.ID})
	require.Len(t, entries, 1)
	assert.Equal(t, entity.HistoryKindEntry, entries[0].Kind)
	assert.Equal(t, "Inventario inicial", entries[0].Reason)
	assert.Equal(t, 550, entries[0].TotalDelta())

	_, err = f.service.UpsertInitial(ctx, operador, "L1", granja1, entity.Quantities{Females: 1}, false, "")
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE", domain.Code(err))
}

func TestUpsertInitial_ReemplazoDejaAjuste(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.seed(t, "L1", granja1, entity.Quantities{Females: 500})

	updated, err := f.service.UpsertInitial(ctx, operador, "L1", granja1, entity.Quantities{Females: 480}, true, "recuento")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, int64(2), updated.Version)

	entries := f.history(t, repository.HistoryFilter{RecordID: rec.ID})
	require.Len(t, entries, 2)
	assert.Equal(t, entity.HistoryKindAdjustment, entries[1].Kind)
	assert.Equal(t, -20, entries[1].TotalDelta())
}

func TestUpsertInitial_ValidaEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.UpsertInitial(ctx, operador, "", entity.Location{}, entity.Quantities{Females: -1}, false, "")
	require.Error(t, err)
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))
	var re *domain.RuleError
	require.ErrorAs(t, err, &re)
	assert.Len(t, re.Messages(), 3, "se reportan todos los problemas juntos")

	_, err = f.service.UpsertInitial(ctx, operador, "L77", granja1, entity.Quantities{Females: 1}, false, "")
	assert.Equal(t, "NOT_FOUND", domain.Code(err))

	_, err = f.service.UpsertInitial(ctx, operador, "L1", entity.Location{FarmID: "G1", ShedID: "X"}, entity.Quantities{Females: 1}, false, "")
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))

	_, err = f.service.UpsertInitial(ctx, entity.Actor{}, "L1", granja1, entity.Quantities{Females: 1}, false, "")
	assert.Equal(t, "UNAUTHORIZED", domain.Code(err))
}

func TestSyncFromLotIntake_EsIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.service.SyncFromLotIntake(ctx, operador, "L1", granja1, entity.Quantities{Females: 300})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.service.SyncFromLotIntake(ctx, operador, "L1", granja1, entity.Quantities{Females: 999})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 300, second.Quantities.Females, "la sincronización no pisa un registro existente")
	assert.Len(t, f.history(t, repository.HistoryFilter{LotID: "L1"}), 1)
}

func TestAdjustQuantities_ConteoFisico(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.seed(t, "L1", granja1, entity.Quantities{Females: 100, Males: 10})

	_, err := f.service.AdjustQuantities(ctx, operador, rec.ID, entity.Quantities{Females: 97, Males: 10}, "")
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err), "el motivo es obligatorio")

	_, err = f.service.AdjustQuantities(ctx, operador, rec.ID, entity.Quantities{Females: 100, Males: 10}, "conteo")
	assert.Equal(t, "NO_OP_MOVEMENT", domain.Code(err))

	updated, err := f.service.AdjustQuantities(ctx, operador, rec.ID, entity.Quantities{Females: 97, Males: 11}, "conteo semanal")
	require.NoError(t, err)
	assert.Equal(t, entity.Quantities{Females: 97, Males: 11}, updated.Quantities)

	entries := f.history(t, repository.HistoryFilter{RecordID: rec.ID, Kind: entity.HistoryKindAdjustment})
	require.Len(t, entries, 1)
	assert.Equal(t, entity.Quantities{Females: -3, Males: 1}, entries[0].Delta())
	assert.Empty(t, entries[0].MovementID, "los ajustes manuales no generan movimiento")
}

func TestRelocateRecord_CambiaUbicacionSinCambiarCantidades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.seed(t, "L1", granja1, entity.Quantities{Females: 100})

	_, err := f.service.RelocateRecord(ctx, operador, rec.ID, entity.Location{FarmID: "G404"}, "")
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))

	moved, err := f.service.RelocateRecord(ctx, operador, rec.ID, granja2, "galpón en reparación")
	require.NoError(t, err)
	assert.True(t, moved.Location.Equal(granja2))
	assert.Equal(t, 100, moved.Quantities.Females)

	entries := f.history(t, repository.HistoryFilter{RecordID: rec.ID, Kind: entity.HistoryKindTransfer})
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].TotalDelta())
	assert.Contains(t, entries[0].Notes, "Reubicado desde granja G1")
}
