package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/blob"
)

func TestStatistics_ConteosYPorcentajeDeCompletados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "L1", granja1, entity.Quantities{Females: 100, Males: 10})

	// 2 completados, 1 cancelado, 1 pendiente.
	_, err := f.engine.QuickTransfer(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 10}))
	require.NoError(t, err)
	_, err = f.engine.Adjust(ctx, operador, inventory.AdjustInput{
		Direction: inventory.AdjustOut, Endpoint: entity.MovementEndpoint{LotID: "L1", Location: granja1},
		Quantities: entity.Quantities{Males: 2}, Reason: "mortalidad",
	})
	require.NoError(t, err)
	c, err := f.engine.Create(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 1}))
	require.NoError(t, err)
	_, err = f.engine.Cancel(ctx, operador, c.MovementID, "error de digitación")
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 1}))
	require.NoError(t, err)

	stats, err := f.query.Statistics(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[entity.MovementStatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[entity.MovementStatusCancelled])
	assert.Equal(t, 1, stats.ByStatus[entity.MovementStatusPending])
	assert.Equal(t, 3, stats.ByType[entity.MovementTypeTransfer])
	assert.Equal(t, entity.Quantities{Females: 10}, stats.BirdsMoved[entity.MovementTypeTransfer], "solo cuentan los completados")
	assert.Equal(t, entity.Quantities{Males: 2}, stats.BirdsMoved[entity.MovementTypeAdjustment])
	assert.True(t, decimal.NewFromInt(50).Equal(stats.CompletionPct), "got %s", stats.CompletionPct)

	pending, err := f.query.PendingMovements(ctx, inventory.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Total)
}

func TestStatistics_RangoInvertido(t *testing.T) {
	f := newFixture(t)
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := f.query.Statistics(context.Background(), &from, &to)
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))
}

func TestStatistics_SinMovimientos(t *testing.T) {
	f := newFixture(t)
	stats, err := f.query.Statistics(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.CompletionPct.IsZero())
}

func TestSearchMovements_FiltrosYPaginacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "L1", granja1, entity.Quantities{Females: 100})
	for i := 0; i < 3; i++ {
		_, err := f.engine.Create(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 1}))
		require.NoError(t, err)
	}

	page, err := f.query.SearchMovements(ctx, repository.MovementFilter{LotID: "L1", Status: "pending"}, inventory.Page{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)

	_, err = f.query.SearchMovements(ctx, repository.MovementFilter{Type: "TELETRANSPORTE"}, inventory.Page{})
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))

	_, err = f.query.ListRecords(ctx, repository.RecordFilter{Status: "VIVO"}, inventory.Page{})
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))
}

func TestGetMovement_PorNumero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "L1", granja1, entity.Quantities{Females: 100})
	res, err := f.engine.Create(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 1}))
	require.NoError(t, err)

	byNumber, err := f.query.GetMovement(ctx, strings.ToLower(res.Movement.Number))
	require.NoError(t, err)
	assert.Equal(t, res.MovementID, byNumber.ID)

	_, err = f.query.GetMovement(ctx, "MOV-20000101-00000000")
	assert.Equal(t, "NOT_FOUND", domain.Code(err))
}

func TestSummaryByLocation_OrdenDescendenteYPorcentaje(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "L1", granja1, entity.Quantities{Females: 25})
	f.seed(t, "L2", granja2, entity.Quantities{Females: 50, Males: 25})

	list, err := f.query.SummaryByLocation(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Location.Equal(granja2))
	assert.True(t, decimal.NewFromInt(75).Equal(list[0].SharePct), "got %s", list[0].SharePct)
	assert.True(t, decimal.NewFromInt(25).Equal(list[1].SharePct), "got %s", list[1].SharePct)

	only, err := f.query.SummaryByLocation(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, 1, only[0].Lots)
}

// ──────────────────────────────────────────────────────────────────────────────
// Archivo de trazabilidad
// ──────────────────────────────────────────────────────────────────────────────

func TestArchive_ExportaYListaTrazabilidad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "L1", granja1, entity.Quantities{Females: 100})
	_, err := f.engine.QuickTransfer(ctx, operador, transfer("L1", granja1, granja2, entity.Quantities{Females: 30}))
	require.NoError(t, err)

	store := blob.NewMemory()
	archive := inventory.NewArchiveUseCase(f.query, store, zerolog.Nop())

	info, err := archive.ExportLotHistory(ctx, operador, "L1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Key, "traceability/lot-L1/"))
	assert.Equal(t, "application/json", info.ContentType)
	assert.Positive(t, info.Size)

	_, rc, err := store.Get(ctx, info.Key)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	var body dto.TraceabilityResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "L1", body.LotID)
	assert.Equal(t, operador.UserID, body.ExportedBy)
	assert.True(t, body.Consistent)
	assert.Len(t, body.Steps, 3)

	list, err := archive.ListExports(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, info.Key, list[0].Key)

	none, err := archive.ListExports(ctx, "L2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchive_LoteInvalidoOInexistente(t *testing.T) {
	f := newFixture(t)
	archive := inventory.NewArchiveUseCase(f.query, blob.NewMemory(), zerolog.Nop())

	_, err := archive.ExportLotHistory(context.Background(), operador, "../L1")
	assert.Equal(t, "INVALID_REQUEST", domain.Code(err))

	_, err = archive.ExportLotHistory(context.Background(), operador, "L3")
	assert.Equal(t, "NOT_FOUND", domain.Code(err))
}

// failingBlobs almacenamiento cuyo Put siempre falla con putErr.
type failingBlobs struct {
	inventory.BlobStore
	putErr error
}

func (b failingBlobs) Put(context.Context, string, io.Reader, string) (inventory.BlobInfo, error) {
	return inventory.BlobInfo{}, b.putErr
}

func TestArchive_ClaveExistenteNoSeRegistraComoError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "L1", granja1, entity.Quantities{Females: 10})

	var buf bytes.Buffer
	dup := domain.NewRuleError(domain.ErrDuplicate, "ya existe el objeto")
	archive := inventory.NewArchiveUseCase(f.query, failingBlobs{BlobStore: blob.NewMemory(), putErr: dup}, zerolog.New(&buf))

	_, err := archive.ExportLotHistory(context.Background(), operador, "L1")
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE", domain.Code(err))
	assert.NotContains(t, buf.String(), `"level":"error"`, "un fallo de negocio no es error de infraestructura")
}

func TestArchive_FalloDelAlmacenamientoSeRegistra(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "L1", granja1, entity.Quantities{Females: 10})

	var buf bytes.Buffer
	archive := inventory.NewArchiveUseCase(f.query, failingBlobs{BlobStore: blob.NewMemory(), putErr: errors.New("disco lleno")}, zerolog.New(&buf))

	_, err := archive.ExportLotHistory(context.Background(), operador, "L1")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL", domain.Code(err))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "disco lleno")
}

func TestExportKey_FormatoUTC(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("COT", -5*3600))
	assert.Equal(t, "traceability/lot-L1/20240309T190507Z.json", inventory.ExportKey("L1", at))
}
