package repository

import (
	"context"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RecordFilter filtros para listar registros de inventario.
type RecordFilter struct {
	LotID     string
	FarmID    string
	NucleusID string
	ShedID    string
	Status    string
	Limit     int // 0 = sin límite
	Offset    int
}

// LocationSummary totales de aves activas por ubicación.
type LocationSummary struct {
	Location   entity.Location
	Lots       int
	Records    int
	Quantities entity.Quantities
	SharePct   decimal.Decimal // % del total general, 2 decimales
}

// InventoryRecordRepository define el puerto para leer/actualizar registros de inventario.
// Usado dentro de transacciones para garantizar consistencia.
// Los Get* devuelven (nil, nil) cuando no existe el registro.
type InventoryRecordRepository interface {
	Create(ctx context.Context, record *entity.InventoryRecord) error
	GetByID(ctx context.Context, id string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.InventoryRecord, error)
	// FindActive registro ACTIVE de un lote en una ubicación exacta.
	FindActive(ctx context.Context, lotID string, location entity.Location) (*entity.InventoryRecord, error)
	ListActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error)
	// Update persiste cantidades, ubicación y estado si la versión no cambió desde la lectura;
	// si cambió devuelve domain.ErrConcurrentModification. Incrementa record.Version.
	Update(ctx context.Context, record *entity.InventoryRecord) error
	Search(ctx context.Context, filter RecordFilter) ([]*entity.InventoryRecord, int, error)
	SummaryByLocation(ctx context.Context, farmID string) ([]LocationSummary, error)
}

// ComputeShares completa SharePct de cada resumen sobre el total general.
func ComputeShares(list []LocationSummary) {
	grand := 0
	for _, s := range list {
		grand += s.Quantities.Total()
	}
	if grand == 0 {
		for i := range list {
			list[i].SharePct = decimal.Zero
		}
		return
	}
	total := decimal.NewFromInt(int64(grand))
	hundred := decimal.NewFromInt(100)
	for i := range list {
		list[i].SharePct = decimal.NewFromInt(int64(list[i].Quantities.Total())).
			Mul(hundred).Div(total).Round(2)
	}
}
