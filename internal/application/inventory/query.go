package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Paginación por defecto de listados.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page página solicitada (1-based).
type Page struct {
	Page     int
	PageSize int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.PageSize }

// PageResult resultado paginado.
type PageResult[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// MovementStatistics conteos y aves movidas en un rango.
type MovementStatistics struct {
	From          *time.Time
	To            *time.Time
	Total         int
	ByStatus      map[string]int
	ByType        map[string]int
	BirdsMoved    map[string]entity.Quantities // solo COMPLETED
	CompletionPct decimal.Decimal              // COMPLETED / total, 2 decimales
}

// QueryService lado de lectura: inventario, movimientos, historial y trazabilidad.
type QueryService struct {
	records   repository.InventoryRecordRepository
	movements repository.InventoryMovementRepository
	ledger    *Ledger
}

// NewQueryService construye la fachada de consultas.
func NewQueryService(
	records repository.InventoryRecordRepository,
	movements repository.InventoryMovementRepository,
	history repository.HistoryRepository,
) *QueryService {
	return &QueryService{
		records:   records,
		movements: movements,
		ledger:    NewLedger(history, records),
	}
}

// GetRecord registro por id.
func (q *QueryService) GetRecord(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	rec, err := q.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewRuleError(domain.ErrNotFound, "inventario no encontrado: "+id)
	}
	return rec, nil
}

// ActiveByLot registros activos de un lote.
func (q *QueryService) ActiveByLot(ctx context.Context, lotID string) ([]*entity.InventoryRecord, error) {
	return q.records.ListActiveByLot(ctx, lotID)
}

// ByLotAndLocation registro activo de un lote en una ubicación.
func (q *QueryService) ByLotAndLocation(ctx context.Context, lotID string, loc entity.Location) (*entity.InventoryRecord, error) {
	return NewRecordStore(q.records, nil).Get(ctx, lotID, loc)
}

// ListRecords listado filtrado y paginado.
func (q *QueryService) ListRecords(ctx context.Context, f repository.RecordFilter, p Page) (PageResult[*entity.InventoryRecord], error) {
	if f.Status != "" {
		f.Status = strings.ToUpper(f.Status)
		if !entity.IsValidRecordStatus(f.Status) {
			return PageResult[*entity.InventoryRecord]{}, domain.NewRuleError(domain.ErrInvalidInput, "estado de inventario inválido: "+f.Status)
		}
	}
	p = p.normalize()
	f.Limit, f.Offset = p.PageSize, p.offset()
	items, total, err := q.records.Search(ctx, f)
	if err != nil {
		return PageResult[*entity.InventoryRecord]{}, err
	}
	return PageResult[*entity.InventoryRecord]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// SummaryByLocation totales de aves activas por granja/núcleo/galpón, de mayor a menor.
func (q *QueryService) SummaryByLocation(ctx context.Context, farmID string) ([]repository.LocationSummary, error) {
	list, err := q.records.SummaryByLocation(ctx, farmID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Quantities.Total(), list[j].Quantities.Total()
		if a != b {
			return a > b
		}
		return list[i].Location.Key() < list[j].Location.Key()
	})
	return list, nil
}

// GetMovement por id o por número (MOV-...).
func (q *QueryService) GetMovement(ctx context.Context, idOrNumber string) (*entity.Movement, error) {
	var (
		mov *entity.Movement
		err error
	)
	if strings.HasPrefix(strings.ToUpper(idOrNumber), "MOV-") {
		mov, err = q.movements.GetByNumber(ctx, strings.ToUpper(idOrNumber))
	} else {
		mov, err = q.movements.GetByID(ctx, idOrNumber)
	}
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.NewRuleError(domain.ErrNotFound, "movimiento no encontrado: "+idOrNumber)
	}
	return mov, nil
}

// SearchMovements búsqueda filtrada y paginada, más recientes primero.
func (q *QueryService) SearchMovements(ctx context.Context, f repository.MovementFilter, p Page) (PageResult[*entity.Movement], error) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	var msgs []string
	if f.Status != "" && !entity.IsValidMovementStatus(f.Status) {
		msgs = append(msgs, "estado de movimiento inválido: "+f.Status)
	}
	if f.Type != "" && !entity.IsValidMovementType(f.Type) {
		msgs = append(msgs, "tipo de movimiento inválido: "+f.Type)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		msgs = append(msgs, "el rango de fechas es inválido: 'to' es anterior a 'from'")
	}
	if len(msgs) > 0 {
		return PageResult[*entity.Movement]{}, domain.NewRuleError(domain.ErrInvalidInput, msgs...)
	}
	p = p.normalize()
	f.Limit, f.Offset = p.PageSize, p.offset()
	items, total, err := q.movements.Search(ctx, f)
	if err != nil {
		return PageResult[*entity.Movement]{}, err
	}
	return PageResult[*entity.Movement]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// PendingMovements movimientos por procesar.
func (q *QueryService) PendingMovements(ctx context.Context, p Page) (PageResult[*entity.Movement], error) {
	return q.SearchMovements(ctx, repository.MovementFilter{Status: entity.MovementStatusPending}, p)
}

// Statistics estadísticas de movimientos; las tres consultas corren en paralelo.
func (q *QueryService) Statistics(ctx context.Context, from, to *time.Time) (*MovementStatistics, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "el rango de fechas es inválido: 'to' es anterior a 'from'")
	}
	stats := &MovementStatistics{From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := q.movements.CountByStatus(gctx, from, to)
		stats.ByStatus = m
		return err
	})
	g.Go(func() error {
		m, err := q.movements.CountByType(gctx, from, to)
		stats.ByType = m
		return err
	})
	g.Go(func() error {
		m, err := q.movements.MovedByType(gctx, from, to)
		stats.BirdsMoved = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	stats.CompletionPct = decimal.Zero
	if stats.Total > 0 {
		stats.CompletionPct = decimal.NewFromInt(int64(stats.ByStatus[entity.MovementStatusCompleted])).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(stats.Total))).
			Round(2)
	}
	return stats, nil
}

// SearchHistory historial filtrado y paginado, orden cronológico.
func (q *QueryService) SearchHistory(ctx context.Context, f repository.HistoryFilter, p Page) (PageResult[*entity.HistoryEntry], error) {
	f.Kind = strings.ToUpper(strings.TrimSpace(f.Kind))
	p = p.normalize()
	f.Limit, f.Offset = p.PageSize, p.offset()
	items, total, err := q.ledger.Search(ctx, f)
	if err != nil {
		return PageResult[*entity.HistoryEntry]{}, err
	}
	return PageResult[*entity.HistoryEntry]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// Traceability trazabilidad completa de un lote.
func (q *QueryService) Traceability(ctx context.Context, lotID string) (*LotTraceability, error) {
	return q.ledger.Traceability(ctx, lotID)
}
