package inventory

import (
	"context"
	"io"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad para el motor de movimientos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
		historyRepo repository.HistoryRepository,
	) error) error
}

// LocationResolver colaborador externo que valida granjas/núcleos/galpones y lotes.
// Se consulta siempre ANTES de abrir la transacción.
type LocationResolver interface {
	IsValidLocation(ctx context.Context, location entity.Location) (bool, error)
	LotExists(ctx context.Context, lotID string) (bool, error)
}

// MetricsRecorder registra el resultado de cada operación del motor.
// result es el código de Result ("OK", "INSUFFICIENT_STOCK", "INTERNAL", ...).
type MetricsRecorder interface {
	ObserveOperation(operation, movementType, result string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, string, time.Duration) {}

// BlobInfo metadatos de un objeto guardado.
type BlobInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobStore almacenamiento de objetos para el archivo de auditoría (fs, s3, memoria).
// Put no sobrescribe: falla si la clave ya existe.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (BlobInfo, error)
	Get(ctx context.Context, key string) (BlobInfo, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
