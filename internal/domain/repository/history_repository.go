package repository

import (
	"context"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
)

// HistoryFilter filtros del historial. Resultados en orden cronológico (created_at, sequence).
type HistoryFilter struct {
	LotID      string
	RecordID   string
	MovementID string
	UserID     string
	Kind       string
	From       *time.Time
	To         *time.Time
	Limit      int // 0 = sin límite
	Offset     int
}

// HistoryRepository puerto del historial: solo inserción y lectura, nunca update ni delete.
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	Search(ctx context.Context, filter HistoryFilter) ([]*entity.HistoryEntry, int, error)
}
