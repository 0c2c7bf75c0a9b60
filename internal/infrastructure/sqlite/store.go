package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	_ "modernc.org/sqlite" // driver sqlite en Go puro
)

//go:embed schema.sql
var schemaSQL string

var (
	_ inventory.TxRunner         = (*Store)(nil)
	_ inventory.LocationResolver = (*Store)(nil)
)

// timeLayout fijo en UTC para que el orden lexicográfico coincida con el cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// dbtx lo que comparten *sql.DB y *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store inventario embebido en un archivo SQLite. Una sola conexión: un escritor a la vez.
type Store struct {
	db   *sql.DB
	path string
}

// Open abre (o crea) la base y aplica el esquema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "inventario.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close cierra la base.
func (s *Store) Close() error { return s.db.Close() }

// DB expone la conexión (tests de integración).
func (s *Store) DB() *sql.DB { return s.db }

// Path ruta configurada.
func (s *Store) Path() string { return s.path }

// Run ejecuta fn dentro de una transacción SQLite.
func (s *Store) Run(ctx context.Context, fn func(
	recordRepo repository.InventoryRecordRepository,
	movRepo repository.InventoryMovementRepository,
	historyRepo repository.HistoryRepository,
) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&RecordRepo{q: tx}, &MovementRepo{q: tx}, &HistoryRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// Records repositorio fuera de transacción.
func (s *Store) Records() *RecordRepo { return &RecordRepo{q: s.db} }

// Movements repositorio fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{q: s.db} }

// History repositorio fuera de transacción.
func (s *Store) History() *HistoryRepo { return &HistoryRepo{q: s.db} }

// SeedLocation registra granja, núcleo y galpón en el catálogo (idempotente).
func (s *Store) SeedLocation(ctx context.Context, loc entity.Location) error {
	loc = loc.Normalize()
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO farms (id) VALUES (?)`, loc.FarmID); err != nil {
		return wrapErr("seed farm", err)
	}
	if loc.NucleusID != "" {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO nuclei (farm_id, id) VALUES (?, ?)`, loc.FarmID, loc.NucleusID); err != nil {
			return wrapErr("seed nucleus", err)
		}
	}
	if loc.ShedID != "" {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheds (farm_id, nucleus_id, id) VALUES (?, ?, ?)`,
			loc.FarmID, loc.NucleusID, loc.ShedID); err != nil {
			return wrapErr("seed shed", err)
		}
	}
	return nil
}

// SeedLot registra un lote activo (idempotente).
func (s *Store) SeedLot(ctx context.Context, lotID string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO lots (id) VALUES (?)`, lotID); err != nil {
		return wrapErr("seed lot", err)
	}
	return nil
}

// IsValidLocation la granja debe existir y estar activa; núcleo y galpón, si vienen, deben pertenecerle.
func (s *Store) IsValidLocation(ctx context.Context, loc entity.Location) (bool, error) {
	loc = loc.Normalize()
	if loc.IsZero() {
		return false, nil
	}
	query := `
		SELECT EXISTS (SELECT 1 FROM farms WHERE id = ? AND active = 1)
		   AND (? = '' OR EXISTS (SELECT 1 FROM nuclei WHERE farm_id = ? AND id = ?))
		   AND (? = '' OR EXISTS (SELECT 1 FROM sheds WHERE farm_id = ? AND nucleus_id = ? AND id = ?))`
	var ok bool
	err := s.db.QueryRowContext(ctx, query,
		loc.FarmID,
		loc.NucleusID, loc.FarmID, loc.NucleusID,
		loc.ShedID, loc.FarmID, loc.NucleusID, loc.ShedID,
	).Scan(&ok)
	if err != nil {
		return false, wrapErr("validate location", err)
	}
	return ok, nil
}

// LotExists el lote existe y está activo.
func (s *Store) LotExists(ctx context.Context, lotID string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM lots WHERE id = ? AND active = 1)`, lotID).Scan(&ok); err != nil {
		return false, wrapErr("lot exists", err)
	}
	return ok, nil
}

// wrapErr agrega contexto y traduce errores de SQLite: índice de registro activo y base ocupada
// son conflictos de concurrencia; otra violación de unicidad es un duplicado.
func wrapErr(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ux_bird_inventory_active"):
		return fmt.Errorf("%s: registro activo duplicado: %w", op, domain.ErrConcurrentModification)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrConcurrentModification)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type where struct {
	clauses []string
	args    []any
}

// add agrega cond; cada "?" de cond recibe arg.
func (w *where) add(cond string, arg any) {
	for i := 0; i < strings.Count(cond, "?"); i++ {
		w.args = append(w.args, arg)
	}
	w.clauses = append(w.clauses, cond)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) page(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if limit <= 0 {
		limit = -1
	}
	w.args = append(w.args, limit, offset)
	return " LIMIT ? OFFSET ?"
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
