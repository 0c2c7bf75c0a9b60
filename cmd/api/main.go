package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/blob"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/memory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/metrics"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/postgres"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/sqlite"
	httpRouter "github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/interfaces/http"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/pkg/config"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/pkg/logger"
)

// backend persistencia elegida por STORAGE_DRIVER.
type backend struct {
	txRunner  inventory.TxRunner
	resolver  inventory.LocationResolver
	records   repository.InventoryRecordRepository
	movements repository.InventoryMovementRepository
	history   repository.HistoryRepository
	close     func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", store.Path()).Msg("inventario en SQLite")
		return &backend{
			txRunner:  store,
			resolver:  store,
			records:   store.Records(),
			movements: store.Movements(),
			history:   store.History(),
			close:     func() { _ = store.Close() },
		}, nil
	case config.StorageMemory:
		store := memory.NewStore()
		log.Warn().Msg("inventario en memoria: los datos se pierden al reiniciar")
		return &backend{
			txRunner:  store,
			resolver:  memory.NewOpenResolver(),
			records:   store.Records(),
			movements: store.Movements(),
			history:   store.History(),
			close:     func() {},
		}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	return &backend{
		txRunner:  postgres.NewTxRunner(pool),
		resolver:  postgres.NewLocationRepository(pool),
		records:   postgres.NewInventoryRecordRepository(pool),
		movements: postgres.NewInventoryMovementRepository(pool),
		history:   postgres.NewHistoryRepository(pool),
		close:     pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Str("blob", cfg.Blob.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("abrir almacenamiento")
	}
	defer be.close()

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Blob.Driver).Msg("abrir archivo de auditoría")
	}

	var engineOpts []inventory.EngineOption
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		engineOpts = append(engineOpts, inventory.WithMetrics(recorder))
	}

	engine := inventory.NewMovementEngine(be.txRunner, be.records, be.movements, be.resolver, log.Component("movements"), engineOpts...)
	inventorySvc := inventory.NewInventoryService(be.txRunner, be.resolver, log.Component("inventory"))
	query := inventory.NewQueryService(be.records, be.movements, be.history)
	archive := inventory.NewArchiveUseCase(query, blobs, log.Component("archive"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "San Marino - Inventario de Aves",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})
	if recorder != nil {
		app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory: inventorySvc,
		Engine:    engine,
		Query:     query,
		Archive:   archive,
		Log:       log.Component("http"),
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
