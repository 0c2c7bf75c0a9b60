package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory *inventory.InventoryService
	Engine    *inventory.MovementEngine
	Query     *inventory.QueryService
	Archive   *inventory.ArchiveUseCase // nil = exportación deshabilitada
	Log       zerolog.Logger
	JWTSecret string
}

// Router registra las rutas de la API. Todas bajo /api y protegidas con Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Inventory, deps.Query, deps.Log)
	inv.Get("/records", inventoryHandler.ListRecords)
	inv.Post("/records", inventoryHandler.Upsert)
	inv.Get("/records/:id", inventoryHandler.GetRecord)
	inv.Post("/records/:id/adjust", inventoryHandler.Adjust)
	inv.Post("/records/:id/relocate", inventoryHandler.Relocate)
	inv.Get("/lots/:lotId/records", inventoryHandler.ActiveByLot)
	inv.Get("/lots/:lotId/location", inventoryHandler.ByLotAndLocation)
	inv.Get("/summary", inventoryHandler.Summary)

	// Rutas estáticas antes de /:id.
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Engine, deps.Query, deps.Log)
	movements.Post("/", movementHandler.Create)
	movements.Get("/", movementHandler.Search)
	movements.Post("/validate", movementHandler.Validate)
	movements.Post("/quick-transfer", movementHandler.QuickTransfer)
	movements.Post("/adjust", movementHandler.Adjust)
	movements.Post("/liquidate", movementHandler.Liquidate)
	movements.Get("/pending", movementHandler.Pending)
	movements.Get("/statistics", movementHandler.Statistics)
	movements.Get("/:id", movementHandler.Get)
	movements.Post("/:id/process", movementHandler.Process)
	movements.Post("/:id/cancel", movementHandler.Cancel)

	lots := api.Group("/lots")
	lotHandler := NewLotHandler(deps.Engine, deps.Query, deps.Archive, deps.Log)
	lots.Post("/split", lotHandler.Split)
	lots.Post("/merge", lotHandler.Merge)
	lots.Get("/:lotId/traceability", lotHandler.Traceability)
	lots.Post("/:lotId/traceability/export", lotHandler.Export)
	lots.Get("/:lotId/traceability/exports", lotHandler.Exports)

	api.Get("/history", lotHandler.History)
}
