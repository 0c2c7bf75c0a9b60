package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/entity"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/rs/zerolog"
)

// InventoryHandler registros de inventario: consultas y operaciones manuales (protegido).
type InventoryHandler struct {
	svc   *inventory.InventoryService
	query *inventory.QueryService
	log   zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc *inventory.InventoryService, query *inventory.QueryService, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, query: query, log: log}
}

// GetRecord godoc
// @Summary      Obtener registro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.InventoryRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/records/{id} [get]
func (h *InventoryHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.query.GetRecord(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RecordFrom(rec))
}

// ListRecords godoc
// @Summary      Listar registros de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        lot_id      query  string  false  "Lote"
// @Param        farm_id     query  string  false  "Granja"
// @Param        nucleus_id  query  string  false  "Núcleo"
// @Param        shed_id     query  string  false  "Galpón"
// @Param        status      query  string  false  "ACTIVE | TRANSFERRED | LIQUIDATED"
// @Param        page        query  int     false  "Página (1-based)"
// @Param        page_size   query  int     false  "Tamaño de página"
// @Success      200  {object}  dto.PageResponse[dto.InventoryRecordResponse]
// @Router       /api/inventory/records [get]
func (h *InventoryHandler) ListRecords(c *fiber.Ctx) error {
	f := repository.RecordFilter{
		LotID:     c.Query("lot_id"),
		FarmID:    c.Query("farm_id"),
		NucleusID: c.Query("nucleus_id"),
		ShedID:    c.Query("shed_id"),
		Status:    c.Query("status"),
	}
	res, err := h.query.ListRecords(c.Context(), f, pageOf(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(pageResponse(res, dto.RecordsFrom))
}

// ActiveByLot registros activos de un lote.
func (h *InventoryHandler) ActiveByLot(c *fiber.Ctx) error {
	list, err := h.query.ActiveByLot(c.Context(), c.Params("lotId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RecordsFrom(list))
}

// ByLotAndLocation registro activo del lote en ?farm_id&nucleus_id&shed_id.
func (h *InventoryHandler) ByLotAndLocation(c *fiber.Ctx) error {
	loc := entity.Location{FarmID: c.Query("farm_id"), NucleusID: c.Query("nucleus_id"), ShedID: c.Query("shed_id")}
	rec, err := h.query.ByLotAndLocation(c.Context(), c.Params("lotId"), loc)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RecordFrom(rec))
}

// Summary godoc
// @Summary      Resumen de aves activas por ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        farm_id  query  string  false  "Filtrar por granja"
// @Success      200  {array}  dto.LocationSummaryResponse
// @Router       /api/inventory/summary [get]
func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	list, err := h.query.SummaryByLocation(c.Context(), strings.TrimSpace(c.Query("farm_id")))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SummaryFrom(list))
}

// Upsert godoc
// @Summary      Cargar inventario inicial de un lote en una ubicación
// @Description  Con replace=true reemplaza las cantidades del registro activo; con sync=true
//
//	devuelve el registro existente en lugar de DUPLICATE.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UpsertInventoryRequest  true  "lot_id, location, quantities"
// @Success      201   {object}  dto.InventoryRecordResponse
// @Success      200   {object}  dto.InventoryRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/records [post]
func (h *InventoryHandler) Upsert(c *fiber.Ctx) error {
	var in dto.UpsertInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	actor := GetActor(c)
	if in.Sync {
		rec, created, err := h.svc.SyncFromLotIntake(c.Context(), actor, in.LotID, in.Location, in.Quantities)
		if err != nil {
			return respondError(c, h.log, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(dto.RecordFrom(rec))
	}
	rec, err := h.svc.UpsertInitial(c.Context(), actor, in.LotID, in.Location, in.Quantities, in.Replace, in.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := fiber.StatusCreated
	if in.Replace && rec.Version > 1 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.RecordFrom(rec))
}

// Adjust corrección absoluta por conteo físico.
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRecordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.svc.AdjustQuantities(c.Context(), GetActor(c), c.Params("id"), in.Quantities, in.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RecordFrom(rec))
}

// Relocate mueve el registro completo a otra ubicación.
func (h *InventoryHandler) Relocate(c *fiber.Ctx) error {
	var in dto.RelocateRecordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.svc.RelocateRecord(c.Context(), GetActor(c), c.Params("id"), in.Location, in.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.RecordFrom(rec))
}
