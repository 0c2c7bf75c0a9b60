package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/rs/zerolog"
)

// LotHandler operaciones entre lotes, historial y trazabilidad (protegido).
type LotHandler struct {
	engine  *inventory.MovementEngine
	query   *inventory.QueryService
	archive *inventory.ArchiveUseCase
	log     zerolog.Logger
}

// NewLotHandler construye el handler. archive puede ser nil (exportación deshabilitada).
func NewLotHandler(engine *inventory.MovementEngine, query *inventory.QueryService, archive *inventory.ArchiveUseCase, log zerolog.Logger) *LotHandler {
	return &LotHandler{engine: engine, query: query, archive: archive, log: log}
}

// Split godoc
// @Summary      Dividir lote: mueve parte de las aves a otro lote
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SplitLotRequest  true  "source_lot_id, dest_lot_id, quantities"
// @Success      201   {object}  dto.ResultDTO
// @Failure      409   {object}  dto.ResultDTO
// @Router       /api/lots/split [post]
func (h *LotHandler) Split(c *fiber.Ctx) error {
	var in dto.SplitLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.SplitLot(c.Context(), GetActor(c), inventory.SplitLotInput{
		SourceLotID:  in.SourceLotID,
		DestLotID:    in.DestLotID,
		Quantities:   in.Quantities,
		Reason:       in.Reason,
		Notes:        in.Notes,
		Location:     in.Location,
		DestLocation: in.DestLocation,
	})
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}

// Merge godoc
// @Summary      Fusionar lotes: todas las aves activas del origen pasan al destino
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MergeLotsRequest  true  "source_lot_id, dest_lot_id"
// @Success      201   {object}  dto.ResultDTO
// @Router       /api/lots/merge [post]
func (h *LotHandler) Merge(c *fiber.Ctx) error {
	var in dto.MergeLotsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.MergeLots(c.Context(), GetActor(c), inventory.MergeLotsInput{
		SourceLotID:  in.SourceLotID,
		DestLotID:    in.DestLotID,
		Reason:       in.Reason,
		DestLocation: in.DestLocation,
	})
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}

// History historial filtrado, en orden cronológico.
func (h *LotHandler) History(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	f := repository.HistoryFilter{
		LotID:      c.Query("lot_id"),
		RecordID:   c.Query("record_id"),
		MovementID: c.Query("movement_id"),
		UserID:     c.Query("user_id"),
		Kind:       c.Query("kind"),
		From:       from,
		To:         to,
	}
	res, err := h.query.SearchHistory(c.Context(), f, pageOf(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(pageResponse(res, dto.HistoryFrom))
}

// Traceability godoc
// @Summary      Trazabilidad completa de un lote
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        lotId  path  string  true  "Lote"
// @Success      200  {object}  dto.TraceabilityResponse
// @Router       /api/lots/{lotId}/traceability [get]
func (h *LotHandler) Traceability(c *fiber.Ctx) error {
	trace, err := h.query.Traceability(c.Context(), c.Params("lotId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(trace.DTO())
}

// Export guarda la trazabilidad del lote en el archivo de auditoría.
func (h *LotHandler) Export(c *fiber.Ctx) error {
	if h.archive == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "ARCHIVE_DISABLED", Message: "archivo de auditoría no configurado"})
	}
	info, err := h.archive.ExportLotHistory(c.Context(), GetActor(c), c.Params("lotId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(exportFrom(info))
}

// Exports exportaciones previas del lote.
func (h *LotHandler) Exports(c *fiber.Ctx) error {
	if h.archive == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "ARCHIVE_DISABLED", Message: "archivo de auditoría no configurado"})
	}
	list, err := h.archive.ListExports(c.Context(), c.Params("lotId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]dto.ExportResponse, 0, len(list))
	for _, info := range list {
		out = append(out, exportFrom(info))
	}
	return c.JSON(out)
}

func exportFrom(info inventory.BlobInfo) dto.ExportResponse {
	return dto.ExportResponse{Key: info.Key, Size: info.Size, ContentType: info.ContentType, LastModified: info.LastModified}
}
