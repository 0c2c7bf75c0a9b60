package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain/repository"
	"github.com/rs/zerolog"
)

// MovementHandler ciclo de vida de movimientos de aves (protegido).
type MovementHandler struct {
	engine *inventory.MovementEngine
	query  *inventory.QueryService
	log    zerolog.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(engine *inventory.MovementEngine, query *inventory.QueryService, log zerolog.Logger) *MovementHandler {
	return &MovementHandler{engine: engine, query: query, log: log}
}

func movementInput(in dto.CreateMovementRequest) inventory.MovementInput {
	return inventory.MovementInput{
		Type:        in.Type,
		Origin:      in.Origin,
		Destination: in.Destination,
		Quantities:  in.Quantities,
		Reason:      in.Reason,
		Notes:       in.Notes,
	}
}

// Create godoc
// @Summary      Crear movimiento (queda PENDING)
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMovementRequest  true  "type, origin, destination, quantities"
// @Success      201   {object}  dto.ResultDTO
// @Failure      400   {object}  dto.ResultDTO
// @Failure      404   {object}  dto.ResultDTO
// @Failure      409   {object}  dto.ResultDTO
// @Failure      422   {object}  dto.ResultDTO
// @Router       /api/movements [post]
func (h *MovementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.Create(c.Context(), GetActor(c), movementInput(in))
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}

// Validate godoc
// @Summary      Validar un movimiento sin crearlo
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMovementRequest  true  "mismo cuerpo que crear"
// @Success      200   {object}  dto.ValidationResponse
// @Router       /api/movements/validate [post]
func (h *MovementHandler) Validate(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	v, err := h.engine.Validate(c.Context(), GetActor(c), movementInput(in))
	if err != nil {
		return respondError(c, h.log, err)
	}
	errs := v.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(dto.ValidationResponse{Valid: v.Valid, Errors: errs})
}

// Get por id o número MOV-...
func (h *MovementHandler) Get(c *fiber.Ctx) error {
	mov, err := h.query.GetMovement(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MovementFrom(mov))
}

// Search godoc
// @Summary      Buscar movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        status     query  string  false  "PENDING | COMPLETED | CANCELLED"
// @Param        type       query  string  false  "TRANSFER | ADJUSTMENT | LIQUIDATION"
// @Param        lot_id     query  string  false  "Lote (origen o destino)"
// @Param        farm_id    query  string  false  "Granja (origen o destino)"
// @Param        user_id    query  string  false  "Solicitante"
// @Param        from       query  string  false  "RFC3339 o AAAA-MM-DD"
// @Param        to         query  string  false  "RFC3339 o AAAA-MM-DD"
// @Param        page       query  int     false  "Página"
// @Param        page_size  query  int     false  "Tamaño de página"
// @Success      200  {object}  dto.PageResponse[dto.MovementResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) Search(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	f := repository.MovementFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		LotID:  c.Query("lot_id"),
		FarmID: c.Query("farm_id"),
		UserID: c.Query("user_id"),
		From:   from,
		To:     to,
	}
	res, err := h.query.SearchMovements(c.Context(), f, pageOf(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(pageResponse(res, dto.MovementsFrom))
}

// Pending movimientos por procesar.
func (h *MovementHandler) Pending(c *fiber.Ctx) error {
	res, err := h.query.PendingMovements(c.Context(), pageOf(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(pageResponse(res, dto.MovementsFrom))
}

// Statistics conteos por estado y tipo, y aves movidas en ?from&to.
func (h *MovementHandler) Statistics(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	st, err := h.query.Statistics(c.Context(), from, to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.StatisticsResponse{
		From:          st.From,
		To:            st.To,
		Total:         st.Total,
		ByStatus:      st.ByStatus,
		ByType:        st.ByType,
		BirdsMoved:    st.BirdsMoved,
		CompletionPct: st.CompletionPct,
	})
}

// Process godoc
// @Summary      Procesar movimiento pendiente
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true   "ID del movimiento"
// @Param        body  body  dto.ProcessMovementRequest  false  "auto_create_destination"
// @Success      200   {object}  dto.ResultDTO
// @Failure      409   {object}  dto.ResultDTO
// @Failure      422   {object}  dto.ResultDTO
// @Router       /api/movements/{id}/process [post]
func (h *MovementHandler) Process(c *fiber.Ctx) error {
	var in dto.ProcessMovementRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.engine.Process(c.Context(), GetActor(c), c.Params("id"), inventory.ProcessOptions{
		AutoCreateDestination: in.AutoCreateDestination,
	})
	return respondResult(c, h.log, res, err, fiber.StatusOK)
}

// Cancel cancela un movimiento pendiente; el motivo es obligatorio.
func (h *MovementHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.Cancel(c.Context(), GetActor(c), c.Params("id"), in.Reason)
	return respondResult(c, h.log, res, err, fiber.StatusOK)
}

// QuickTransfer crea y procesa un traslado en una sola operación.
func (h *MovementHandler) QuickTransfer(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.QuickTransfer(c.Context(), GetActor(c), movementInput(in))
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}

func (h *MovementHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.Adjust(c.Context(), GetActor(c), inventory.AdjustInput{
		Direction:  in.Direction,
		Endpoint:   in.Endpoint,
		Quantities: in.Quantities,
		Reason:     in.Reason,
		Notes:      in.Notes,
	})
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}

func (h *MovementHandler) Liquidate(c *fiber.Ctx) error {
	var in dto.LiquidateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.Liquidate(c.Context(), GetActor(c), in.Origin, in.Quantities, in.Reason, in.Notes)
	return respondResult(c, h.log, res, err, fiber.StatusCreated)
}
