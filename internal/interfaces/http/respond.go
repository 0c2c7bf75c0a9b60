package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/dto"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/rs/zerolog"
)

// StatusFor código HTTP de un código de error de negocio.
func StatusFor(code string) int {
	switch code {
	case inventory.CodeOK:
		return fiber.StatusOK
	case "INVALID_REQUEST":
		return fiber.StatusBadRequest
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "INVALID_STATE", "INSUFFICIENT_STOCK", "CONCURRENT_MODIFICATION", "DUPLICATE":
		return fiber.StatusConflict
	case "DESTINATION_MISSING", "NO_OP_MOVEMENT":
		return fiber.StatusUnprocessableEntity
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// respondError fallos de negocio con su código; el resto se loguea y sale como 500 genérico.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	if domain.IsRule(err) {
		code := domain.Code(err)
		msgs := []string{err.Error()}
		var re *domain.RuleError
		if errors.As(err, &re) {
			msgs = re.Messages()
		}
		return c.Status(StatusFor(code)).JSON(dto.ErrorResponse{Code: code, Message: strings.Join(msgs, "; "), Errors: msgs})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Str("user_id", GetUserID(c)).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}

// respondResult Result del motor: éxito con okStatus, fallo con el status de su código.
func respondResult(c *fiber.Ctx, log zerolog.Logger, res inventory.Result, err error, okStatus int) error {
	if err != nil {
		return respondError(c, log, err)
	}
	status := okStatus
	if !res.Success {
		status = StatusFor(res.Code)
	}
	return c.Status(status).JSON(resultDTO(res))
}

func resultDTO(res inventory.Result) dto.ResultDTO {
	out := dto.ResultDTO{
		Success:     res.Success,
		Code:        res.Code,
		Errors:      res.Errors,
		MovementID:  res.MovementID,
		MovementIDs: res.MovementIDs,
		InventoryID: res.InventoryID,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if res.Movement != nil {
		m := dto.MovementFrom(res.Movement)
		out.Movement = &m
	}
	return out
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func pageOf(c *fiber.Ctx) inventory.Page {
	return inventory.Page{Page: c.QueryInt("page", 1), PageSize: c.QueryInt("page_size", inventory.DefaultPageSize)}
}

func pageResponse[T, R any](p inventory.PageResult[T], mapper func([]T) []R) dto.PageResponse[R] {
	return dto.PageResponse[R]{Items: mapper(p.Items), Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

// parseTimeQuery acepta RFC3339 o AAAA-MM-DD; con endOfDay la fecha sola cubre el día completo.
func parseTimeQuery(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, domain.NewRuleError(domain.ErrInvalidInput, "fecha inválida en '"+key+"': use RFC3339 o AAAA-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func timeRange(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	from, err := parseTimeQuery(c, "from", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseTimeQuery(c, "to", true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
