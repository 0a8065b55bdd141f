package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindValidation:        fiber.StatusBadRequest,
	domain.KindNotFound:          fiber.StatusNotFound,
	domain.KindInsufficientStock: fiber.StatusConflict,
	domain.KindConflict:          fiber.StatusConflict,
	domain.KindForbidden:         fiber.StatusForbidden,
	domain.KindDuplicate:         fiber.StatusConflict,
}

// writeError traduce un error del dominio a status + dto.ErrorResponse.
// Los errores internos no exponen el detalle al cliente.
func writeError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: string(domain.KindInternal), Message: "error interno"})
	}
	resp := dto.ErrorResponse{Code: string(kind), Message: err.Error()}
	if le, ok := domain.AsLedgerError(err); ok {
		resp.Field = le.Field
		resp.Value = le.Value
		if le.Message != "" {
			resp.Message = le.Message
		}
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
