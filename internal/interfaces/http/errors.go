package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/domain"
)

// respondError traduce errores de dominio a dto.ErrorResponse.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_RECORD", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "análisis no encontrado"})
	case errors.Is(err, domain.ErrPersistenceOff):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "PERSISTENCE_DISABLED", Message: "el servicio funciona sin base de datos; consulta no disponible",
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return c.Status(fiber.StatusRequestTimeout).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// parseRecordError distingue JSON mal formado de registro sin secciones obligatorias.
func parseRecordError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrInvalidRecord) {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: se espera JSON"})
}
