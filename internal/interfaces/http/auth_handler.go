package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-fiscal/internal/application/auth"
	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/domain"
)

// AuthHandler emite tokens para clientes de la API.
type AuthHandler struct {
	uc *auth.AuthUseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Token godoc
// @Summary      Emitir token de cliente
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TokenRequest  true  "client_id, client_secret"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in dto.TokenRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.IssueToken(in)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
		}
		return respondError(c, err)
	}
	return c.JSON(out)
}
