package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/nfe-fiscal/internal/application/analytics"
	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
)

// DashboardHandler maneja el resumen de análisis fiscales.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary godoc
// @Summary      Resumen de conformidad del período
// @Description  Conteo por estado, score medio, montos, carga tributaria y hallazgos más frecuentes.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Param        start_date  query  string  false  "Inicio del período (YYYY-MM-DD). Default: primer día del mes."
// @Param        end_date    query  string  false  "Fin del período (YYYY-MM-DD). Default: hoy."
// @Success      200  {object}  dto.FiscalDashboardDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/fiscal/dashboard [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	var req dto.PeriodRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos",
		})
	}
	summary, err := h.uc.GetSummary(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
