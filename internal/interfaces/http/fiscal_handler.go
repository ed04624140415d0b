package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
)

// FiscalHandler maneja validación, métricas y consultas de análisis de NF-e.
type FiscalHandler struct {
	uc *usecase.FiscalUseCase
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(uc *usecase.FiscalUseCase) *FiscalHandler {
	return &FiscalHandler{uc: uc}
}

// Validate godoc
// @Summary      Valida una NF-e
// @Description  Ejecuta las seis categorías de reglas y devuelve hallazgos, estado y score de conformidad.
// @Tags         fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        nota  body      entity.InvoiceRecord  true  "Nota fiscal extraída"
// @Success      200   {object}  entity.ValidationReport
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/fiscal/validate [post]
func (h *FiscalHandler) Validate(c *fiber.Ctx) error {
	var rec entity.InvoiceRecord
	if err := c.BodyParser(&rec); err != nil {
		return parseRecordError(c, err)
	}
	rep, err := h.uc.Validate(c.UserContext(), &rec)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rep)
}

// Metrics godoc
// @Summary      Métricas fiscales de una NF-e
// @Description  Carga tributaria, créditos PIS/COFINS, cruce ICMS, comparación de regímenes y calidad de datos.
// @Tags         fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        nota  body      entity.InvoiceRecord  true  "Nota fiscal extraída"
// @Success      200   {object}  entity.InvoiceMetrics
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/fiscal/metrics [post]
func (h *FiscalHandler) Metrics(c *fiber.Ctx) error {
	var rec entity.InvoiceRecord
	if err := c.BodyParser(&rec); err != nil {
		return parseRecordError(c, err)
	}
	m, err := h.uc.Metrics(c.UserContext(), &rec)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(m)
}

// Analyze godoc
// @Summary      Valida, calcula y guarda
// @Description  Validación y métricas en una sola llamada. Con base de datos el análisis se persiste (201); sin ella se devuelve sin id (200).
// @Tags         fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        nota  body      entity.InvoiceRecord  true  "Nota fiscal extraída"
// @Success      200   {object}  dto.AnalysisResponse
// @Success      201   {object}  dto.AnalysisResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/fiscal/analyze [post]
func (h *FiscalHandler) Analyze(c *fiber.Ctx) error {
	var rec entity.InvoiceRecord
	if err := c.BodyParser(&rec); err != nil {
		return parseRecordError(c, err)
	}
	resp, err := h.uc.Analyze(c.UserContext(), &rec, GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if resp.Persisted {
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
	return c.JSON(resp)
}

// Aggregate godoc
// @Summary      Métricas consolidadas de un lote
// @Description  Cada nota se decodifica por separado: las inválidas se listan en notas_rejeitadas y el resto se agrega.
// @Tags         fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        lote  body      dto.AggregateRequest  true  "Lote {notas: [...]}"
// @Success      200   {object}  dto.AggregateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/fiscal/aggregate [post]
func (h *FiscalHandler) Aggregate(c *fiber.Ctx) error {
	var in dto.AggregateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: se espera {\"notas\": [...]}"})
	}
	resp, err := h.uc.Aggregate(c.UserContext(), in.Invoices)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// ListAnalyses godoc
// @Summary      Lista análisis guardados
// @Tags         fiscal
// @Security     Bearer
// @Produce      json
// @Param        status      query  string  false  "valido | invalido | com_avisos"
// @Param        cnpj        query  string  false  "CNPJ del emisor"
// @Param        start_date  query  string  false  "Inicio (YYYY-MM-DD)"
// @Param        end_date    query  string  false  "Fin (YYYY-MM-DD)"
// @Param        limit       query  int     false  "Máx. 100 (default 20)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.AnalysisListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/fiscal/analyses [get]
func (h *FiscalHandler) ListAnalyses(c *fiber.Ctx) error {
	var req dto.AnalysisListRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "INVALID_PARAMS", Message: "parámetros de consulta inválidos",
		})
	}
	out, err := h.uc.ListAnalyses(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetAnalysis godoc
// @Summary      Detalle de un análisis
// @Tags         fiscal
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del análisis (UUID)"
// @Success      200  {object}  entity.FiscalAnalysis
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/fiscal/analyses/{id} [get]
func (h *FiscalHandler) GetAnalysis(c *fiber.Ctx) error {
	a, err := h.uc.GetAnalysis(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(a)
}

// GetAnalysisPDF godoc
// @Summary      Informe de conformidad en PDF
// @Tags         fiscal
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del análisis (UUID)"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/fiscal/analyses/{id}/pdf [get]
func (h *FiscalHandler) GetAnalysisPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.uc.AnalysisPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}
