package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/nfe-fiscal/internal/application/analytics"
	"github.com/jhoicas/nfe-fiscal/internal/application/auth"
	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	FiscalUC    *usecase.FiscalUseCase
	DashboardUC *appanalytics.DashboardUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
	AppName     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"service":     deps.AppName,
			"persistence": deps.FiscalUC.Persistent(),
		})
	})

	// Auth (público): client credentials -> JWT
	if deps.AuthUC != nil {
		authHandler := NewAuthHandler(deps.AuthUC)
		app.Post("/api/auth/token", authHandler.Token)
	}

	// Todas las rutas fiscales requieren Bearer Token
	fiscal := app.Group("/api/fiscal", AuthMiddleware(deps.JWTSecret))
	analysts := RequireRole(entity.RoleAdmin, entity.RoleAnalyst)

	fiscalHandler := NewFiscalHandler(deps.FiscalUC)
	fiscal.Post("/validate", fiscalHandler.Validate)
	fiscal.Post("/metrics", fiscalHandler.Metrics)
	fiscal.Post("/aggregate", fiscalHandler.Aggregate)
	fiscal.Post("/analyze", analysts, fiscalHandler.Analyze)

	analyses := fiscal.Group("/analyses", analysts)
	analyses.Get("/", fiscalHandler.ListAnalyses)
	analyses.Get("/:id", fiscalHandler.GetAnalysis)
	analyses.Get("/:id/pdf", fiscalHandler.GetAnalysisPDF)

	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	fiscal.Get("/dashboard", analysts, dashboardHandler.GetSummary)
}
