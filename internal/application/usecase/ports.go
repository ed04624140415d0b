package usecase

import (
	"context"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
)

// AnalysisTxRunner ejecuta fn dentro de una transacción con el repositorio atado a ella.
type AnalysisTxRunner interface {
	RunAnalysis(ctx context.Context, fn func(repo repository.AnalysisRepository) error) error
}

// ReportRenderer genera el informe de conformidad (PDF) de un análisis.
type ReportRenderer interface {
	RenderAnalysis(ctx context.Context, a *entity.FiscalAnalysis) ([]byte, error)
}
