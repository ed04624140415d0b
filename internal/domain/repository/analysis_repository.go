package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// AnalysisFilter filtros del listado de análisis. Valores cero = sin filtro.
type AnalysisFilter struct {
	Status     fiscal.ValidationStatus
	IssuerCNPJ string
	From, To   time.Time // sobre created_at
	Limit      int
	Offset     int
}

// DashboardTotals agregados de los análisis persistidos en un período.
type DashboardTotals struct {
	Analyses     int
	InvoiceTotal decimal.Decimal
	TotalTaxes   decimal.Decimal
	AverageScore decimal.Decimal
	ByStatus     map[fiscal.ValidationStatus]int
}

// FindingCount cantidad de hallazgos por (severidad, categoría, campo).
type FindingCount struct {
	Severity fiscal.Severity
	Category fiscal.Category
	Field    string
	Count    int
}

// AnalysisRepository persistencia de análisis fiscales.
// La tabla principal guarda los árboles como JSONB; los hallazgos se
// desnormalizan en fiscal_findings para el dashboard.
type AnalysisRepository interface {
	// Save inserta el análisis y sus hallazgos. Debe ejecutarse dentro de una tx
	// (ver AnalysisTxRunner) para que ambas tablas queden consistentes.
	Save(ctx context.Context, a *entity.FiscalAnalysis) error

	// GetByID devuelve el análisis completo o (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.FiscalAnalysis, error)

	// List devuelve solo los campos indexados (sin árboles) y el total sin paginar.
	List(ctx context.Context, f AnalysisFilter) ([]entity.FiscalAnalysis, int, error)

	// ── Métodos del Dashboard ─────────────────────────────────────────────────

	GetDashboardTotals(ctx context.Context, from, to time.Time) (*DashboardTotals, error)

	// GetTopFindings devuelve los `limit` hallazgos más frecuentes del período.
	GetTopFindings(ctx context.Context, from, to time.Time, limit int) ([]FindingCount, error)
}
