// Package analytics contiene el caso de uso del dashboard sobre los análisis
// fiscales persistidos.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
)

const dashboardTopFindings = 10 // hallazgos más frecuentes del widget

// DashboardUseCase resume los análisis guardados en un período.
//
// Fuente de datos: AnalysisRepository (consultas read-only). Sin repositorio
// responde domain.ErrPersistenceOff.
type DashboardUseCase struct {
	repo repository.AnalysisRepository
	now  func() time.Time
}

// NewDashboardUseCase construye el caso de uso. repo puede ser nil (modo sin estado).
func NewDashboardUseCase(repo repository.AnalysisRepository) *DashboardUseCase {
	return &DashboardUseCase{repo: repo, now: time.Now}
}

// GetSummary construye el FiscalDashboardDTO del período.
//
// Dos llamadas en paralelo:
//  1. GetDashboardTotals → conteos por status, score medio y montos
//  2. GetTopFindings     → problemas más frecuentes
func (uc *DashboardUseCase) GetSummary(ctx context.Context, req dto.PeriodRequest) (*dto.FiscalDashboardDTO, error) {
	if uc.repo == nil {
		return nil, domain.ErrPersistenceOff
	}
	from, to, err := req.Resolve(uc.now())
	if err != nil {
		return nil, err
	}

	type totalsResult struct {
		totals *repository.DashboardTotals
		err    error
	}
	type findingsResult struct {
		rows []repository.FindingCount
		err  error
	}
	totalsCh := make(chan totalsResult, 1)
	findingsCh := make(chan findingsResult, 1)

	go func() {
		t, err := uc.repo.GetDashboardTotals(ctx, from, to)
		totalsCh <- totalsResult{t, err}
	}()
	go func() {
		rows, err := uc.repo.GetTopFindings(ctx, from, to, dashboardTopFindings)
		findingsCh <- findingsResult{rows, err}
	}()

	totals := <-totalsCh
	findings := <-findingsCh
	if totals.err != nil {
		return nil, fmt.Errorf("dashboard: totales: %w", totals.err)
	}
	if findings.err != nil {
		return nil, fmt.Errorf("dashboard: hallazgos: %w", findings.err)
	}

	t := totals.totals
	out := &dto.FiscalDashboardDTO{
		StartDate:    from.Format(time.DateOnly),
		EndDate:      to.Format(time.DateOnly),
		DateLabel:    periodLabel(from, to),
		Analyses:     t.Analyses,
		ByStatus:     make(map[string]int, 3),
		AverageScore: t.AverageScore.Round(2),
		InvoiceTotal: t.InvoiceTotal.Round(2),
		TotalTaxes:   t.TotalTaxes.Round(2),
		TaxBurden:    fiscal.Percent(t.TotalTaxes, t.InvoiceTotal),
		TopFindings:  make([]dto.FindingCountDTO, 0, len(findings.rows)),
	}
	for _, st := range []fiscal.ValidationStatus{fiscal.StatusValid, fiscal.StatusWithWarnings, fiscal.StatusInvalid} {
		out.ByStatus[string(st)] = t.ByStatus[st]
	}
	for _, f := range findings.rows {
		out.TopFindings = append(out.TopFindings, dto.FindingCountDTO{
			Severity: string(f.Severity),
			Category: string(f.Category),
			Field:    f.Field,
			Count:    f.Count,
		})
	}
	return out, nil
}

var monthsPT = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// periodLabel "Março 2024" si el período cae en un mes, si no "01/03/2024 a 15/04/2024".
func periodLabel(from, to time.Time) string {
	if from.Year() == to.Year() && from.Month() == to.Month() {
		return fmt.Sprintf("%s %d", monthsPT[from.Month()-1], from.Year())
	}
	return from.Format("02/01/2006") + " a " + to.Format("02/01/2006")
}
