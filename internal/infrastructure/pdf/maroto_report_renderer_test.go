package pdf_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/pdf"
)

// ──── Helpers de test ────────────────────────────────────────────────────────

func strPtr(s string) *string { return &s }

func sampleAnalysis() *entity.FiscalAnalysis {
	issued := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &entity.FiscalAnalysis{
		ID:         "3f1c2a4e-8b7d-4c55-9a10-2f6e1d0b9c11",
		AccessKey:  "35240311222333000181550010000012341000012345",
		IssuerCNPJ: "11222333000181",
		IssuerName: "Comercial Paulista Ltda",
		IssueDate:  &issued,
		Status:     fiscal.StatusWithWarnings,
		Score:      97,
		Validation: &entity.ValidationReport{
			Summary: entity.ValidationSummary{Status: fiscal.StatusWithWarnings, Score: 97, WarningCount: 1},
			Findings: []entity.Finding{{
				Severity:      fiscal.SeverityWarning,
				Category:      fiscal.CategoryTax,
				Field:         "impostos.pis.aliquota",
				Description:   "Alíquota de PIS fora dos valores usuais",
				CurrentValue:  strPtr("2.00"),
				ExpectedValue: strPtr("0.65 ou 1.65"),
			}},
			ValidatorVersion: "1.0.0",
			RateTableVersion: "2024.1",
		},
		Metrics: &entity.InvoiceMetrics{
			Taxes:     entity.ComputedTaxes{Total: decimal.RequireFromString("259.78")},
			TaxBurden: entity.TaxBurden{InvoiceTotal: decimal.NewFromInt(1000), Percent: decimal.RequireFromString("25.98"), Class: fiscal.BurdenHigh},
			ICMS:      entity.ICMSAnalysis{Status: fiscal.ICMSCorrect},
		},
		CreatedAt: time.Date(2024, 3, 16, 10, 30, 0, 0, time.UTC),
	}
}

// ──── Tests ──────────────────────────────────────────────────────────────────

func TestRenderAnalysis_GeneraPDF(t *testing.T) {
	out, err := pdf.NewMarotoReportRenderer().RenderAnalysis(context.Background(), sampleAnalysis())
	require.NoError(t, err)
	require.Greater(t, len(out), 4)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderAnalysis_SinMetricasNiHallazgos(t *testing.T) {
	a := sampleAnalysis()
	a.Metrics = nil
	a.AccessKey = ""
	a.Validation.Findings = nil
	out, err := pdf.NewMarotoReportRenderer().RenderAnalysis(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderAnalysis_SinValidacion(t *testing.T) {
	_, err := pdf.NewMarotoReportRenderer().RenderAnalysis(context.Background(), &entity.FiscalAnalysis{})
	assert.Error(t, err)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 12.345,60", pdf.FormatBRL(decimal.RequireFromString("12345.6")))
	assert.Equal(t, "R$ 0,00", pdf.FormatBRL(decimal.Zero))
	assert.Equal(t, "13,70%", pdf.FormatPercent(decimal.RequireFromString("13.7")))
}
