// Package pdf genera el informe de conformidad fiscal de un análisis.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + CNPJ  │  Estado + Score + Fecha      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CHAVE DE ACESSO en bloques de 4 + QR                        │
//	│  RESUMEN: críticos / errores / avisos / informativos         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Severidad | Categoría | Campo | Descripción          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  MÉTRICAS: carga tributaria, cruce ICMS, créditos            │
//	│  FOOTER: versiones, ID del análisis                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorRed     = &props.Color{Red: 170, Green: 20, Blue: 20}
	colorAmber   = &props.Color{Red: 190, Green: 120, Blue: 0}
	colorGreen   = &props.Color{Red: 20, Green: 120, Blue: 50}
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// ── Renderer ──────────────────────────────────────────────────────────────────

var _ usecase.ReportRenderer = (*MarotoReportRenderer)(nil)

// MarotoReportRenderer implementa usecase.ReportRenderer usando Maroto v2.
type MarotoReportRenderer struct{}

// NewMarotoReportRenderer construye el renderer.
func NewMarotoReportRenderer() *MarotoReportRenderer { return &MarotoReportRenderer{} }

// RenderAnalysis genera el PDF y devuelve sus bytes.
func (g *MarotoReportRenderer) RenderAnalysis(_ context.Context, a *entity.FiscalAnalysis) ([]byte, error) {
	if a == nil || a.Validation == nil {
		return nil, fmt.Errorf("pdf: análisis sin validación")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Relatório de conformidade fiscal", true).
		WithAuthor(nonEmpty(a.IssuerName, "nfe-fiscal"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(a))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	if a.AccessKey != "" {
		m.AddRows(accessKeyRow(a.AccessKey))
	}
	m.AddRows(summaryRow(a.Validation.Summary))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(findingRows(a.Validation.Findings)...)

	if a.Metrics != nil {
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(metricsRows(a.Metrics)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(a))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor (izq) y veredicto (der).
func headerRow(a *entity.FiscalAnalysis) core.Row {
	emission := "—"
	if a.IssueDate != nil {
		emission = a.IssueDate.Format("02/01/2006")
	}
	return row.New(20).Add(
		col.New(7).Add(
			text.New(nonEmpty(a.IssuerName, "Emitente não informado"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("CNPJ: "+nonEmpty(a.IssuerCNPJ, "—"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
			text.New("Emissão: "+emission, props.Text{
				Size: 9, Top: 14, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("RELATÓRIO DE CONFORMIDADE FISCAL", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(statusLabel(a.Status), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
				Color: statusColor(a.Status),
			}),
			text.New(fmt.Sprintf("Score: %d/100", a.Score), props.Text{
				Size: 9, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// accessKeyRow: chave de acesso en bloques de 4 (como en el DANFE) + QR.
func accessKeyRow(key string) core.Row {
	return row.New(28).Add(
		col.New(9).Add(
			text.New("CHAVE DE ACESSO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}),
			text.New(strings.Join(splitEvery(key, 4), " "), props.Text{
				Size: 9, Top: 9,
			}),
		),
		col.New(3).Add(code.NewQr(key, props.Rect{Percent: 90, Center: true})),
	)
}

// summaryRow: contadores por severidad.
func summaryRow(s entity.ValidationSummary) core.Row {
	cell := func(label string, n int, c *props.Color) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(fmt.Sprint(n), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Center, Color: c, Top: 5,
			}),
		)
	}
	return row.New(14).Add(
		cell("Críticos", s.CriticalCount, colorRed),
		cell("Erros", s.ErrorCount, colorRed),
		cell("Avisos", s.WarningCount, colorAmber),
		cell("Informativos", s.InfoCount, colorGray),
	)
}

// tableHeaderRow: cabecera de la tabla de hallazgos con fondo azul.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Severidade", 2, align.Left),
		h("Categoria", 2, align.Left),
		h("Campo", 3, align.Left),
		h("Descrição", 5, align.Left),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// findingRows: una fila por hallazgo, en orden de detección.
func findingRows(findings []entity.Finding) []core.Row {
	if len(findings) == 0 {
		return []core.Row{row.New(8).Add(col.New(12).Add(
			text.New("Nenhum problema encontrado.", props.Text{
				Size: 8, Align: align.Center, Top: 2, Color: colorGreen,
			}),
		))}
	}
	rows := make([]core.Row, 0, len(findings))
	for _, f := range findings {
		desc := f.Description
		if f.ExpectedValue != nil {
			desc += " (esperado: " + *f.ExpectedValue + ")"
		}
		rows = append(rows, row.New(10).Add(
			col.New(2).Add(text.New(string(f.Severity), props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1, Left: 1, Color: severityColor(f.Severity),
			})),
			col.New(2).Add(text.New(string(f.Category), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(f.Field, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(5).Add(text.New(desc, props.Text{Size: 7, Top: 1, Left: 1, Right: 1})),
		))
	}
	return rows
}

// metricsRows: bloque de métricas en dos columnas etiqueta/valor.
func metricsRows(m *entity.InvoiceMetrics) []core.Row {
	pair := func(label, value string) core.Row {
		return row.New(6).Add(
			col.New(6).Add(text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2,
			})),
			col.New(6).Add(text.New(value, props.Text{Size: 8, Left: 1})),
		)
	}
	return []core.Row{
		row.New(7).Add(col.New(12).Add(text.New("MÉTRICAS FISCAIS", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
		pair("Valor total da NF:", FormatBRL(m.TaxBurden.InvoiceTotal)),
		pair("Total de impostos:", FormatBRL(m.Taxes.Total)),
		pair("Carga tributária:", FormatPercent(m.TaxBurden.Percent)+" ("+string(m.TaxBurden.Class)+")"),
		pair("ICMS cobrado / esperado:", FormatBRL(m.ICMS.Charged)+" / "+FormatBRL(m.ICMS.Expected)+" ("+string(m.ICMS.Status)+")"),
		pair("Créditos recuperáveis (mês / ano):", FormatBRL(m.Credits.MonthlyRecoverable)+" / "+FormatBRL(m.Credits.AnnualRecoverable)),
		pair("Integridade dos dados:", string(m.DataQuality.Integrity)),
	}
}

// footerRow: trazabilidad del análisis.
func footerRow(a *entity.FiscalAnalysis) core.Row {
	info := fmt.Sprintf("Validador %s   |   Tabela de alíquotas %s   |   Análise %s   |   Gerado em %s",
		nonEmpty(a.Validation.ValidatorVersion, "—"),
		nonEmpty(a.Validation.RateTableVersion, "—"),
		nonEmpty(a.ID, "não persistida"),
		a.CreatedAt.Format("02/01/2006 15:04"),
	)
	return row.New(10).Add(col.New(12).Add(
		text.New(info, props.Text{Size: 6.5, Color: colorGray, Top: 2}),
		text.New("Relatório consultivo. Não substitui a escrituração fiscal.", props.Text{
			Size: 6.5, Color: colorGray, Top: 6,
		}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

// FormatBRL formatea un monto en reales: 12345.6 → "R$ 12.345,60".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + brl.Sprint(number.Decimal(fiscal.Round2(d).InexactFloat64(), number.Scale(2)))
}

// FormatPercent formatea un porcentaje con dos decimales: 13.7 → "13,70%".
func FormatPercent(d decimal.Decimal) string {
	return brl.Sprint(number.Decimal(fiscal.Round2(d).InexactFloat64(), number.Scale(2))) + "%"
}

func statusLabel(s fiscal.ValidationStatus) string {
	switch s {
	case fiscal.StatusValid:
		return "VÁLIDA"
	case fiscal.StatusWithWarnings:
		return "VÁLIDA COM AVISOS"
	case fiscal.StatusInvalid:
		return "INVÁLIDA"
	}
	return strings.ToUpper(string(s))
}

func statusColor(s fiscal.ValidationStatus) *props.Color {
	switch s {
	case fiscal.StatusValid:
		return colorGreen
	case fiscal.StatusWithWarnings:
		return colorAmber
	}
	return colorRed
}

func severityColor(s fiscal.Severity) *props.Color {
	switch s {
	case fiscal.SeverityCritical, fiscal.SeverityError:
		return colorRed
	case fiscal.SeverityWarning:
		return colorAmber
	}
	return colorGray
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
