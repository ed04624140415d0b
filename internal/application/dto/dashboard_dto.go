package dto

import "github.com/shopspring/decimal"

// FiscalDashboardDTO respuesta de GET /api/fiscal/dashboard.
// Resume los análisis persistidos del período y los hallazgos más frecuentes.
type FiscalDashboardDTO struct {
	StartDate string `json:"data_inicio"` // YYYY-MM-DD
	EndDate   string `json:"data_fim"`    // YYYY-MM-DD
	DateLabel string `json:"periodo"`     // ej: "Março 2024"

	Analyses     int             `json:"total_analises"`
	ByStatus     map[string]int  `json:"por_status"`
	AverageScore decimal.Decimal `json:"score_medio"`

	InvoiceTotal decimal.Decimal `json:"valor_total_notas"`
	TotalTaxes   decimal.Decimal `json:"total_impostos"`
	TaxBurden    decimal.Decimal `json:"carga_tributaria_percent"` // TotalTaxes / InvoiceTotal * 100

	TopFindings []FindingCountDTO `json:"problemas_frequentes"`
}

// FindingCountDTO hallazgo frecuente del dashboard.
type FindingCountDTO struct {
	Severity string `json:"severidade"`
	Category string `json:"categoria"`
	Field    string `json:"campo"`
	Count    int    `json:"quantidade"`
}
