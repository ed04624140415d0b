package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// FiscalAnalysis resultado persistido de validar y calcular una nota.
// Los árboles completos se guardan tal cual; los campos escalares son los indexados.
type FiscalAnalysis struct {
	ID           string                  `json:"id"`
	AccessKey    string                  `json:"chave_acesso"`
	IssuerCNPJ   string                  `json:"cnpj_emitente"`
	IssuerName   string                  `json:"razao_social_emitente"`
	IssueDate    *time.Time              `json:"data_emissao,omitempty"`
	Status       fiscal.ValidationStatus `json:"status"`
	Score        int                     `json:"score"`
	InvoiceTotal decimal.Decimal         `json:"valor_total_nf"`
	TotalTaxes   decimal.Decimal         `json:"total_impostos"`
	RequestedBy  string                  `json:"analisado_por,omitempty"` // sujeto del token
	Record       *InvoiceRecord          `json:"nota,omitempty"`
	Validation   *ValidationReport       `json:"validacao,omitempty"`
	Metrics      *InvoiceMetrics         `json:"metricas,omitempty"`
	CreatedAt    time.Time               `json:"criado_em"`
}

// NewFiscalAnalysis arma el análisis a partir de los resultados del núcleo.
// El ID lo asigna el repositorio si viene vacío.
func NewFiscalAnalysis(rec *InvoiceRecord, rep *ValidationReport, m *InvoiceMetrics, now time.Time) *FiscalAnalysis {
	a := &FiscalAnalysis{
		Record:     rec,
		Validation: rep,
		Metrics:    m,
		CreatedAt:  now,
	}
	if rec.Identification != nil {
		a.AccessKey = rec.Identification.AccessKey.String()
		if t, ok := fiscal.ParseIssueDate(rec.Identification.IssueDate); ok {
			a.IssueDate = &t
		}
	}
	if rec.Issuer != nil {
		a.IssuerCNPJ = rec.Issuer.CNPJ.String()
		a.IssuerName = rec.Issuer.LegalName.String()
	}
	if rep != nil {
		a.Status = rep.Summary.Status
		a.Score = rep.Summary.Score
	}
	if m != nil {
		a.InvoiceTotal = m.TaxBurden.InvoiceTotal
		a.TotalTaxes = m.Taxes.Total
	}
	return a
}
