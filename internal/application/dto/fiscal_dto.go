package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// AggregateRequest cuerpo de POST /api/fiscal/aggregate.
// Las notas se guardan crudas para decodificarlas una a una y aislar errores.
type AggregateRequest struct {
	Invoices []json.RawMessage `json:"notas"`
}

// AnalysisListRequest parámetros para GET /api/fiscal/analyses.
type AnalysisListRequest struct {
	PageRequest
	PeriodRequest
	Status     string `query:"status"` // valido | invalido | com_avisos
	IssuerCNPJ string `query:"cnpj"`   // solo dígitos o con máscara
}

// PeriodRequest período de consulta (dashboard y listados).
type PeriodRequest struct {
	StartDate string `query:"start_date"` // YYYY-MM-DD; por defecto primer día del mes actual
	EndDate   string `query:"end_date"`   // YYYY-MM-DD; por defecto hoy
}

// Resolve devuelve el período en UTC; el fin es inclusivo (último instante del día).
func (p PeriodRequest) Resolve(now time.Time) (from, to time.Time, err error) {
	from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if p.StartDate != "" {
		if from, err = time.Parse(time.DateOnly, p.StartDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date debe ser YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}
	if p.EndDate != "" {
		if to, err = time.Parse(time.DateOnly, p.EndDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date debe ser YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}
	to = to.Add(24*time.Hour - time.Nanosecond)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date anterior a start_date", domain.ErrInvalidInput)
	}
	return from, to, nil
}

// ── Responses ─────────────────────────────────────────────────────────────────

// AnalysisResponse respuesta de POST /api/fiscal/analyze.
type AnalysisResponse struct {
	ID         string                   `json:"id,omitempty"`
	Persisted  bool                     `json:"persistido"`
	Validation *entity.ValidationReport `json:"validacao"`
	Metrics    *entity.InvoiceMetrics   `json:"metricas"`
}

// RejectedInvoice nota del lote que no pudo agregarse.
type RejectedInvoice struct {
	Index int    `json:"indice"`
	Error string `json:"erro"`
}

// AggregateResponse respuesta de POST /api/fiscal/aggregate.
type AggregateResponse struct {
	BatchID  string                   `json:"lote_id"`
	Received int                      `json:"notas_recebidas"`
	Shards   int                      `json:"shards"`
	Metrics  *entity.AggregateMetrics `json:"metricas"`
	Rejected []RejectedInvoice        `json:"notas_rejeitadas"`
}

// AnalysisSummaryDTO fila del listado de análisis (sin árboles).
type AnalysisSummaryDTO struct {
	ID           string          `json:"id"`
	AccessKey    string          `json:"chave_acesso"`
	IssuerCNPJ   string          `json:"cnpj_emitente"`
	IssuerName   string          `json:"razao_social_emitente"`
	IssueDate    *time.Time      `json:"data_emissao,omitempty"`
	Status       string          `json:"status"`
	Score        int             `json:"score"`
	InvoiceTotal decimal.Decimal `json:"valor_total_nf"`
	TotalTaxes   decimal.Decimal `json:"total_impostos"`
	CreatedAt    time.Time       `json:"criado_em"`
}

// AnalysisListResponse listado paginado.
type AnalysisListResponse struct {
	Items []AnalysisSummaryDTO `json:"items"`
	Page  PageResponse         `json:"page"`
}
