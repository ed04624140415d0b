package entity

import (
	"time"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// Finding es un hallazgo de validación. Se crea una vez y no se modifica.
type Finding struct {
	Severity      fiscal.Severity `json:"severidade"`
	Category      fiscal.Category `json:"categoria"`
	Field         string          `json:"campo"`
	Description   string          `json:"descricao"`
	CurrentValue  *string         `json:"valor_atual"`
	ExpectedValue *string         `json:"valor_esperado,omitempty"`
	Suggestion    *string         `json:"sugestao_correcao,omitempty"`
}

// ValidationSummary veredicto y contadores de una validación.
type ValidationSummary struct {
	Status           fiscal.ValidationStatus `json:"status"`
	Score            int                     `json:"score_conformidade"`
	CriticalCount    int                     `json:"total_erros_criticos"`
	ErrorCount       int                     `json:"total_erros"`
	WarningCount     int                     `json:"total_avisos"`
	InfoCount        int                     `json:"total_informativos"`
	FitForProcessing bool                    `json:"apto_para_processamento"`
}

// ValidationReport resultado completo de validar una nota.
// Findings conserva el orden de detección.
type ValidationReport struct {
	Summary          ValidationSummary `json:"validacao_geral"`
	Findings         []Finding         `json:"problemas"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidatorVersion string            `json:"validador"`
	RateTableVersion string            `json:"tabela_aliquotas"`
}

// FindingsBy devuelve los hallazgos de una severidad, en orden de detección.
func (r *ValidationReport) FindingsBy(sev fiscal.Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}
