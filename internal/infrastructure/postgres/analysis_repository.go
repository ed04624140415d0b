package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
)

var _ repository.AnalysisRepository = (*AnalysisRepo)(nil)

// AnalysisRepo implementación de AnalysisRepository (usable con pool o tx).
type AnalysisRepo struct {
	q Querier
}

// NewAnalysisRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAnalysisRepository(q Querier) *AnalysisRepo {
	return &AnalysisRepo{q: q}
}

// Save inserta el análisis y, en un único INSERT ... SELECT unnest, sus hallazgos.
func (r *AnalysisRepo) Save(ctx context.Context, a *entity.FiscalAnalysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	record, err := json.Marshal(a.Record)
	if err != nil {
		return fmt.Errorf("serializar nota: %w", err)
	}
	validation, err := json.Marshal(a.Validation)
	if err != nil {
		return fmt.Errorf("serializar validación: %w", err)
	}
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("serializar métricas: %w", err)
	}

	const insertAnalysis = `
		INSERT INTO fiscal_analyses (id, access_key, issuer_cnpj, issuer_name, issue_date, status, score,
		                             invoice_total, total_taxes, record, validation, metrics, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.q.Exec(ctx, insertAnalysis,
		a.ID, nullIfEmpty(a.AccessKey), nullIfEmpty(a.IssuerCNPJ), nullIfEmpty(a.IssuerName), a.IssueDate,
		string(a.Status), a.Score, a.InvoiceTotal, a.TotalTaxes,
		record, validation, metrics, nullIfEmpty(a.RequestedBy), a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: análisis %s", domain.ErrDuplicate, a.ID)
		}
		return fmt.Errorf("insert fiscal_analyses: %w", err)
	}

	if a.Validation == nil || len(a.Validation.Findings) == 0 {
		return nil
	}
	n := len(a.Validation.Findings)
	positions := make([]int32, n)
	severities := make([]string, n)
	categories := make([]string, n)
	fields := make([]string, n)
	for i, f := range a.Validation.Findings {
		positions[i] = int32(i)
		severities[i] = string(f.Severity)
		categories[i] = string(f.Category)
		fields[i] = f.Field
	}
	const insertFindings = `
		INSERT INTO fiscal_findings (analysis_id, position, severity, category, field)
		SELECT $1, pos, sev, cat, fld
		FROM unnest($2::int[], $3::text[], $4::text[], $5::text[]) AS t(pos, sev, cat, fld)`
	if _, err := r.q.Exec(ctx, insertFindings, a.ID, positions, severities, categories, fields); err != nil {
		return fmt.Errorf("insert fiscal_findings: %w", err)
	}
	return nil
}

// GetByID obtiene un análisis completo por ID; (nil, nil) si no existe.
func (r *AnalysisRepo) GetByID(ctx context.Context, id string) (*entity.FiscalAnalysis, error) {
	const query = `
		SELECT id, access_key, issuer_cnpj, issuer_name, issue_date, status, score,
		       invoice_total, total_taxes, record, validation, metrics, requested_by, created_at
		FROM fiscal_analyses WHERE id = $1`
	var (
		a                                  entity.FiscalAnalysis
		accessKey, cnpj, name, requestedBy *string
		status                             string
		record, validation, metrics        []byte
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &accessKey, &cnpj, &name, &a.IssueDate, &status, &a.Score,
		&a.InvoiceTotal, &a.TotalTaxes, &record, &validation, &metrics, &requestedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_analyses: %w", err)
	}
	a.AccessKey, a.IssuerCNPJ, a.IssuerName = derefStr(accessKey), derefStr(cnpj), derefStr(name)
	a.RequestedBy = derefStr(requestedBy)
	a.Status = fiscal.ValidationStatus(status)

	a.Record = &entity.InvoiceRecord{}
	if err := json.Unmarshal(record, a.Record); err != nil {
		return nil, fmt.Errorf("decodificar nota %s: %w", id, err)
	}
	a.Validation = &entity.ValidationReport{}
	if err := json.Unmarshal(validation, a.Validation); err != nil {
		return nil, fmt.Errorf("decodificar validación %s: %w", id, err)
	}
	a.Metrics = &entity.InvoiceMetrics{}
	if err := json.Unmarshal(metrics, a.Metrics); err != nil {
		return nil, fmt.Errorf("decodificar métricas %s: %w", id, err)
	}
	return &a, nil
}

// buildListQuery arma el SELECT filtrado; COUNT(*) OVER() da el total sin paginar.
func buildListQuery(f repository.AnalysisFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.IssuerCNPJ != "" {
		add("issuer_cnpj = $%d", f.IssuerCNPJ)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, access_key, issuer_cnpj, issuer_name, issue_date, status, score,
       invoice_total, total_taxes, created_at, COUNT(*) OVER() AS total
FROM fiscal_analyses`)
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&b, "\nORDER BY created_at DESC, id\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

// List devuelve los campos indexados de los análisis que cumplen el filtro.
func (r *AnalysisRepo) List(ctx context.Context, f repository.AnalysisFilter) ([]entity.FiscalAnalysis, int, error) {
	query, args := buildListQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list fiscal_analyses: %w", err)
	}
	defer rows.Close()

	var (
		out   []entity.FiscalAnalysis
		total int
	)
	for rows.Next() {
		var (
			a                     entity.FiscalAnalysis
			accessKey, cnpj, name *string
			status                string
			count                 int64
		)
		if err := rows.Scan(
			&a.ID, &accessKey, &cnpj, &name, &a.IssueDate, &status, &a.Score,
			&a.InvoiceTotal, &a.TotalTaxes, &a.CreatedAt, &count,
		); err != nil {
			return nil, 0, fmt.Errorf("scan fiscal_analyses: %w", err)
		}
		a.AccessKey, a.IssuerCNPJ, a.IssuerName = derefStr(accessKey), derefStr(cnpj), derefStr(name)
		a.Status = fiscal.ValidationStatus(status)
		total = int(count)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterar fiscal_analyses: %w", err)
	}
	return out, total, nil
}

// GetDashboardTotals conteos y montos de los análisis creados en [from, to].
// Usa COALESCE para devolver cero si no hay análisis en el período.
func (r *AnalysisRepo) GetDashboardTotals(ctx context.Context, from, to time.Time) (*repository.DashboardTotals, error) {
	const query = `
	SELECT
	    COUNT(*)                                          AS analyses,
	    COALESCE(SUM(invoice_total), 0)                   AS invoice_total,
	    COALESCE(SUM(total_taxes), 0)                     AS total_taxes,
	    COALESCE(AVG(score), 0)                           AS average_score,
	    COUNT(*) FILTER (WHERE status = 'valido')         AS valid,
	    COUNT(*) FILTER (WHERE status = 'com_avisos')     AS with_warnings,
	    COUNT(*) FILTER (WHERE status = 'invalido')       AS invalid
	FROM fiscal_analyses
	WHERE created_at BETWEEN $1 AND $2`

	t := &repository.DashboardTotals{}
	var analyses, valid, warnings, invalid int64
	err := r.q.QueryRow(ctx, query, from, to).Scan(
		&analyses, &t.InvoiceTotal, &t.TotalTaxes, &t.AverageScore, &valid, &warnings, &invalid,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}
	t.Analyses = int(analyses)
	t.ByStatus = map[fiscal.ValidationStatus]int{
		fiscal.StatusValid:        int(valid),
		fiscal.StatusWithWarnings: int(warnings),
		fiscal.StatusInvalid:      int(invalid),
	}
	return t, nil
}

// GetTopFindings hallazgos más repetidos en los análisis del período.
func (r *AnalysisRepo) GetTopFindings(ctx context.Context, from, to time.Time, limit int) ([]repository.FindingCount, error) {
	const query = `
	SELECT f.severity, f.category, f.field, COUNT(*) AS occurrences
	FROM fiscal_findings f
	JOIN fiscal_analyses a ON a.id = f.analysis_id
	WHERE a.created_at BETWEEN $1 AND $2
	GROUP BY f.severity, f.category, f.field
	ORDER BY occurrences DESC, f.field
	LIMIT $3`

	rows, err := r.q.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top findings: %w", err)
	}
	defer rows.Close()

	var out []repository.FindingCount
	for rows.Next() {
		var (
			sev, cat, field string
			count           int64
		)
		if err := rows.Scan(&sev, &cat, &field, &count); err != nil {
			return nil, fmt.Errorf("scan top findings: %w", err)
		}
		out = append(out, repository.FindingCount{
			Severity: fiscal.Severity(sev),
			Category: fiscal.Category(cat),
			Field:    field,
			Count:    int(count),
		})
	}
	return out, rows.Err()
}
