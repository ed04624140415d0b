package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/calculator"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
	"github.com/jhoicas/nfe-fiscal/internal/domain/validation"
	"github.com/jhoicas/nfe-fiscal/pkg/logger"
	"github.com/jhoicas/nfe-fiscal/pkg/nfe"
)

const (
	DefaultShardSize = 500
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// FiscalUseCase orquesta validador, calculadora y (opcionalmente) la persistencia.
// Sin repositorio funciona sin estado: valida y calcula pero no guarda nada.
type FiscalUseCase struct {
	validator *validation.Validator
	calc      *calculator.Calculator
	repo      repository.AnalysisRepository
	tx        AnalysisTxRunner
	renderer  ReportRenderer
	shardSize int
	log       *logger.Logger
	now       func() time.Time
}

// FiscalOption configura el caso de uso.
type FiscalOption func(*FiscalUseCase)

// WithPersistence activa el modo persistido.
func WithPersistence(repo repository.AnalysisRepository, tx AnalysisTxRunner) FiscalOption {
	return func(uc *FiscalUseCase) {
		uc.repo = repo
		uc.tx = tx
	}
}

// WithRenderer inyecta el generador de PDF.
func WithRenderer(r ReportRenderer) FiscalOption {
	return func(uc *FiscalUseCase) { uc.renderer = r }
}

// WithShardSize notas por shard al agregar lotes; <= 0 usa DefaultShardSize.
func WithShardSize(n int) FiscalOption {
	return func(uc *FiscalUseCase) {
		if n > 0 {
			uc.shardSize = n
		}
	}
}

// WithLogger logger del caso de uso.
func WithLogger(l *logger.Logger) FiscalOption {
	return func(uc *FiscalUseCase) { uc.log = l }
}

// WithNow reloj para created_at.
func WithNow(now func() time.Time) FiscalOption {
	return func(uc *FiscalUseCase) { uc.now = now }
}

// NewFiscalUseCase construye el caso de uso.
func NewFiscalUseCase(v *validation.Validator, c *calculator.Calculator, opts ...FiscalOption) *FiscalUseCase {
	uc := &FiscalUseCase{
		validator: v,
		calc:      c,
		shardSize: DefaultShardSize,
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Persistent indica si hay repositorio configurado.
func (uc *FiscalUseCase) Persistent() bool { return uc.repo != nil && uc.tx != nil }

// Validate valida una nota.
func (uc *FiscalUseCase) Validate(ctx context.Context, rec *entity.InvoiceRecord) (*entity.ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return uc.validator.Validate(rec)
}

// Metrics calcula las métricas de una nota.
func (uc *FiscalUseCase) Metrics(ctx context.Context, rec *entity.InvoiceRecord) (*entity.InvoiceMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return uc.calc.InvoiceMetrics(rec)
}

// Analyze valida y calcula en paralelo y, en modo persistido, guarda el análisis
// (análisis + hallazgos en una sola transacción).
func (uc *FiscalUseCase) Analyze(ctx context.Context, rec *entity.InvoiceRecord, requestedBy string) (*dto.AnalysisResponse, error) {
	a, err := uc.evaluate(ctx, rec)
	if err != nil {
		return nil, err
	}
	a.RequestedBy = requestedBy
	resp := &dto.AnalysisResponse{Validation: a.Validation, Metrics: a.Metrics}
	if !uc.Persistent() {
		return resp, nil
	}

	err = uc.tx.RunAnalysis(ctx, func(repo repository.AnalysisRepository) error {
		return repo.Save(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: guardar análisis: %w", err)
	}
	uc.log.Info().
		Str("analysis_id", a.ID).
		Str("status", string(a.Status)).
		Int("score", a.Score).
		Str("requested_by", requestedBy).
		Msg("análisis fiscal guardado")

	resp.ID = a.ID
	resp.Persisted = true
	return resp, nil
}

// evaluate ejecuta validador y calculadora en goroutines y arma el análisis.
func (uc *FiscalUseCase) evaluate(ctx context.Context, rec *entity.InvoiceRecord) (*entity.FiscalAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rec.CheckShape(); err != nil {
		return nil, err
	}

	type reportResult struct {
		rep *entity.ValidationReport
		err error
	}
	type metricsResult struct {
		m   *entity.InvoiceMetrics
		err error
	}
	repCh := make(chan reportResult, 1)
	metCh := make(chan metricsResult, 1)

	go func() {
		rep, err := uc.validator.Validate(rec)
		repCh <- reportResult{rep, err}
	}()
	go func() {
		m, err := uc.calc.InvoiceMetrics(rec)
		metCh <- metricsResult{m, err}
	}()

	rep := <-repCh
	met := <-metCh
	if rep.err != nil {
		return nil, fmt.Errorf("analyze: validar: %w", rep.err)
	}
	if met.err != nil {
		return nil, fmt.Errorf("analyze: métricas: %w", met.err)
	}
	return entity.NewFiscalAnalysis(rec, rep.rep, met.m, uc.now().UTC()), nil
}

// Aggregate decodifica cada nota por separado (las inválidas se reportan y se
// excluyen) y agrega las válidas. Los lotes mayores que el tamaño de shard se
// reparten entre goroutines y se combinan en orden.
func (uc *FiscalUseCase) Aggregate(ctx context.Context, raws []json.RawMessage) (*dto.AggregateResponse, error) {
	resp := &dto.AggregateResponse{
		BatchID:  uuid.NewString(),
		Received: len(raws),
		Rejected: []dto.RejectedInvoice{},
	}
	recs := make([]*entity.InvoiceRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := entity.DecodeInvoiceRecord(raw)
		if err != nil {
			resp.Rejected = append(resp.Rejected, dto.RejectedInvoice{Index: i, Error: err.Error()})
			continue
		}
		recs = append(recs, rec)
	}

	acc, shards, err := uc.accumulate(ctx, recs)
	if err != nil {
		return nil, err
	}
	resp.Shards = shards
	resp.Metrics = acc.Result()

	uc.log.Info().
		Str("batch_id", resp.BatchID).
		Int("received", resp.Received).
		Int("rejected", len(resp.Rejected)).
		Int("shards", shards).
		Msg("lote agregado")
	return resp, nil
}

// AggregateRecords agrega notas ya decodificadas con el mismo reparto en shards.
func (uc *FiscalUseCase) AggregateRecords(ctx context.Context, recs []*entity.InvoiceRecord) (*entity.AggregateMetrics, error) {
	acc, _, err := uc.accumulate(ctx, recs)
	if err != nil {
		return nil, err
	}
	return acc.Result(), nil
}

func (uc *FiscalUseCase) accumulate(ctx context.Context, recs []*entity.InvoiceRecord) (*calculator.Accumulator, int, error) {
	shards := splitShards(recs, uc.shardSize)
	partial := make([]*calculator.Accumulator, len(shards))
	errs := make([]error, len(shards))

	var wg sync.WaitGroup
	for i, shard := range shards {
		wg.Add(1)
		go func(i int, shard []*entity.InvoiceRecord) {
			defer wg.Done()
			acc := uc.calc.NewAccumulator()
			for j, rec := range shard {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					return
				}
				if err := acc.Add(rec); err != nil {
					errs[i] = fmt.Errorf("nota %d: %w", i*uc.shardSize+j, err)
					return
				}
			}
			partial[i] = acc
		}(i, shard)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, 0, err
	}
	total := uc.calc.NewAccumulator()
	for _, acc := range partial {
		total.Merge(acc)
	}
	return total, len(shards), nil
}

func splitShards(recs []*entity.InvoiceRecord, size int) [][]*entity.InvoiceRecord {
	if len(recs) == 0 {
		return nil
	}
	out := make([][]*entity.InvoiceRecord, 0, (len(recs)+size-1)/size)
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end])
	}
	return out
}

// ── Consultas (modo persistido) ───────────────────────────────────────────────

// GetAnalysis devuelve un análisis completo.
//   - domain.ErrPersistenceOff si no hay repositorio.
//   - domain.ErrInvalidInput si id no es un UUID.
//   - domain.ErrNotFound si no existe.
func (uc *FiscalUseCase) GetAnalysis(ctx context.Context, id string) (*entity.FiscalAnalysis, error) {
	if !uc.Persistent() {
		return nil, domain.ErrPersistenceOff
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: id de análisis inválido", domain.ErrInvalidInput)
	}
	a, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// ListAnalyses listado paginado con filtros.
func (uc *FiscalUseCase) ListAnalyses(ctx context.Context, req dto.AnalysisListRequest) (*dto.AnalysisListResponse, error) {
	if !uc.Persistent() {
		return nil, domain.ErrPersistenceOff
	}
	req.DefaultPage()
	if req.Limit > maxPageLimit {
		req.Limit = maxPageLimit
	}

	f := repository.AnalysisFilter{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		st := fiscal.ValidationStatus(req.Status)
		switch st {
		case fiscal.StatusValid, fiscal.StatusInvalid, fiscal.StatusWithWarnings:
			f.Status = st
		default:
			return nil, fmt.Errorf("%w: status desconocido %q", domain.ErrInvalidInput, req.Status)
		}
	}
	if req.IssuerCNPJ != "" {
		f.IssuerCNPJ = nfe.OnlyDigits(req.IssuerCNPJ)
	}
	if req.StartDate != "" || req.EndDate != "" {
		from, to, err := req.Resolve(uc.now())
		if err != nil {
			return nil, err
		}
		f.From, f.To = from, to
	}

	items, total, err := uc.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	out := &dto.AnalysisListResponse{
		Items: make([]dto.AnalysisSummaryDTO, 0, len(items)),
		Page:  dto.PageResponse{Limit: req.Limit, Offset: req.Offset, Total: total},
	}
	for _, a := range items {
		out.Items = append(out.Items, dto.AnalysisSummaryDTO{
			ID:           a.ID,
			AccessKey:    a.AccessKey,
			IssuerCNPJ:   a.IssuerCNPJ,
			IssuerName:   a.IssuerName,
			IssueDate:    a.IssueDate,
			Status:       string(a.Status),
			Score:        a.Score,
			InvoiceTotal: a.InvoiceTotal,
			TotalTaxes:   a.TotalTaxes,
			CreatedAt:    a.CreatedAt,
		})
	}
	return out, nil
}

// AnalysisPDF genera el informe de conformidad de un análisis guardado.
func (uc *FiscalUseCase) AnalysisPDF(ctx context.Context, id string) (pdfBytes []byte, filename string, err error) {
	if uc.renderer == nil {
		return nil, "", fmt.Errorf("pdf: generador no configurado")
	}
	a, err := uc.GetAnalysis(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.renderer.RenderAnalysis(ctx, a)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: %w", err)
	}
	return pdfBytes, reportFilename(a), nil
}

// RenderReport valida, calcula y genera el PDF sin persistir (CLI).
func (uc *FiscalUseCase) RenderReport(ctx context.Context, rec *entity.InvoiceRecord) ([]byte, error) {
	if uc.renderer == nil {
		return nil, fmt.Errorf("pdf: generador no configurado")
	}
	a, err := uc.evaluate(ctx, rec)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderAnalysis(ctx, a)
}

func reportFilename(a *entity.FiscalAnalysis) string {
	name := a.AccessKey
	if name == "" {
		name = a.ID
	}
	return "conformidade-" + strings.ReplaceAll(name, " ", "") + ".pdf"
}
