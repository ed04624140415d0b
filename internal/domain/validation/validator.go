package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/pkg/nfe"
)

// Version identifica las reglas aplicadas en el reporte.
const Version = "nfe-fiscal-validator/1.2"

// Validator aplica las reglas de conformidad a una nota.
// No guarda estado entre llamadas: es seguro para uso concurrente.
type Validator struct {
	rates     *fiscal.RateTable
	tolerance decimal.Decimal
	now       func() time.Time
}

// Option configura el Validator.
type Option func(*Validator)

// WithClock fija el reloj usado para el timestamp del reporte.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithTolerance reemplaza la tolerancia estricta de la tabla.
func WithTolerance(tol decimal.Decimal) Option {
	return func(v *Validator) { v.tolerance = tol }
}

// NewValidator construye el validador con la tabla de alícuotas inyectada.
// rates nil usa fiscal.DefaultRateTable.
func NewValidator(rates *fiscal.RateTable, opts ...Option) *Validator {
	if rates == nil {
		rates = fiscal.DefaultRateTable()
	}
	v := &Validator{rates: rates, tolerance: rates.StrictTolerance(), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate ejecuta todas las reglas y compila el reporte.
// Solo devuelve error si el registro no tiene las secciones obligatorias.
func (v *Validator) Validate(rec *entity.InvoiceRecord) (*entity.ValidationReport, error) {
	if err := rec.CheckShape(); err != nil {
		return nil, err
	}
	run := &validationRun{v: v, rec: rec}
	run.checkDocuments()
	run.checkFiscalCodes()
	run.checkLineArithmetic()
	run.checkTaxes()
	run.checkTotals()
	run.checkConsistency()
	return run.compile(), nil
}

// validationRun acumula los hallazgos de una sola llamada.
type validationRun struct {
	v        *Validator
	rec      *entity.InvoiceRecord
	findings []entity.Finding
}

func (r *validationRun) add(f entity.Finding) {
	r.findings = append(r.findings, f)
}

func ptr(s string) *string { return &s }

func money(d decimal.Decimal) string { return "R$ " + d.StringFixed(2) }

func pct(d decimal.Decimal) string { return d.String() + "%" }

func current(v fiscal.Value) *string {
	if v.IsAbsent() {
		return nil
	}
	return ptr(v.String())
}

// amount convierte un campo numérico; un valor presente pero no numérico
// genera un aviso y cuenta como cero.
func (r *validationRun) amount(v fiscal.Value, field string, cat fiscal.Category) decimal.Decimal {
	d, err := fiscal.ParseDecimal(v)
	if err == nil {
		return d
	}
	if !v.IsAbsent() {
		r.add(entity.Finding{
			Severity:     fiscal.SeverityWarning,
			Category:     cat,
			Field:        field,
			Description:  fmt.Sprintf("Valor não numérico em %s; considerado zero", field),
			CurrentValue: current(v),
			Suggestion:   ptr("Informe um valor numérico"),
		})
	}
	return decimal.Zero
}

func productLabel(item entity.LineItem, i int) string {
	if !item.Description.IsBlank() {
		return item.Description.String()
	}
	return fmt.Sprintf("Produto %d", i+1)
}

// ── 1. Documentos ───────────────────────────────────────────────────────────

func (r *validationRun) checkDocuments() {
	if cnpj := r.rec.Issuer.CNPJ; !cnpj.IsBlank() {
		if err := nfe.ValidateCNPJ(cnpj.String()); err != nil {
			r.add(entity.Finding{
				Severity:     fiscal.SeverityCritical,
				Category:     fiscal.CategoryDocument,
				Field:        "emitente.cnpj",
				Description:  "CNPJ do emitente inválido: " + err.Error(),
				CurrentValue: current(cnpj),
				Suggestion:   ptr("Verifique o CNPJ do emitente no documento original"),
			})
		}
	}

	r.checkRecipientDocument()

	key := r.rec.Identification.AccessKey
	if key.IsBlank() {
		r.add(entity.Finding{
			Severity:      fiscal.SeverityWarning,
			Category:      fiscal.CategoryDocument,
			Field:         "identificacao.chave_acesso",
			Description:   "Chave de acesso não informada",
			CurrentValue:  current(key),
			ExpectedValue: ptr("44 dígitos"),
			Suggestion:    ptr("Informe a chave de acesso da NF-e, se já autorizada"),
		})
		return
	}
	if _, err := nfe.ParseAccessKey(key.String()); err != nil {
		r.add(entity.Finding{
			Severity:     fiscal.SeverityCritical,
			Category:     fiscal.CategoryDocument,
			Field:        "identificacao.chave_acesso",
			Description:  "Chave de acesso inválida: " + err.Error(),
			CurrentValue: current(key),
			Suggestion:   ptr("Confira os 44 dígitos da chave de acesso"),
		})
	}
}

func (r *validationRun) checkRecipientDocument() {
	doc := r.rec.Recipient.Document
	if doc.IsBlank() {
		return
	}
	kind := strings.ToLower(strings.TrimSpace(r.rec.Recipient.DocumentType.String()))
	digits := nfe.OnlyDigits(doc.String())
	if kind == "" {
		switch len(digits) {
		case 14:
			kind = "cnpj"
		case 11:
			kind = "cpf"
		default:
			r.add(entity.Finding{
				Severity:     fiscal.SeverityWarning,
				Category:     fiscal.CategoryDocument,
				Field:        "destinatario.documento",
				Description:  fmt.Sprintf("Documento do destinatário com %d dígitos não corresponde a CNPJ nem CPF", len(digits)),
				CurrentValue: current(doc),
				Suggestion:   ptr("Informe tipo_documento ou corrija o documento"),
			})
			return
		}
	}
	switch kind {
	case "cnpj":
		if err := nfe.ValidateCNPJ(digits); err != nil {
			r.add(entity.Finding{
				Severity:     fiscal.SeverityCritical,
				Category:     fiscal.CategoryDocument,
				Field:        "destinatario.documento",
				Description:  "CNPJ do destinatário inválido: " + err.Error(),
				CurrentValue: current(doc),
				Suggestion:   ptr("Verifique o CNPJ do destinatário"),
			})
		}
	case "cpf":
		if err := nfe.ValidateCPF(digits); err != nil {
			r.add(entity.Finding{
				Severity:     fiscal.SeverityError,
				Category:     fiscal.CategoryDocument,
				Field:        "destinatario.documento",
				Description:  "CPF do destinatário inválido: " + err.Error(),
				CurrentValue: current(doc),
				Suggestion:   ptr("Verifique o CPF do destinatário"),
			})
		}
	}
}

// ── 2. Códigos fiscales ──────────────────────────────────────────────────────

func (r *validationRun) checkFiscalCodes() {
	for i, item := range r.rec.Items {
		label := productLabel(item, i)
		prefix := fmt.Sprintf("produtos[%d]", i)

		if item.NCM.IsBlank() {
			r.add(entity.Finding{
				Severity:     fiscal.SeverityWarning,
				Category:     fiscal.CategoryFiscalCode,
				Field:        prefix + ".ncm",
				Description:  fmt.Sprintf("NCM não informado no produto '%s'", label),
				CurrentValue: current(item.NCM),
				Suggestion:   ptr("Informe o NCM de 8 dígitos"),
			})
		} else if err := nfe.ValidateNCM(item.NCM.String()); err != nil {
			r.add(entity.Finding{
				Severity:      fiscal.SeverityWarning,
				Category:      fiscal.CategoryFiscalCode,
				Field:         prefix + ".ncm",
				Description:   fmt.Sprintf("NCM inválido no produto '%s': %s", label, err),
				CurrentValue:  current(item.NCM),
				ExpectedValue: ptr("8 dígitos"),
				Suggestion:    ptr("Consulte a tabela NCM"),
			})
		}

		if item.CFOP.IsBlank() {
			r.add(entity.Finding{
				Severity:     fiscal.SeverityWarning,
				Category:     fiscal.CategoryFiscalCode,
				Field:        prefix + ".cfop",
				Description:  fmt.Sprintf("CFOP não informado no produto '%s'", label),
				CurrentValue: current(item.CFOP),
				Suggestion:   ptr("Informe o CFOP de 4 dígitos"),
			})
		} else if _, err := nfe.ParseCFOP(item.CFOP.String()); err != nil {
			r.add(entity.Finding{
				Severity:      fiscal.SeverityError,
				Category:      fiscal.CategoryFiscalCode,
				Field:         prefix + ".cfop",
				Description:   fmt.Sprintf("CFOP inválido no produto '%s': %s", label, err),
				CurrentValue:  current(item.CFOP),
				ExpectedValue: ptr("4 dígitos iniciando com 1, 2, 3, 5, 6 ou 7"),
				Suggestion:    ptr("Consulte a tabela CFOP"),
			})
		}
	}
}

// ── 3. Aritmética de las líneas ──────────────────────────────────────────────

func (r *validationRun) checkLineArithmetic() {
	for i, item := range r.rec.Items {
		prefix := fmt.Sprintf("produtos[%d]", i)
		qty := r.amount(item.Quantity, prefix+".quantidade", fiscal.CategoryCalculation)
		unit := r.amount(item.UnitPrice, prefix+".valor_unitario", fiscal.CategoryCalculation)
		total := r.amount(item.Total, prefix+".valor_total", fiscal.CategoryCalculation)
		if qty.IsZero() && unit.IsZero() && total.IsZero() {
			continue
		}
		label := productLabel(item, i)
		if item.Total.IsAbsent() {
			r.add(entity.Finding{
				Severity:      fiscal.SeverityWarning,
				Category:      fiscal.CategoryCalculation,
				Field:         prefix + ".valor_total",
				Description:   fmt.Sprintf("Valor total do produto '%s' não informado", label),
				ExpectedValue: ptr(money(fiscal.Round2(qty.Mul(unit)))),
				Suggestion:    ptr("Informe o valor total da linha"),
			})
		}
		// Ausente cuenta como cero en el cruce qty×unitario.
		c := ValidateLineTotal(qty, unit, total, r.v.tolerance)
		if c.OK {
			continue
		}
		r.add(entity.Finding{
			Severity:      fiscal.SeverityError,
			Category:      fiscal.CategoryCalculation,
			Field:         prefix + ".valor_total",
			Description:   fmt.Sprintf("Valor total do produto '%s' não confere: %s", label, c.Message),
			CurrentValue:  ptr(money(total)),
			ExpectedValue: ptr(money(c.Expected)),
			Suggestion:    ptr("Corrija o valor total para " + money(c.Expected)),
		})
	}
}

// ── 4. Impuestos ─────────────────────────────────────────────────────────────

// contribution describe un impuesto cuyo valor se cruza con base×alícuota.
type contribution struct {
	name        string
	base        fiscal.Value
	amount      fiscal.Value
	rate        fiscal.Value
	baseField   string
	amountField string
	rateField   string
	defaultRate *decimal.Decimal
	accepted    func(decimal.Decimal) bool
	acceptedSet []decimal.Decimal
}

func (r *validationRun) checkTaxes() {
	t := r.rec.Totals
	rates := r.v.rates
	r.checkICMS()

	pisDefault, cofinsDefault := rates.PISStandard(), rates.COFINSStandard()
	r.checkContribution(contribution{
		name: "PIS", base: t.PISBase, amount: t.PISAmount, rate: t.PISRate,
		baseField: "totais.base_calculo_pis", amountField: "totais.valor_pis", rateField: "totais.aliquota_pis",
		defaultRate: &pisDefault, accepted: rates.PISAccepted, acceptedSet: rates.PISAcceptedSet(),
	})
	r.checkContribution(contribution{
		name: "COFINS", base: t.COFINSBase, amount: t.COFINSAmount, rate: t.COFINSRate,
		baseField: "totais.base_calculo_cofins", amountField: "totais.valor_cofins", rateField: "totais.aliquota_cofins",
		defaultRate: &cofinsDefault, accepted: rates.COFINSAccepted, acceptedSet: rates.COFINSAcceptedSet(),
	})
	// IPI depende del NCM: sin alícuota declarada no hay cruce posible.
	r.checkContribution(contribution{
		name: "IPI", base: t.IPIBase, amount: t.IPIAmount, rate: t.IPIRate,
		baseField: "totais.base_calculo_ipi", amountField: "totais.valor_ipi", rateField: "totais.aliquota_ipi",
	})
}

func (r *validationRun) checkICMS() {
	t := r.rec.Totals
	rates := r.v.rates
	base := r.amount(t.ICMSBase, "totais.base_calculo_icms", fiscal.CategoryTax)
	value := r.amount(t.ICMSAmount, "totais.valor_icms", fiscal.CategoryTax)
	if base.IsZero() || value.IsZero() {
		return
	}
	uf := r.rec.Issuer.StateCode()
	stateRate, listed := rates.ICMSRate(uf.String())
	declared := r.amount(t.ICMSRate, "totais.aliquota_icms", fiscal.CategoryTax)

	rate := stateRate
	if !declared.IsZero() {
		rate = declared
		if !rates.ICMSAccepted(declared) {
			lo, hi := rates.ICMSRange()
			r.add(entity.Finding{
				Severity:      fiscal.SeverityWarning,
				Category:      fiscal.CategoryTax,
				Field:         "totais.aliquota_icms",
				Description:   fmt.Sprintf("Alíquota de ICMS %s fora da faixa usual (%s a %s)", pct(declared), pct(lo), pct(hi)),
				CurrentValue:  ptr(pct(declared)),
				ExpectedValue: ptr(pct(stateRate)),
				Suggestion:    ptr("Verifique a alíquota de ICMS aplicável à operação"),
			})
		}
	} else if !listed {
		r.add(entity.Finding{
			Severity:     fiscal.SeverityInfo,
			Category:     fiscal.CategoryTax,
			Field:        "emitente.endereco.uf",
			Description:  fmt.Sprintf("UF do emitente ausente ou desconhecida; alíquota padrão de %s aplicada ao ICMS", pct(stateRate)),
			CurrentValue: current(uf),
		})
	}

	c := ValidateTaxAmount(base, rate, value, r.v.tolerance)
	if !c.OK {
		r.add(entity.Finding{
			Severity:      fiscal.SeverityError,
			Category:      fiscal.CategoryTax,
			Field:         "totais.valor_icms",
			Description:   fmt.Sprintf("Valor do ICMS não confere (base %s × %s): %s", money(base), pct(rate), c.Message),
			CurrentValue:  ptr(money(value)),
			ExpectedValue: ptr(money(c.Expected)),
			Suggestion:    ptr("Corrija o ICMS para " + money(c.Expected)),
		})
	}
}

func (r *validationRun) checkContribution(tax contribution) {
	base := r.amount(tax.base, tax.baseField, fiscal.CategoryTax)
	value := r.amount(tax.amount, tax.amountField, fiscal.CategoryTax)
	if base.IsZero() || value.IsZero() {
		return
	}
	rate := r.amount(tax.rate, tax.rateField, fiscal.CategoryTax)
	if rate.IsZero() {
		if tax.defaultRate == nil {
			return
		}
		rate = *tax.defaultRate
	}
	if tax.accepted != nil && !tax.accepted(rate) {
		set := make([]string, len(tax.acceptedSet))
		for i, a := range tax.acceptedSet {
			set[i] = pct(a)
		}
		r.add(entity.Finding{
			Severity:      fiscal.SeverityWarning,
			Category:      fiscal.CategoryTax,
			Field:         tax.rateField,
			Description:   fmt.Sprintf("Alíquota de %s %s fora dos valores aceitos (%s)", tax.name, pct(rate), strings.Join(set, " ou ")),
			CurrentValue:  ptr(pct(rate)),
			ExpectedValue: ptr(strings.Join(set, " ou ")),
			Suggestion:    ptr(fmt.Sprintf("Verifique o regime de apuração do %s", tax.name)),
		})
	}
	c := ValidateTaxAmount(base, rate, value, r.v.tolerance)
	if !c.OK {
		r.add(entity.Finding{
			Severity:      fiscal.SeverityError,
			Category:      fiscal.CategoryTax,
			Field:         tax.amountField,
			Description:   fmt.Sprintf("Valor do %s não confere (base %s × %s): %s", tax.name, money(base), pct(rate), c.Message),
			CurrentValue:  ptr(money(value)),
			ExpectedValue: ptr(money(c.Expected)),
			Suggestion:    ptr(fmt.Sprintf("Corrija o %s para %s", tax.name, money(c.Expected))),
		})
	}
}

// ── 5. Totalizadores ─────────────────────────────────────────────────────────

func (r *validationRun) checkTotals() {
	t := r.rec.Totals
	sum := decimal.Zero
	for _, item := range r.rec.Items {
		sum = sum.Add(fiscal.ToDecimal(item.Total, decimal.Zero))
	}
	// Total ausente = cero: se compara igual y además se avisa la ausencia.
	declared := r.amount(t.ProductsTotal, "totais.valor_produtos", fiscal.CategoryTotals)
	if !sum.IsZero() || !declared.IsZero() {
		if c := ValidateSum(sum, declared, r.v.tolerance); !c.OK {
			r.add(entity.Finding{
				Severity:      fiscal.SeverityError,
				Category:      fiscal.CategoryTotals,
				Field:         "totais.valor_produtos",
				Description:   fmt.Sprintf("Soma dos produtos (%s) difere do total declarado (%s)", money(sum), money(declared)),
				CurrentValue:  ptr(money(declared)),
				ExpectedValue: ptr(money(sum)),
				Suggestion:    ptr("Verifique os valores dos produtos ou corrija o total para " + money(sum)),
			})
		}
	}
	if t.ProductsTotal.IsAbsent() && len(r.rec.Items) > 0 {
		r.add(entity.Finding{
			Severity:      fiscal.SeverityWarning,
			Category:      fiscal.CategoryTotals,
			Field:         "totais.valor_produtos",
			Description:   "Valor total dos produtos não informado",
			ExpectedValue: ptr(money(sum)),
			Suggestion:    ptr("Informe o total dos produtos para conferência"),
		})
	}
}

// ── 6. Consistencia ──────────────────────────────────────────────────────────

func (r *validationRun) checkConsistency() {
	opType := r.rec.Identification.OperationType
	if opType.IsBlank() {
		r.add(entity.Finding{
			Severity:     fiscal.SeverityWarning,
			Category:     fiscal.CategoryConsistency,
			Field:        "identificacao.tipo_operacao",
			Description:  "Tipo de operação não informado; consistência entre CFOP e operação não verificada",
			CurrentValue: current(opType),
			Suggestion:   ptr("Informe se a nota é de entrada ou saída"),
		})
		return
	}
	dir, ok := fiscal.ParseOperationType(opType.String())
	if !ok {
		r.add(entity.Finding{
			Severity:      fiscal.SeverityWarning,
			Category:      fiscal.CategoryConsistency,
			Field:         "identificacao.tipo_operacao",
			Description:   fmt.Sprintf("Tipo de operação '%s' não reconhecido; consistência não verificada", opType),
			CurrentValue:  current(opType),
			ExpectedValue: ptr("entrada ou saida"),
		})
		return
	}
	for i, item := range r.rec.Items {
		if item.CFOP.IsBlank() {
			continue
		}
		cfop, err := nfe.ParseCFOP(item.CFOP.String())
		if err != nil || cfop.Direction == dir {
			continue
		}
		r.add(entity.Finding{
			Severity:      fiscal.SeverityError,
			Category:      fiscal.CategoryConsistency,
			Field:         fmt.Sprintf("produtos[%d].cfop", i),
			Description:   fmt.Sprintf("CFOP %s indica %s mas nota é de %s", cfop.Code, cfop.Direction, dir),
			CurrentValue:  ptr(cfop.Code),
			ExpectedValue: ptr(fmt.Sprintf("CFOP de %s", dir)),
			Suggestion:    ptr("Verifique o CFOP ou o tipo de operação da nota"),
		})
	}
}

// ── 7. Compilación ───────────────────────────────────────────────────────────

func (r *validationRun) compile() *entity.ValidationReport {
	var sum entity.ValidationSummary
	score := 100
	for _, f := range r.findings {
		switch f.Severity {
		case fiscal.SeverityCritical:
			sum.CriticalCount++
		case fiscal.SeverityError:
			sum.ErrorCount++
		case fiscal.SeverityWarning:
			sum.WarningCount++
		case fiscal.SeverityInfo:
			sum.InfoCount++
		}
		score -= f.Severity.Penalty()
	}
	if score < 0 {
		score = 0
	}
	sum.Score = score
	sum.Status = fiscal.StatusFromCounts(sum.CriticalCount, sum.ErrorCount, sum.WarningCount)
	sum.FitForProcessing = sum.Status.FitForProcessing()

	findings := r.findings
	if findings == nil {
		findings = []entity.Finding{}
	}
	return &entity.ValidationReport{
		Summary:          sum,
		Findings:         findings,
		Timestamp:        r.v.now().UTC(),
		ValidatorVersion: Version,
		RateTableVersion: r.v.rates.Version(),
	}
}
