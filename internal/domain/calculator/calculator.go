// Package calculator calcula las métricas fiscales de una nota y de lotes de notas.
//
// Todas las funciones son puras: el único estado del Calculator es la tabla de
// alícuotas inmutable, por lo que una instancia puede compartirse entre goroutines.
package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// DefaultState UF asumida cuando la nota no informa la del emitente o destinatario.
const DefaultState = "SP"

const (
	maxExamples = 3
	topN        = 10
	top3        = 3
)

var twelve = decimal.NewFromInt(12)

// Calculator motor de métricas fiscales.
type Calculator struct {
	rates *fiscal.RateTable
}

// NewCalculator construye la calculadora; rates nil usa fiscal.DefaultRateTable.
func NewCalculator(rates *fiscal.RateTable) *Calculator {
	if rates == nil {
		rates = fiscal.DefaultRateTable()
	}
	return &Calculator{rates: rates}
}

// quality registra ausencias, valores por defecto y valores inválidos de una nota.
type quality struct {
	missing   []string
	defaulted []string
	malformed []string
}

// amount convierte un campo; los inválidos se anotan y cuentan como cero.
func (q *quality) amount(v fiscal.Value, field string) decimal.Decimal {
	d, err := fiscal.ParseDecimal(v)
	if err != nil {
		if !v.IsAbsent() {
			q.malformed = append(q.malformed, field)
		}
		return decimal.Zero
	}
	return d
}

// tracked es amount para los impuestos cuya ausencia se reporta por nombre.
func (q *quality) tracked(name fiscal.TaxField, v fiscal.Value, field string) (decimal.Decimal, bool) {
	if v.IsAbsent() {
		q.missing = append(q.missing, string(name))
		return decimal.Zero, true
	}
	return q.amount(v, field), false
}

func (q *quality) state(v fiscal.Value, field string) string {
	if v.IsBlank() {
		q.defaulted = append(q.defaulted, field)
		return DefaultState
	}
	return strings.ToUpper(strings.TrimSpace(v.String()))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// InvoiceMetrics calcula las métricas de una nota. Solo falla si faltan
// secciones obligatorias.
func (c *Calculator) InvoiceMetrics(rec *entity.InvoiceRecord) (*entity.InvoiceMetrics, error) {
	if err := rec.CheckShape(); err != nil {
		return nil, err
	}
	q := &quality{}
	t := rec.Totals

	issuerUF := q.state(rec.Issuer.StateCode(), "emitente.endereco.uf")
	recipientUF := q.state(rec.Recipient.StateCode(), "destinatario.endereco.uf")
	issuerDefaulted := rec.Issuer.StateCode().IsBlank()
	recipientDefaulted := rec.Recipient.StateCode().IsBlank()

	total := q.amount(t.InvoiceTotal, "totais.valor_total_nf")
	pis, pisAbsent := q.tracked(fiscal.FieldPIS, t.PISAmount, "totais.valor_pis")
	cofins, cofinsAbsent := q.tracked(fiscal.FieldCOFINS, t.COFINSAmount, "totais.valor_cofins")
	icms, icmsAbsent := q.tracked(fiscal.FieldICMS, t.ICMSAmount, "totais.valor_icms")
	ipi := q.amount(t.IPIAmount, "totais.valor_ipi")

	totalTaxes := fiscal.Round2(icms.Add(pis).Add(cofins).Add(ipi))
	burden := fiscal.Percent(totalTaxes, total)

	out := &entity.InvoiceMetrics{
		Taxes: entity.ComputedTaxes{
			ICMS:          icms,
			PIS:           pis,
			COFINS:        cofins,
			IPI:           ipi,
			Total:         totalTaxes,
			MissingFields: nonNil(append([]string(nil), q.missing...)),
		},
		TaxBurden: entity.TaxBurden{
			Percent:      burden,
			Class:        fiscal.ClassifyBurden(burden),
			InvoiceTotal: total,
			TotalTaxes:   totalTaxes,
		},
		Credits:   c.credits(total, pis, pisAbsent, cofins, cofinsAbsent),
		Regimes:   regimes(c.rates, total),
		RateTable: c.rates.Version(),
	}

	base := q.amount(t.ICMSBase, "totais.base_calculo_icms")
	out.ICMS = c.icmsAnalysis(icms, icmsAbsent, base, issuerUF, recipientUF, issuerDefaulted)
	out.Products = productAnalysis(rec.Items, q)
	out.Operation = entity.OperationContext{
		Interstate:              issuerUF != recipientUF,
		IssuerState:             issuerUF,
		RecipientState:          recipientUF,
		IssuerStateDefaulted:    issuerDefaulted,
		RecipientStateDefaulted: recipientDefaulted,
		ProductCount:            len(rec.Items),
	}

	integrity := fiscal.IntegrityComplete
	if len(q.missing) > 0 || len(q.defaulted) > 0 || len(q.malformed) > 0 {
		integrity = fiscal.IntegrityPartial
	}
	out.DataQuality = entity.InvoiceDataQuality{
		MissingCount:    len(q.missing),
		MissingFields:   nonNil(q.missing),
		DefaultedFields: nonNil(q.defaulted),
		MalformedFields: nonNil(q.malformed),
		Integrity:       integrity,
	}
	return out, nil
}

func (c *Calculator) credits(total, pis decimal.Decimal, pisAbsent bool, cofins decimal.Decimal, cofinsAbsent bool) entity.CreditOpportunity {
	estimate := func(rate, declared decimal.Decimal, absent bool) entity.CreditEstimate {
		potential := fiscal.ApplyRate(total, rate)
		return entity.CreditEstimate{
			Declared:    declared,
			Rate:        rate,
			Potential:   potential,
			Recoverable: fiscal.Round2(decimal.Max(decimal.Zero, potential.Sub(declared))),
			Absent:      absent,
		}
	}
	p := estimate(c.rates.PISStandard(), pis, pisAbsent)
	cf := estimate(c.rates.COFINSStandard(), cofins, cofinsAbsent)
	monthly := p.Recoverable.Add(cf.Recoverable)
	out := entity.CreditOpportunity{
		PIS:                p,
		COFINS:             cf,
		MonthlyRecoverable: monthly,
		AnnualRecoverable:  monthly.Mul(twelve),
	}
	if pisAbsent || cofinsAbsent {
		out.Note = "Valores calculados considerando campos ausentes como R$ 0,00"
	}
	return out
}

func (c *Calculator) icmsAnalysis(icms decimal.Decimal, absent bool, base decimal.Decimal, issuerUF, recipientUF string, issuerDefaulted bool) entity.ICMSAnalysis {
	rate, listed := c.rates.ICMSRate(issuerUF)
	expected := decimal.Zero
	if base.IsPositive() {
		expected = fiscal.ApplyRate(base, rate)
	}
	diff := fiscal.Round2(icms.Sub(expected))
	status := fiscal.ICMSVerify
	if diff.Abs().LessThan(c.rates.AdvisoryTolerance()) {
		status = fiscal.ICMSCorrect
	}
	out := entity.ICMSAnalysis{
		Charged:        icms,
		Expected:       expected,
		Difference:     diff,
		Base:           base,
		StateRate:      rate,
		Status:         status,
		Absent:         absent,
		StateDefaulted: issuerDefaulted || !listed,
	}
	if issuerUF != recipientUF {
		inter := c.rates.InterstateRate(issuerUF, recipientUF)
		out.InterstateRate = &inter
	}
	return out
}

func regimes(rates *fiscal.RateTable, total decimal.Decimal) entity.RegimeComparison {
	est := func(r fiscal.Regime) entity.RegimeEstimate {
		rate := rates.RegimeRate(r)
		return entity.RegimeEstimate{EstimatedTaxes: fiscal.ApplyRate(total, rate), Rate: rate}
	}
	out := entity.RegimeComparison{
		Simples:   est(fiscal.RegimeSimples),
		Presumido: est(fiscal.RegimePresumido),
		Real:      est(fiscal.RegimeReal),
	}
	out.Real.Note = "Estimativa sem créditos; o valor pode ser menor com aproveitamento de créditos"
	return out
}

func productAnalysis(items []entity.LineItem, q *quality) *entity.ProductAnalysis {
	if len(items) == 0 {
		return nil
	}
	sum := decimal.Zero
	out := &entity.ProductAnalysis{
		Count:            len(items),
		MissingICMS:      entity.ProductSample{Examples: []string{}},
		MissingPISCOFINS: entity.ProductSample{Examples: []string{}},
	}
	for i, item := range items {
		sum = sum.Add(q.amount(item.Total, fmt.Sprintf("produtos[%d].valor_total", i)))

		icms := fiscal.ToDecimal(item.Taxes.ICMS, decimal.Zero)
		if item.Taxes.ICMS.IsAbsent() || icms.IsZero() {
			out.MissingICMS.Count++
			if len(out.MissingICMS.Examples) < maxExamples {
				out.MissingICMS.Examples = append(out.MissingICMS.Examples, labelOf(item.Description))
			}
		}
		if item.Taxes.PIS.IsAbsent() || item.Taxes.COFINS.IsAbsent() {
			out.MissingPISCOFINS.Count++
			if len(out.MissingPISCOFINS.Examples) < maxExamples {
				out.MissingPISCOFINS.Examples = append(out.MissingPISCOFINS.Examples, labelOf(item.Description))
			}
		}
	}
	out.AverageValue = fiscal.Round2(sum.Div(decimal.NewFromInt(int64(len(items)))))
	return out
}
