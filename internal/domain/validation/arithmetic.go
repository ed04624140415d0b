// Package validation contiene los validadores aritméticos y el validador de
// conformidad de la NF-e. Todo es determinista y sin estado compartido.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// DefaultTolerance tolerancia absoluta de los validadores aritméticos.
var DefaultTolerance = decimal.RequireFromString("0.02")

// Check resultado de un validador aritmético.
// Inputs conserva las entradas crudas para el reporte.
type Check struct {
	OK         bool                       `json:"ok"`
	Message    string                     `json:"mensagem"`
	Inputs     map[string]decimal.Decimal `json:"entradas"`
	Expected   decimal.Decimal            `json:"valor_calculado"`
	Declared   decimal.Decimal            `json:"valor_declarado"`
	Difference decimal.Decimal            `json:"diferenca"`
}

func compare(expected, declared, tolerance decimal.Decimal, inputs map[string]decimal.Decimal) Check {
	diff := expected.Sub(declared).Abs()
	c := Check{
		OK:         diff.LessThanOrEqual(tolerance),
		Inputs:     inputs,
		Expected:   expected,
		Declared:   declared,
		Difference: diff,
	}
	if c.OK {
		c.Message = "Valor correto"
	} else {
		c.Message = fmt.Sprintf("Diferença de R$ %s (esperado R$ %s, declarado R$ %s)",
			diff.StringFixed(2), expected.StringFixed(2), declared.StringFixed(2))
	}
	return c
}

// ValidateLineTotal comprueba round(qty×unitPrice, 2) ≈ declared (límite inclusivo).
func ValidateLineTotal(qty, unitPrice, declared, tolerance decimal.Decimal) Check {
	expected := fiscal.Round2(qty.Mul(unitPrice))
	return compare(expected, declared, tolerance, map[string]decimal.Decimal{
		"quantidade":     qty,
		"valor_unitario": unitPrice,
	})
}

// ValidateTaxAmount comprueba round(base×rate/100, 2) ≈ declared.
// Con base cero solo es válido un impuesto declarado cero.
func ValidateTaxAmount(base, ratePercent, declared, tolerance decimal.Decimal) Check {
	inputs := map[string]decimal.Decimal{
		"base_calculo": base,
		"aliquota":     ratePercent,
	}
	if base.IsZero() {
		c := Check{
			OK:         declared.IsZero(),
			Inputs:     inputs,
			Expected:   decimal.Zero,
			Declared:   declared,
			Difference: declared.Abs(),
		}
		if c.OK {
			c.Message = "Base zero e imposto zero"
		} else {
			c.Message = fmt.Sprintf("Imposto de R$ %s declarado sobre base de cálculo zero", declared.StringFixed(2))
		}
		return c
	}
	return compare(fiscal.ApplyRate(base, ratePercent), declared, tolerance, inputs)
}

// ValidateSum comprueba que la suma de las líneas coincida con el total declarado.
func ValidateSum(itemsTotal, declared, tolerance decimal.Decimal) Check {
	return compare(itemsTotal, declared, tolerance, map[string]decimal.Decimal{
		"soma_calculada": itemsTotal,
	})
}
