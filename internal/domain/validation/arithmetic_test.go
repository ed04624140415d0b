package validation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/nfe-fiscal/internal/domain/validation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateLineTotal_LimiteInclusivo(t *testing.T) {
	tol := validation.DefaultTolerance
	assert.True(t, validation.ValidateLineTotal(dec("2"), dec("10.00"), dec("20.00"), tol).OK)
	assert.True(t, validation.ValidateLineTotal(dec("2"), dec("10.00"), dec("20.02"), tol).OK, "0,02 está dentro de la tolerancia")
	assert.False(t, validation.ValidateLineTotal(dec("2"), dec("10.00"), dec("20.03"), tol).OK)
	assert.True(t, validation.ValidateLineTotal(dec("2"), dec("10.00"), dec("19.98"), tol).OK)
}

func TestValidateLineTotal_Detalles(t *testing.T) {
	c := validation.ValidateLineTotal(dec("3"), dec("3.335"), dec("10.00"), validation.DefaultTolerance)
	assert.True(t, c.Expected.Equal(dec("10.01")), "3 × 3,335 = 10,005 → 10,01 (half-up)")
	assert.True(t, c.Difference.Equal(dec("0.01")))
	assert.True(t, c.Inputs["quantidade"].Equal(dec("3")))
	assert.True(t, c.Inputs["valor_unitario"].Equal(dec("3.335")))
	assert.True(t, c.Declared.Equal(dec("10.00")))
}

func TestValidateTaxAmount(t *testing.T) {
	tol := validation.DefaultTolerance
	assert.True(t, validation.ValidateTaxAmount(dec("100"), dec("18"), dec("18.00"), tol).OK)
	assert.True(t, validation.ValidateTaxAmount(dec("100"), dec("18"), dec("18.02"), tol).OK)
	assert.False(t, validation.ValidateTaxAmount(dec("100"), dec("18"), dec("18.03"), tol).OK)

	zero := validation.ValidateTaxAmount(decimal.Zero, dec("18"), decimal.Zero, tol)
	assert.True(t, zero.OK, "base cero e impuesto cero es válido")

	c := validation.ValidateTaxAmount(decimal.Zero, dec("18"), dec("5"), tol)
	assert.False(t, c.OK, "impuesto sobre base cero es error")
	assert.True(t, c.Difference.Equal(dec("5")))
	assert.Contains(t, c.Message, "base de cálculo zero")
}

func TestValidateSum(t *testing.T) {
	tol := validation.DefaultTolerance
	c := validation.ValidateSum(dec("150.00"), dec("150.01"), tol)
	assert.True(t, c.OK)
	c = validation.ValidateSum(dec("150.00"), dec("155.00"), tol)
	assert.False(t, c.OK)
	assert.True(t, c.Difference.Equal(dec("5")))
	assert.True(t, c.Inputs["soma_calculada"].Equal(dec("150")))
}
