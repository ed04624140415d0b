package nfe_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-fiscal/pkg/nfe"
)

const (
	validCNPJ      = "11222333000181"
	validCPF       = "52998224725"
	validAccessKey = "35240311222333000181550010000001231000012342"
)

// flipDigit reemplaza el dígito en pos por el siguiente (mod 10).
func flipDigit(s string, pos int) string {
	b := []byte(s)
	b[pos] = '0' + (b[pos]-'0'+1)%10
	return string(b)
}

// ── CNPJ ─────────────────────────────────────────────────────────────────────

func TestValidateCNPJ_ConMascaraYSinMascara(t *testing.T) {
	assert.NoError(t, nfe.ValidateCNPJ(validCNPJ))
	assert.NoError(t, nfe.ValidateCNPJ("11.222.333/0001-81"))
}

func TestValidateCNPJ_DigitosVerificadoresIndependientes(t *testing.T) {
	err := nfe.ValidateCNPJ(flipDigit(validCNPJ, 12))
	require.Error(t, err)
	assert.ErrorIs(t, err, nfe.ErrFirstCheckDigit)

	err = nfe.ValidateCNPJ(flipDigit(validCNPJ, 13))
	require.Error(t, err)
	assert.ErrorIs(t, err, nfe.ErrSecondCheckDigit)
}

func TestValidateCNPJ_Rechazos(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"corto", "1122233300018", nfe.ErrLength},
		{"largo", "112223330001811", nfe.ErrLength},
		{"vacío", "", nfe.ErrLength},
		{"repetidos", "11111111111111", nfe.ErrRepeatedDigits},
		{"ceros", "00000000000000", nfe.ErrRepeatedDigits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, nfe.ValidateCNPJ(tt.input), tt.want)
		})
	}
}

// Para cualquier base, los dígitos calculados deben producir un CNPJ válido
// y cambiar cualquiera de ellos debe invalidarlo.
func TestCNPJCheckDigits_Propiedad(t *testing.T) {
	for i := 1; i <= 200; i++ {
		base := fmt.Sprintf("%08d%04d", i*7919, i%10000)
		dv, err := nfe.CNPJCheckDigits(base)
		require.NoError(t, err)
		full := base + dv
		assert.NoError(t, nfe.ValidateCNPJ(full), "CNPJ %s debe ser válido", full)
		assert.Error(t, nfe.ValidateCNPJ(flipDigit(full, 12)), "CNPJ %s con DV1 alterado", full)
		assert.Error(t, nfe.ValidateCNPJ(flipDigit(full, 13)), "CNPJ %s con DV2 alterado", full)
	}
}

// ── CPF ──────────────────────────────────────────────────────────────────────

func TestValidateCPF(t *testing.T) {
	assert.NoError(t, nfe.ValidateCPF(validCPF))
	assert.NoError(t, nfe.ValidateCPF("529.982.247-25"))
	assert.ErrorIs(t, nfe.ValidateCPF(flipDigit(validCPF, 9)), nfe.ErrFirstCheckDigit)
	assert.ErrorIs(t, nfe.ValidateCPF(flipDigit(validCPF, 10)), nfe.ErrSecondCheckDigit)
	assert.ErrorIs(t, nfe.ValidateCPF("99999999999"), nfe.ErrRepeatedDigits)
	assert.ErrorIs(t, nfe.ValidateCPF("5299822472"), nfe.ErrLength)
}

func TestCPFCheckDigits_Propiedad(t *testing.T) {
	for i := 1; i <= 200; i++ {
		base := fmt.Sprintf("%09d", i*104729)
		dv, err := nfe.CPFCheckDigits(base)
		require.NoError(t, err)
		full := base + dv
		assert.NoError(t, nfe.ValidateCPF(full), "CPF %s debe ser válido", full)
		assert.Error(t, nfe.ValidateCPF(flipDigit(full, 9)))
		assert.Error(t, nfe.ValidateCPF(flipDigit(full, 10)))
	}
}

// ── Chave de acesso ──────────────────────────────────────────────────────────

func TestParseAccessKey_VectorConocido(t *testing.T) {
	key, err := nfe.ParseAccessKey(validAccessKey)
	require.NoError(t, err)
	assert.Equal(t, "35", key.UF)
	assert.Equal(t, "2403", key.YearMonth)
	assert.Equal(t, validCNPJ, key.CNPJ)
	assert.Equal(t, "55", key.Model)
	assert.Equal(t, "001", key.Series)
	assert.Equal(t, "000000123", key.Number)
	assert.Equal(t, "1", key.EmissionType)
	assert.Equal(t, "00001234", key.Code)
	assert.Equal(t, "2", key.CheckDigit)
	assert.Equal(t, validAccessKey, key.String(), "la concatenación debe reconstruir la chave")
}

func TestParseAccessKey_ConEspacios(t *testing.T) {
	_, err := nfe.ParseAccessKey("3524 0311 2223 3300 0181 5500 1000 0001 2310 0001 2342")
	assert.NoError(t, err)
}

func TestParseAccessKey_DigitoIncorrectoConservaCampos(t *testing.T) {
	key, err := nfe.ParseAccessKey(flipDigit(validAccessKey, 43))
	require.Error(t, err)
	assert.ErrorIs(t, err, nfe.ErrCheckDigit)
	assert.Equal(t, "35", key.UF, "la descomposición se devuelve aun con DV inválido")
}

func TestParseAccessKey_LongitudInvalida(t *testing.T) {
	_, err := nfe.ParseAccessKey(validAccessKey[:43])
	assert.ErrorIs(t, err, nfe.ErrLength)
}

func TestAccessKeyCheckDigit_Propiedad(t *testing.T) {
	for i := 0; i < 100; i++ {
		base := fmt.Sprintf("%02d2403%014d55001%09d1%08d", 11+i%42, int64(i)*7919123, i*31, i*977)
		require.Len(t, base, 43)
		dv, err := nfe.AccessKeyCheckDigit(base)
		require.NoError(t, err)
		full := base + string(dv)
		key, err := nfe.ParseAccessKey(full)
		require.NoError(t, err, "chave %s", full)
		assert.Equal(t, full, key.String())
		_, err = nfe.ParseAccessKey(flipDigit(full, 43))
		assert.Error(t, err)
	}
}

// ── NCM / CFOP ───────────────────────────────────────────────────────────────

func TestValidateNCM(t *testing.T) {
	assert.NoError(t, nfe.ValidateNCM("84713012"))
	assert.NoError(t, nfe.ValidateNCM("8471.30.12"))
	assert.ErrorIs(t, nfe.ValidateNCM("847130"), nfe.ErrLength)
	assert.ErrorIs(t, nfe.ValidateNCM(""), nfe.ErrLength)
}

func TestParseCFOP(t *testing.T) {
	tests := []struct {
		code  string
		dir   nfe.Direction
		scope nfe.Scope
	}{
		{"1102", nfe.DirectionEntry, nfe.ScopeSameState},
		{"2102", nfe.DirectionEntry, nfe.ScopeOtherState},
		{"3102", nfe.DirectionEntry, nfe.ScopeForeign},
		{"5102", nfe.DirectionExit, nfe.ScopeSameState},
		{"6.102", nfe.DirectionExit, nfe.ScopeOtherState},
		{"7102", nfe.DirectionExit, nfe.ScopeForeign},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfop, err := nfe.ParseCFOP(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.dir, cfop.Direction)
			assert.Equal(t, tt.scope, cfop.Scope)
		})
	}
	cfop, _ := nfe.ParseCFOP("6102")
	assert.Equal(t, "saida_outros_estados", cfop.Description())
}

func TestParseCFOP_Invalidos(t *testing.T) {
	for _, code := range []string{"4102", "8102", "0102", "9999"} {
		_, err := nfe.ParseCFOP(code)
		assert.ErrorIs(t, err, nfe.ErrFormat, "CFOP %s", code)
	}
	_, err := nfe.ParseCFOP("510")
	assert.ErrorIs(t, err, nfe.ErrLength)
}
