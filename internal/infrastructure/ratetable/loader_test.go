package ratetable_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/ratetable"
)

// ──── Helpers de test ────────────────────────────────────────────────────────

func n(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, n(want).Equal(got), "esperado %s, obtenido %s", want, got)
}

// ──── Tests ──────────────────────────────────────────────────────────────────

func TestParse_SobreescribeSoloLoDeclarado(t *testing.T) {
	table, err := ratetable.Parse([]byte(`
versao: "2030.1"
icms:
  interna:
    SP: 20
    ba: "21.5"
tolerancias:
  consultiva: 1.00
regimes:
  simples_nacional: 8
`))
	require.NoError(t, err)

	assert.Equal(t, "2030.1", table.Version())
	sp, listed := table.ICMSRate("SP")
	assert.True(t, listed)
	assertDec(t, "20", sp)
	ba, _ := table.ICMSRate("BA")
	assertDec(t, "21.5", ba)
	mg, _ := table.ICMSRate("MG")
	assertDec(t, "18", mg)
	assertDec(t, "1", table.AdvisoryTolerance())
	assertDec(t, "0.02", table.StrictTolerance())
	assertDec(t, "8", table.RegimeRate(fiscal.RegimeSimples))
	assertDec(t, "9.25", table.RegimeRate(fiscal.RegimeReal))
}

func TestParse_ArchivoVacioEsTablaPorDefecto(t *testing.T) {
	table, err := ratetable.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, fiscal.DefaultRateTable().Version(), table.Version())
	assertDec(t, "1.65", table.PISStandard())
}

func TestParse_Errores(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"clave desconocida", "icms:\n  teto: 30\n"},
		{"alíquota no numérica", "pis:\n  nao_cumulativo: abc\n"},
		{"alíquota negativa", "cofins:\n  cumulativo: -3\n"},
		{"régimen desconocido", "regimes:\n  mei: 5\n"},
		{"faixa invertida", "icms:\n  minima: 30\n"},
		{"tolerancia cero", "tolerancias:\n  estrita: 0\n"},
		{"UF inválida", "icms:\n  interna:\n    SAO: 18\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ratetable.Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, fiscal.ErrInvalidRateTable)
		})
	}
}

func TestLoad_PathVacioYArchivo(t *testing.T) {
	table, err := ratetable.Load("")
	require.NoError(t, err)
	assert.Equal(t, "2024.1", table.Version())

	path := filepath.Join(t.TempDir(), "aliquotas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("versao: \"2025.2\"\n"), 0o600))
	table, err = ratetable.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2025.2", table.Version())

	_, err = ratetable.Load(filepath.Join(t.TempDir(), "no-existe.yaml"))
	assert.Error(t, err)
}
