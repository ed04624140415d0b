package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/nfe-fiscal/internal/interfaces/cli"
	"github.com/jhoicas/nfe-fiscal/pkg/jwt"
)

// ──── Helpers de test ────────────────────────────────────────────────────────

const validRecord = `{
	"identificacao": {"numero_nf": "1", "data_emissao": "2024-03-15", "chave_acesso": "35240311222333000181550010000001231000012342", "tipo_operacao": "saida"},
	"emitente": {"cnpj": "11222333000181", "razao_social": "ACME", "endereco": {"uf": "SP"}},
	"destinatario": {"documento": "52998224725", "endereco": {"uf": "SP"}},
	"produtos": [{"codigo": "P1", "descricao": "Item", "ncm": "73181500", "cfop": "5102", "quantidade": 1, "valor_unitario": 100, "valor_total": 100}],
	"totais": {"valor_produtos": 100, "valor_total_nf": 100, "valor_pis": 1.65, "valor_cofins": 7.6}
}`

// invalidCNPJ misma nota con CNPJ de dígito verificador incorrecto (crítico).
var invalidCNPJ = strings.Replace(validRecord, `"11222333000181"`, `"11222333000182"`, 1)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := root.Execute()
	return out.String(), err
}

type result struct {
	File       string `json:"arquivo"`
	Index      int    `json:"indice"`
	Error      string `json:"erro"`
	Validation *struct {
		Summary struct {
			Status string `json:"status"`
		} `json:"validacao_geral"`
	} `json:"validacao"`
	Metrics *struct {
		Taxes struct {
			Missing []string `json:"campos_ausentes"`
		} `json:"impostos_calculados"`
	} `json:"metricas"`
}

// ──── Tests ──────────────────────────────────────────────────────────────────

func TestValidate_LoteConNotaInvalida(t *testing.T) {
	path := writeFile(t, "lote.json", `{"notas": [`+validRecord+`, `+invalidCNPJ+`, {"emitente": {}}]}`)

	out, err := run(t, "validate", path)
	require.NoError(t, err)

	var results []result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, path, results[0].File)
	require.NotNil(t, results[1].Validation)
	assert.Equal(t, "invalido", results[1].Validation.Summary.Status)
	assert.Equal(t, 2, results[2].Index)
	assert.Nil(t, results[2].Validation)
	assert.Contains(t, results[2].Error, "identificacao")
}

func TestValidate_StrictDevuelveError(t *testing.T) {
	path := writeFile(t, "nota.json", invalidCNPJ)
	_, err := run(t, "validate", "--strict", path)
	assert.ErrorIs(t, err, cli.ErrInvalidInvoices)
}

func TestMetrics_ArregloDeNotas(t *testing.T) {
	path := writeFile(t, "notas.json", `[`+validRecord+`, `+validRecord+`]`)

	out, err := run(t, "metrics", path)
	require.NoError(t, err)

	var results []result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[0].Metrics)
	assert.Equal(t, []string{"ICMS"}, results[0].Metrics.Taxes.Missing)
}

func TestAggregate_VariosArchivos(t *testing.T) {
	a := writeFile(t, "a.json", validRecord)
	b := writeFile(t, "b.json", `{"notas": [`+validRecord+`, "texto"]}`)

	out, err := run(t, "aggregate", a, b)
	require.NoError(t, err)

	var resp struct {
		Received int               `json:"notas_recebidas"`
		Rejected []json.RawMessage `json:"notas_rejeitadas"`
		Metrics  struct {
			General struct {
				Count int `json:"total_notas"`
			} `json:"metricas_gerais"`
		} `json:"metricas"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Received)
	assert.Len(t, resp.Rejected, 1)
	assert.Equal(t, 2, resp.Metrics.General.Count)
}

func TestReport_EscribePDF(t *testing.T) {
	in := writeFile(t, "nota.json", validRecord)
	outPath := filepath.Join(t.TempDir(), "conformidade.pdf")

	_, err := run(t, "report", in, "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestReport_IndiceFueraDeRango(t *testing.T) {
	in := writeFile(t, "nota.json", validRecord)
	_, err := run(t, "report", in, "--index", "5", "-o", filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuera de rango")
}

func TestToken_EmiteJWTValido(t *testing.T) {
	out, err := run(t, "token", "--secret", "cli-secret", "--role", "consulta", "--user", "erp")
	require.NoError(t, err)

	userID, role, err := jwt.Parse("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "erp", userID)
	assert.Equal(t, "consulta", role)
}

func TestToken_RolDesconocido(t *testing.T) {
	_, err := run(t, "token", "--secret", "x", "--role", "root")
	assert.Error(t, err)
}

func TestHashSecret_GeneraHashBcrypt(t *testing.T) {
	out, err := run(t, "hash-secret", "secreto-del-erp-123")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secreto-del-erp-123")))
}

func TestHashSecret_SecretoCorto(t *testing.T) {
	_, err := run(t, "hash-secret", "corto")
	assert.Error(t, err)
}

func TestRatesFileInexistente(t *testing.T) {
	path := writeFile(t, "nota.json", validRecord)
	_, err := run(t, "--rates", filepath.Join(t.TempDir(), "nao-existe.yaml"), "validate", path)
	assert.Error(t, err)
}
