package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appanalytics "github.com/jhoicas/nfe-fiscal/internal/application/analytics"
	"github.com/jhoicas/nfe-fiscal/internal/application/auth"
	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/calculator"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/domain/repository"
	"github.com/jhoicas/nfe-fiscal/internal/domain/validation"
	apphttp "github.com/jhoicas/nfe-fiscal/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	mu    sync.Mutex
	saved map[string]*entity.FiscalAnalysis
}

func (r *fakeRepo) Save(_ context.Context, a *entity.FiscalAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.saved[a.ID] = a
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*entity.FiscalAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[id], nil
}

func (r *fakeRepo) List(context.Context, repository.AnalysisFilter) ([]entity.FiscalAnalysis, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.FiscalAnalysis, 0, len(r.saved))
	for _, a := range r.saved {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetDashboardTotals(context.Context, time.Time, time.Time) (*repository.DashboardTotals, error) {
	return &repository.DashboardTotals{
		Analyses:     2,
		InvoiceTotal: decimal.NewFromInt(1000),
		TotalTaxes:   decimal.NewFromInt(250),
		AverageScore: decimal.NewFromInt(90),
		ByStatus:     map[fiscal.ValidationStatus]int{fiscal.StatusValid: 2},
	}, nil
}

func (r *fakeRepo) GetTopFindings(context.Context, time.Time, time.Time, int) ([]repository.FindingCount, error) {
	return nil, nil
}

type fakeTx struct{ repo *fakeRepo }

func (t fakeTx) RunAnalysis(_ context.Context, fn func(repository.AnalysisRepository) error) error {
	return fn(t.repo)
}

type fakeRenderer struct{}

func (fakeRenderer) RenderAnalysis(context.Context, *entity.FiscalAnalysis) ([]byte, error) {
	return []byte("%PDF-1.3 fake"), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const validRecord = `{
	"identificacao": {"numero_nf": "1", "data_emissao": "2024-03-15", "chave_acesso": "35240311222333000181550010000001231000012342", "tipo_operacao": "saida"},
	"emitente": {"cnpj": "11222333000181", "razao_social": "ACME", "endereco": {"uf": "SP"}},
	"destinatario": {"documento": "52998224725", "endereco": {"uf": "SP"}},
	"produtos": [{"codigo": "P1", "descricao": "Item", "ncm": "73181500", "cfop": "5102", "quantidade": 1, "valor_unitario": 100, "valor_total": 100}],
	"totais": {"valor_produtos": 100, "valor_total_nf": 100, "valor_pis": 1.65, "valor_cofins": 7.6}
}`

const (
	testClientID     = "erp-integracao"
	testClientSecret = "secreto-del-erp-123"
)

func testAuthUseCase() *auth.AuthUseCase {
	hash, err := bcrypt.GenerateFromPassword([]byte(testClientSecret), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return auth.NewAuthUseCase(
		[]auth.Client{{ID: testClientID, Role: entity.RoleReadOnly, SecretHash: string(hash)}},
		auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer},
	)
}

// buildRouterApp arma el router completo; persisted=true conecta el repositorio fake.
func buildRouterApp(persisted bool) *fiber.App {
	rates := fiscal.DefaultRateTable()
	opts := []usecase.FiscalOption{usecase.WithRenderer(fakeRenderer{})}
	var repo repository.AnalysisRepository
	if persisted {
		r := &fakeRepo{saved: map[string]*entity.FiscalAnalysis{}}
		repo = r
		opts = append(opts, usecase.WithPersistence(r, fakeTx{repo: r}))
	}
	uc := usecase.NewFiscalUseCase(validation.NewValidator(rates), calculator.NewCalculator(rates), opts...)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		FiscalUC:    uc,
		DashboardUC: appanalytics.NewDashboardUseCase(repo),
		AuthUC:      testAuthUseCase(),
		JWTSecret:   testJWTSecret,
		AppName:     "nfe-fiscal-test",
	})
	return app
}

func callAPI(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Code
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_Health(t *testing.T) {
	resp, body := callAPI(t, buildRouterApp(false), fiber.MethodGet, "/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","service":"nfe-fiscal-test","persistence":false}`, string(body))
}

func TestRouter_ValidateRequiereToken(t *testing.T) {
	resp, body := callAPI(t, buildRouterApp(false), fiber.MethodPost, "/api/fiscal/validate", "", validRecord)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", errorCode(t, body))
}

func TestRouter_ValidateConRolConsulta(t *testing.T) {
	resp, body := callAPI(t, buildRouterApp(false), fiber.MethodPost, "/api/fiscal/validate", "consulta", validRecord)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var rep entity.ValidationReport
	require.NoError(t, json.Unmarshal(body, &rep))
	assert.NotEmpty(t, rep.Summary.Status)
	assert.Equal(t, fiscal.DefaultRateTable().Version(), rep.RateTableVersion)
}

func TestRouter_ValidateErroresDeCuerpo(t *testing.T) {
	app := buildRouterApp(false)

	resp, body := callAPI(t, app, fiber.MethodPost, "/api/fiscal/validate", "consulta", `{"emitente": {}}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_RECORD", errorCode(t, body))

	resp, body = callAPI(t, app, fiber.MethodPost, "/api/fiscal/validate", "consulta", `{"emitente": `)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", errorCode(t, body))
}

func TestRouter_Metrics(t *testing.T) {
	resp, body := callAPI(t, buildRouterApp(false), fiber.MethodPost, "/api/fiscal/metrics", "consulta", validRecord)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var m entity.InvoiceMetrics
	require.NoError(t, json.Unmarshal(body, &m))
	assert.True(t, decimal.RequireFromString("9.25").Equal(m.Taxes.Total), "total de impuestos: %s", m.Taxes.Total)
	assert.Equal(t, []string{"ICMS"}, m.Taxes.MissingFields)
}

func TestRouter_AnalyzeRequiereRolAnalista(t *testing.T) {
	app := buildRouterApp(false)

	resp, body := callAPI(t, app, fiber.MethodPost, "/api/fiscal/analyze", "consulta", validRecord)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	resp, body = callAPI(t, app, fiber.MethodPost, "/api/fiscal/analyze", "analista", validRecord)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, false, out["persistido"])
	assert.Contains(t, out, "validacao")
	assert.Contains(t, out, "metricas")
}

func TestRouter_Aggregate(t *testing.T) {
	lote := `{"notas": [` + validRecord + `, {"emitente": {}}, ` + validRecord + `]}`
	resp, body := callAPI(t, buildRouterApp(false), fiber.MethodPost, "/api/fiscal/aggregate", "consulta", lote)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Received int `json:"notas_recebidas"`
		Rejected []struct {
			Index int `json:"indice"`
		} `json:"notas_rejeitadas"`
		Metrics struct {
			General struct {
				Count int `json:"total_notas"`
			} `json:"metricas_gerais"`
		} `json:"metricas"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out.Received)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, 1, out.Rejected[0].Index)
	assert.Equal(t, 2, out.Metrics.General.Count)
}

func TestRouter_ConsultasSinPersistencia(t *testing.T) {
	app := buildRouterApp(false)
	for _, path := range []string{
		"/api/fiscal/analyses",
		"/api/fiscal/analyses/" + uuid.NewString(),
		"/api/fiscal/dashboard",
	} {
		resp, body := callAPI(t, app, fiber.MethodGet, path, "admin", "")
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, path)
		assert.Equal(t, "PERSISTENCE_DISABLED", errorCode(t, body), path)
	}
}

func TestRouter_FlujoPersistido(t *testing.T) {
	app := buildRouterApp(true)

	resp, body := callAPI(t, app, fiber.MethodPost, "/api/fiscal/analyze", "analista", validRecord)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var created struct {
		ID        string `json:"id"`
		Persisted bool   `json:"persistido"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.True(t, created.Persisted)
	require.NotEmpty(t, created.ID)

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses/"+created.ID, "analista", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, created.ID, got["id"])
	assert.Equal(t, "ACME", got["razao_social_emitente"])

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses", "admin", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var list struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 1)

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses/"+created.ID+"/pdf", "analista", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "conformidade-35240311222333000181550010000001231000012342.pdf")
	assert.Equal(t, "%PDF-1.3 fake", string(body))

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/dashboard", "admin", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var dash map[string]any
	require.NoError(t, json.Unmarshal(body, &dash))
	assert.EqualValues(t, 2, dash["total_analises"])
}

func TestRouter_ErroresDeConsulta(t *testing.T) {
	app := buildRouterApp(true)

	resp, body := callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses/no-es-uuid", "analista", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses/"+uuid.NewString(), "analista", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/analyses?status=otro", "analista", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, body = callAPI(t, app, fiber.MethodGet, "/api/fiscal/dashboard?start_date=15-03-2024", "admin", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestRouter_TokenDeCliente(t *testing.T) {
	app := buildRouterApp(false)

	body := `{"client_id": "` + testClientID + `", "client_secret": "` + testClientSecret + `"}`
	resp, out := callAPI(t, app, fiber.MethodPost, "/api/auth/token", "", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(out))

	var tok struct {
		Token     string `json:"token"`
		Role      string `json:"role"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(out, &tok))
	assert.Equal(t, entity.RoleReadOnly, tok.Role)
	assert.Equal(t, testExpMin*60, tok.ExpiresIn)

	// El token emitido sirve para las rutas fiscales, con el rol del cliente.
	req := httptest.NewRequest(fiber.MethodPost, "/api/fiscal/validate", bytes.NewBufferString(validRecord))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	vresp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, vresp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/api/fiscal/analyze", bytes.NewBufferString(validRecord))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	aresp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, aresp.StatusCode)
}

func TestRouter_TokenCredencialesInvalidas(t *testing.T) {
	app := buildRouterApp(false)

	resp, out := callAPI(t, app, fiber.MethodPost, "/api/auth/token", "", `{"client_id": "`+testClientID+`", "client_secret": "incorrecto"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, out))

	resp, out = callAPI(t, app, fiber.MethodPost, "/api/auth/token", "", `{"client_id": "otro", "client_secret": "`+testClientSecret+`"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, out))

	resp, out = callAPI(t, app, fiber.MethodPost, "/api/auth/token", "", `{"client_id": ""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, out))
}
