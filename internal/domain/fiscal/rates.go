package fiscal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidRateTable se devuelve cuando la configuración de alícuotas es incoherente.
var ErrInvalidRateTable = errors.New("tabela de alíquotas inválida")

// RateTableConfig es la forma mutable de la tabla; NewRateTable la congela.
type RateTableConfig struct {
	Version string

	ICMSInternal map[string]decimal.Decimal
	ICMSDefault  decimal.Decimal
	ICMSMin      decimal.Decimal
	ICMSMax      decimal.Decimal

	InterstateSouthSoutheast decimal.Decimal
	InterstateOthers         decimal.Decimal

	PISStandard      decimal.Decimal
	PISCumulative    decimal.Decimal
	COFINSStandard   decimal.Decimal
	COFINSCumulative decimal.Decimal

	RegimeRates map[Regime]decimal.Decimal

	StrictTolerance   decimal.Decimal
	AdvisoryTolerance decimal.Decimal
}

// RateTable es la tabla de alícuotas inmutable compartida por validador y calculadora.
// Todos los campos son privados y los mapas se copian al construirla, por lo que
// puede usarse desde varias goroutines sin sincronización.
type RateTable struct {
	version string

	icms        map[string]decimal.Decimal
	icmsDefault decimal.Decimal
	icmsMin     decimal.Decimal
	icmsMax     decimal.Decimal

	interSouth  decimal.Decimal
	interOthers decimal.Decimal

	pisStandard      decimal.Decimal
	pisCumulative    decimal.Decimal
	cofinsStandard   decimal.Decimal
	cofinsCumulative decimal.Decimal

	regimes map[Regime]decimal.Decimal

	strictTol   decimal.Decimal
	advisoryTol decimal.Decimal
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultRateTableConfig devuelve las alícuotas vigentes 2024-2025.
func DefaultRateTableConfig() RateTableConfig {
	return RateTableConfig{
		Version: "2024.1",
		ICMSInternal: map[string]decimal.Decimal{
			"AC": dec("19"), "AL": dec("19"), "AM": dec("20"), "AP": dec("18"),
			"BA": dec("20.5"), "CE": dec("20"), "DF": dec("20"), "ES": dec("17"),
			"GO": dec("19"), "MA": dec("23"), "MG": dec("18"), "MS": dec("17"),
			"MT": dec("17"), "PA": dec("19"), "PB": dec("20"), "PE": dec("20.5"),
			"PI": dec("22.5"), "PR": dec("19.5"), "RJ": dec("20"), "RN": dec("20"),
			"RO": dec("19.5"), "RR": dec("20"), "RS": dec("17"), "SC": dec("17"),
			"SE": dec("18"), "SP": dec("18"), "TO": dec("20"),
		},
		ICMSDefault:              dec("18"),
		ICMSMin:                  dec("7"),
		ICMSMax:                  dec("25"),
		InterstateSouthSoutheast: dec("12"),
		InterstateOthers:         dec("7"),
		PISStandard:              dec("1.65"),
		PISCumulative:            dec("0.65"),
		COFINSStandard:           dec("7.6"),
		COFINSCumulative:         dec("3.0"),
		RegimeRates: map[Regime]decimal.Decimal{
			RegimeSimples:   dec("10"),
			RegimePresumido: dec("3.65"),
			RegimeReal:      dec("9.25"),
		},
		StrictTolerance:   dec("0.02"),
		AdvisoryTolerance: dec("0.50"),
	}
}

// DefaultRateTable construye la tabla por defecto.
func DefaultRateTable() *RateTable {
	t, err := NewRateTable(DefaultRateTableConfig())
	if err != nil {
		panic(err)
	}
	return t
}

// NewRateTable valida cfg y devuelve una tabla inmutable.
func NewRateTable(cfg RateTableConfig) (*RateTable, error) {
	var errs []error
	nonNegative := func(name string, v decimal.Decimal) {
		if v.IsNegative() {
			errs = append(errs, fmt.Errorf("%s negativo: %s", name, v))
		}
	}
	icms := make(map[string]decimal.Decimal, len(cfg.ICMSInternal))
	for uf, rate := range cfg.ICMSInternal {
		key := strings.ToUpper(strings.TrimSpace(uf))
		if len(key) != 2 {
			errs = append(errs, fmt.Errorf("UF inválida %q", uf))
			continue
		}
		nonNegative("ICMS "+key, rate)
		icms[key] = rate
	}
	nonNegative("ICMS padrão", cfg.ICMSDefault)
	nonNegative("PIS", cfg.PISStandard)
	nonNegative("PIS cumulativo", cfg.PISCumulative)
	nonNegative("COFINS", cfg.COFINSStandard)
	nonNegative("COFINS cumulativo", cfg.COFINSCumulative)
	nonNegative("ICMS interestadual sul/sudeste", cfg.InterstateSouthSoutheast)
	nonNegative("ICMS interestadual outras", cfg.InterstateOthers)
	if cfg.ICMSMin.GreaterThan(cfg.ICMSMax) {
		errs = append(errs, fmt.Errorf("faixa ICMS invertida: %s > %s", cfg.ICMSMin, cfg.ICMSMax))
	}
	if !cfg.StrictTolerance.IsPositive() || !cfg.AdvisoryTolerance.IsPositive() {
		errs = append(errs, errors.New("tolerâncias devem ser positivas"))
	}
	regimes := make(map[Regime]decimal.Decimal, len(Regimes()))
	for _, r := range Regimes() {
		rate, ok := cfg.RegimeRates[r]
		if !ok {
			errs = append(errs, fmt.Errorf("alíquota do regime %s ausente", r))
			continue
		}
		nonNegative(string(r), rate)
		regimes[r] = rate
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrInvalidRateTable}, errs...)...)
	}
	return &RateTable{
		version:          cfg.Version,
		icms:             icms,
		icmsDefault:      cfg.ICMSDefault,
		icmsMin:          cfg.ICMSMin,
		icmsMax:          cfg.ICMSMax,
		interSouth:       cfg.InterstateSouthSoutheast,
		interOthers:      cfg.InterstateOthers,
		pisStandard:      cfg.PISStandard,
		pisCumulative:    cfg.PISCumulative,
		cofinsStandard:   cfg.COFINSStandard,
		cofinsCumulative: cfg.COFINSCumulative,
		regimes:          regimes,
		strictTol:        cfg.StrictTolerance,
		advisoryTol:      cfg.AdvisoryTolerance,
	}, nil
}

// Version identifica la tabla usada en un cálculo.
func (t *RateTable) Version() string { return t.version }

// ICMSRate devuelve la alícuota interna de la UF; listed es false cuando se
// aplicó la alícuota por defecto.
func (t *RateTable) ICMSRate(uf string) (rate decimal.Decimal, listed bool) {
	rate, listed = t.icms[strings.ToUpper(strings.TrimSpace(uf))]
	if !listed {
		return t.icmsDefault, false
	}
	return rate, true
}

// ICMSAccepted indica si la alícuota declarada está dentro de la faixa aceptada.
func (t *RateTable) ICMSAccepted(rate decimal.Decimal) bool {
	return !rate.LessThan(t.icmsMin) && !rate.GreaterThan(t.icmsMax)
}

// ICMSRange devuelve los límites de la faixa aceptada.
func (t *RateTable) ICMSRange() (lo, hi decimal.Decimal) { return t.icmsMin, t.icmsMax }

// sul e sudeste, exceto ES
var southSoutheast = map[string]bool{"PR": true, "SC": true, "RS": true, "SP": true, "RJ": true, "MG": true}

// InterstateRate devuelve la alícuota interestadual: 7% desde Sul/Sudeste hacia
// Norte, Nordeste, Centro-Oeste y ES; 12% en los demás casos.
func (t *RateTable) InterstateRate(originUF, destUF string) decimal.Decimal {
	o := strings.ToUpper(strings.TrimSpace(originUF))
	dst := strings.ToUpper(strings.TrimSpace(destUF))
	if southSoutheast[o] && !southSoutheast[dst] {
		return t.interOthers
	}
	return t.interSouth
}

func (t *RateTable) PISStandard() decimal.Decimal    { return t.pisStandard }
func (t *RateTable) COFINSStandard() decimal.Decimal { return t.cofinsStandard }

// PISAccepted: regime não cumulativo (1,65) ou cumulativo (0,65).
func (t *RateTable) PISAccepted(rate decimal.Decimal) bool {
	return rate.Equal(t.pisStandard) || rate.Equal(t.pisCumulative)
}

// COFINSAccepted: regime não cumulativo (7,6) ou cumulativo (3,0).
func (t *RateTable) COFINSAccepted(rate decimal.Decimal) bool {
	return rate.Equal(t.cofinsStandard) || rate.Equal(t.cofinsCumulative)
}

// PISAcceptedSet y COFINSAcceptedSet devuelven los valores aceptados para mensajes.
func (t *RateTable) PISAcceptedSet() []decimal.Decimal {
	return []decimal.Decimal{t.pisCumulative, t.pisStandard}
}

func (t *RateTable) COFINSAcceptedSet() []decimal.Decimal {
	return []decimal.Decimal{t.cofinsCumulative, t.cofinsStandard}
}

// RegimeRate devuelve la alícuota heurística del régimen.
func (t *RateTable) RegimeRate(r Regime) decimal.Decimal { return t.regimes[r] }

// StrictTolerance es la tolerancia absoluta de los validadores aritméticos (0,02).
func (t *RateTable) StrictTolerance() decimal.Decimal { return t.strictTol }

// AdvisoryTolerance es la tolerancia del cruce consultivo del ICMS (0,50).
func (t *RateTable) AdvisoryTolerance() decimal.Decimal { return t.advisoryTol }
