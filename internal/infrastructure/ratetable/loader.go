// Package ratetable carga la tabla de alícuotas desde un archivo YAML.
// El archivo se aplica sobre la tabla por defecto: solo hace falta declarar
// lo que cambia (versión, alguna UF, tolerancias).
package ratetable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// rate decimal leído del texto del nodo, para no pasar por float64.
type rate struct {
	decimal.Decimal
}

func (r *rate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("línea %d: se esperaba un número", node.Line)
	}
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("línea %d: alíquota %q inválida", node.Line, node.Value)
	}
	r.Decimal = d
	return nil
}

type fileFormat struct {
	Version string `yaml:"versao"`
	ICMS    struct {
		Internal map[string]rate `yaml:"interna"`
		Default  *rate           `yaml:"padrao"`
		Min      *rate           `yaml:"minima"`
		Max      *rate           `yaml:"maxima"`
	} `yaml:"icms"`
	Interstate struct {
		SouthSoutheast *rate `yaml:"sul_sudeste"`
		Others         *rate `yaml:"demais"`
	} `yaml:"interestadual"`
	PIS struct {
		Standard   *rate `yaml:"nao_cumulativo"`
		Cumulative *rate `yaml:"cumulativo"`
	} `yaml:"pis"`
	COFINS struct {
		Standard   *rate `yaml:"nao_cumulativo"`
		Cumulative *rate `yaml:"cumulativo"`
	} `yaml:"cofins"`
	Regimes    map[string]rate `yaml:"regimes"`
	Tolerances struct {
		Strict   *rate `yaml:"estrita"`
		Advisory *rate `yaml:"consultiva"`
	} `yaml:"tolerancias"`
}

// Load lee path y construye la tabla. Un path vacío devuelve la tabla por defecto.
func Load(path string) (*fiscal.RateTable, error) {
	if path == "" {
		return fiscal.DefaultRateTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer tabla de alíquotas: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse aplica el YAML sobre DefaultRateTableConfig y valida el resultado.
// Claves desconocidas son error.
func Parse(data []byte) (*fiscal.RateTable, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(fiscal.ErrInvalidRateTable, err)
	}

	cfg := fiscal.DefaultRateTableConfig()
	if f.Version != "" {
		cfg.Version = f.Version
	}
	for uf, r := range f.ICMS.Internal {
		cfg.ICMSInternal[strings.ToUpper(strings.TrimSpace(uf))] = r.Decimal
	}
	set(&cfg.ICMSDefault, f.ICMS.Default)
	set(&cfg.ICMSMin, f.ICMS.Min)
	set(&cfg.ICMSMax, f.ICMS.Max)
	set(&cfg.InterstateSouthSoutheast, f.Interstate.SouthSoutheast)
	set(&cfg.InterstateOthers, f.Interstate.Others)
	set(&cfg.PISStandard, f.PIS.Standard)
	set(&cfg.PISCumulative, f.PIS.Cumulative)
	set(&cfg.COFINSStandard, f.COFINS.Standard)
	set(&cfg.COFINSCumulative, f.COFINS.Cumulative)
	set(&cfg.StrictTolerance, f.Tolerances.Strict)
	set(&cfg.AdvisoryTolerance, f.Tolerances.Advisory)

	for name, r := range f.Regimes {
		regime, ok := fiscal.ParseRegime(name)
		if !ok {
			return nil, fmt.Errorf("%w: regime desconhecido %q", fiscal.ErrInvalidRateTable, name)
		}
		cfg.RegimeRates[regime] = r.Decimal
	}
	return fiscal.NewRateTable(cfg)
}

func set(dst *decimal.Decimal, r *rate) {
	if r != nil {
		*dst = r.Decimal
	}
}
