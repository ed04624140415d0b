package fiscal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/pkg/nfe"
)

// Severity clasifica un hallazgo de validación.
type Severity string

const (
	SeverityCritical Severity = "critico"
	SeverityError    Severity = "erro"
	SeverityWarning  Severity = "aviso"
	SeverityInfo     Severity = "info"
)

// Penalty devuelve los puntos que el hallazgo descuenta del score de conformidad.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityError:
		return 10
	case SeverityWarning:
		return 3
	case SeverityInfo:
		return 0
	}
	panic(fmt.Sprintf("fiscal: severidad desconocida %q", string(s)))
}

// Category agrupa los hallazgos por área fiscal.
type Category string

const (
	CategoryDocument    Category = "documento"
	CategoryFiscalCode  Category = "codigo_fiscal"
	CategoryCalculation Category = "calculo"
	CategoryTax         Category = "imposto"
	CategoryTotals      Category = "totalizador"
	CategoryConsistency Category = "consistencia"
)

// Categories lista todas las categorías en orden de ejecución de las reglas.
func Categories() []Category {
	return []Category{
		CategoryDocument, CategoryFiscalCode, CategoryCalculation,
		CategoryTax, CategoryTotals, CategoryConsistency,
	}
}

// ValidationStatus es el veredicto global de una validación.
type ValidationStatus string

const (
	StatusValid        ValidationStatus = "valido"
	StatusInvalid      ValidationStatus = "invalido"
	StatusWithWarnings ValidationStatus = "com_avisos"
)

// StatusFromCounts: inválido con cualquier crítico o error; con avisos si hay
// warnings; válido en otro caso.
func StatusFromCounts(critical, errors, warnings int) ValidationStatus {
	switch {
	case critical > 0 || errors > 0:
		return StatusInvalid
	case warnings > 0:
		return StatusWithWarnings
	default:
		return StatusValid
	}
}

// FitForProcessing indica si la nota puede seguir al análisis.
func (s ValidationStatus) FitForProcessing() bool {
	switch s {
	case StatusValid, StatusWithWarnings:
		return true
	case StatusInvalid:
		return false
	}
	panic(fmt.Sprintf("fiscal: estado desconocido %q", string(s)))
}

// BurdenClass es la clasificación cualitativa de la carga tributaria.
type BurdenClass string

const (
	BurdenLow      BurdenClass = "Baixa"
	BurdenModerate BurdenClass = "Moderada"
	BurdenHigh     BurdenClass = "Alta"
	BurdenVeryHigh BurdenClass = "Muito Alta"
)

var (
	ten     = decimal.NewFromInt(10)
	twenty  = decimal.NewFromInt(20)
	thirty  = decimal.NewFromInt(30)
	fifty   = decimal.NewFromInt(50)
	seventy = decimal.NewFromInt(70)
)

// ClassifyBurden: <10 baja, <20 moderada, <30 alta, resto muy alta.
func ClassifyBurden(percent decimal.Decimal) BurdenClass {
	switch {
	case percent.LessThan(ten):
		return BurdenLow
	case percent.LessThan(twenty):
		return BurdenModerate
	case percent.LessThan(thirty):
		return BurdenHigh
	default:
		return BurdenVeryHigh
	}
}

// RiskLevel es el riesgo de concentración de proveedores.
type RiskLevel string

const (
	RiskLow    RiskLevel = "baixo"
	RiskMedium RiskLevel = "medio"
	RiskHigh   RiskLevel = "alto"
)

// ClassifyConcentration: >70% alto, >50% medio, resto bajo.
func ClassifyConcentration(top3Percent decimal.Decimal) RiskLevel {
	switch {
	case top3Percent.GreaterThan(seventy):
		return RiskHigh
	case top3Percent.GreaterThan(fifty):
		return RiskMedium
	default:
		return RiskLow
	}
}

// ICMSStatus es el resultado del cruce consultivo del ICMS.
type ICMSStatus string

const (
	ICMSCorrect ICMSStatus = "correto"
	ICMSVerify  ICMSStatus = "verificar"
)

// Integrity resume si la nota trajo todos los campos rastreados.
type Integrity string

const (
	IntegrityComplete Integrity = "completa"
	IntegrityPartial  Integrity = "parcial"
)

// Regime identifica un régimen tributario de la comparación heurística.
type Regime string

const (
	RegimeSimples   Regime = "simples_nacional"
	RegimePresumido Regime = "lucro_presumido"
	RegimeReal      Regime = "lucro_real"
)

// Regimes lista los regímenes en el orden de presentación.
func Regimes() []Regime {
	return []Regime{RegimeSimples, RegimePresumido, RegimeReal}
}

// ParseRegime acepta el nombre canónico del régimen.
func ParseRegime(s string) (Regime, bool) {
	r := Regime(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Regimes() {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// TaxField nombra los campos de impuesto cuya ausencia se contabiliza.
type TaxField string

const (
	FieldPIS    TaxField = "PIS"
	FieldCOFINS TaxField = "COFINS"
	FieldICMS   TaxField = "ICMS"
	FieldIPI    TaxField = "IPI"
)

// ParseOperationType normaliza tipo_operacao: "entrada"/"0" entrada,
// "saida"/"saída"/"1" salida (tpNF de la NF-e). ok es false si no se reconoce.
func ParseOperationType(s string) (dir nfe.Direction, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entrada", "0":
		return nfe.DirectionEntry, true
	case "saida", "saída", "1":
		return nfe.DirectionExit, true
	}
	return "", false
}
