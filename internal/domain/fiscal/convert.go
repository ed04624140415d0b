package fiscal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Errores de conversión: ErrAbsent y ErrMalformed permiten distinguir
// "no vino" de "vino pero no es un número".
var (
	ErrAbsent    = errors.New("valor ausente")
	ErrMalformed = errors.New("valor numérico inválido")
)

var hundred = decimal.NewFromInt(100)

// ParseDecimal convierte v en decimal exacto. Acepta Value, números Go,
// json.Number, decimal.Decimal y strings con "," o "." como separador decimal.
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, ErrAbsent
	case Value:
		if x.IsAbsent() {
			return decimal.Zero, ErrAbsent
		}
		return parseNumericString(x.raw)
	case *Value:
		if x == nil || x.IsAbsent() {
			return decimal.Zero, ErrAbsent
		}
		return parseNumericString(x.raw)
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, ErrAbsent
		}
		return *x, nil
	case string:
		return parseNumericString(x)
	case json.Number:
		return parseNumericString(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("%v: %w", x, ErrMalformed)
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		return ParseDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	default:
		return decimal.Zero, fmt.Errorf("tipo %T: %w", v, ErrMalformed)
	}
}

// parseNumericString normaliza separadores: "1.234,56" y "1234,56" → 1234.56.
// Un punto después de la coma ("1,234.56") no es formato brasileño: inválido.
func parseNumericString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("texto vazio: %w", ErrMalformed)
	}
	if comma := strings.LastIndex(s, ","); comma >= 0 {
		if strings.LastIndex(s, ".") > comma {
			return decimal.Zero, fmt.Errorf("%q: separadores mezclados: %w", s, ErrMalformed)
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ErrMalformed)
	}
	return d, nil
}

// ToDecimal devuelve v como decimal o def si está ausente o es inválido.
// Los valores inválidos se registran como warning; la ausencia no.
func ToDecimal(v any, def decimal.Decimal) decimal.Decimal {
	d, err := ParseDecimal(v)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			log.Warn().Err(err).Str("default", def.String()).Msg("conversión decimal: valor inválido, se usa el valor por defecto")
		}
		return def
	}
	return d
}

// IsMalformed indica si v está presente pero no es numérico.
func IsMalformed(v Value) bool {
	if v.IsAbsent() {
		return false
	}
	_, err := ParseDecimal(v)
	return err != nil
}

// Round2 redondea half-up a 2 decimales.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Percent calcula part/total×100 redondeado a 2 decimales; 0 si total no es positivo.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(2)
}

// ApplyRate calcula base×rate/100 redondeado a 2 decimales.
func ApplyRate(base, ratePercent decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePercent).Div(hundred).Round(2)
}
