// Package fiscal reúne los tipos base del motor fiscal: el escalar anulable
// Value, la conversión segura a decimal, el acceso anidado a mapas, los
// enumerados cerrados (severidad, categoría, estado...) y la tabla de
// alícuotas inmutable que se inyecta en el validador y en la calculadora.
package fiscal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindNumber
	kindText
)

// Value es un escalar de entrada que puede estar ausente.
// El valor cero es "ausente", distinto de un cero presente.
type Value struct {
	raw  string
	kind valueKind
}

// Absent devuelve el marcador explícito de ausencia.
func Absent() Value { return Value{} }

// Text construye un Value textual.
func Text(s string) Value { return Value{raw: s, kind: kindText} }

// Number construye un Value numérico a partir de su representación textual.
func Number(raw string) Value { return Value{raw: raw, kind: kindNumber} }

// Of convierte un valor Go arbitrario en Value. nil es ausente.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Absent()
	case Value:
		return x
	case *Value:
		if x == nil {
			return Absent()
		}
		return *x
	case string:
		return Text(x)
	case json.Number:
		return Number(x.String())
	case decimal.Decimal:
		return Number(x.String())
	case float64:
		return Number(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return Number(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case int:
		return Number(strconv.Itoa(x))
	case int64:
		return Number(strconv.FormatInt(x, 10))
	case int32:
		return Number(strconv.FormatInt(int64(x), 10))
	case uint64:
		return Number(strconv.FormatUint(x, 10))
	case bool:
		return Text(strconv.FormatBool(x))
	default:
		return Text(fmt.Sprint(x))
	}
}

// IsAbsent indica si el campo no vino en la entrada (null o no informado).
func (v Value) IsAbsent() bool { return v.kind == kindAbsent }

// IsBlank indica ausencia o texto vacío.
func (v Value) IsBlank() bool {
	return v.kind == kindAbsent || strings.TrimSpace(v.raw) == ""
}

// String devuelve la representación cruda ("" si está ausente).
func (v Value) String() string { return v.raw }

// Display devuelve la representación cruda o "None" si está ausente.
func (v Value) Display() string {
	if v.kind == kindAbsent {
		return "None"
	}
	return v.raw
}

// MarshalJSON serializa ausente como null y los números sin comillas.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindAbsent:
		return []byte("null"), nil
	case kindNumber:
		if json.Valid([]byte(v.raw)) {
			return []byte(v.raw), nil
		}
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON acepta null, números, strings y booleanos; cualquier otro
// valor se conserva como texto para que la conversión lo marque como inválido.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = Absent()
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*v = Number(string(b))
	default:
		*v = Text(string(b))
	}
	return nil
}
