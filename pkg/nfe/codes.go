package nfe

import "fmt"

// Direction indica el sentido de la operación codificado en el CFOP.
type Direction string

const (
	DirectionEntry Direction = "entrada"
	DirectionExit  Direction = "saida"
)

// Scope es el alcance geográfico de la operación según el primer dígito del CFOP.
type Scope string

const (
	ScopeSameState  Scope = "dentro_estado"
	ScopeOtherState Scope = "outros_estados"
	ScopeForeign    Scope = "exterior"
)

// CFOP detalla el Código Fiscal de Operações e Prestações.
type CFOP struct {
	Code      string    `json:"codigo"`
	Direction Direction `json:"tipo"`
	Scope     Scope     `json:"abrangencia"`
}

// Description devuelve la descripción compuesta, ej. "saida_outros_estados".
func (c CFOP) Description() string {
	return string(c.Direction) + "_" + string(c.Scope)
}

// ValidateNCM comprueba que el código NCM tenga exactamente 8 dígitos.
func ValidateNCM(value string) error {
	digits := onlyDigits(value)
	if len(digits) != 8 {
		return fmt.Errorf("NCM deve ter 8 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	return nil
}

// ParseCFOP valida el CFOP (4 dígitos) y deduce sentido y alcance del primer dígito:
// 1/2/3 entrada, 5/6/7 saída; cualquier otro primer dígito es inválido.
func ParseCFOP(value string) (CFOP, error) {
	digits := onlyDigits(value)
	if len(digits) != 4 {
		return CFOP{}, fmt.Errorf("CFOP deve ter 4 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	out := CFOP{Code: string(digits)}
	switch digits[0] {
	case '1', '2', '3':
		out.Direction = DirectionEntry
	case '5', '6', '7':
		out.Direction = DirectionExit
	default:
		return CFOP{}, fmt.Errorf("CFOP %s: primeiro dígito %c não corresponde a entrada nem saída: %w", digits, digits[0], ErrFormat)
	}
	switch digits[0] {
	case '1', '5':
		out.Scope = ScopeSameState
	case '2', '6':
		out.Scope = ScopeOtherState
	case '3', '7':
		out.Scope = ScopeForeign
	}
	return out, nil
}
