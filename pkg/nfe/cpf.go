package nfe

import "fmt"

var (
	cpfFirstWeights  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfSecondWeights = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCPF valida un CPF de 11 dígitos con las mismas reglas que ValidateCNPJ.
func ValidateCPF(value string) error {
	digits := onlyDigits(value)
	if len(digits) != 11 {
		return fmt.Errorf("CPF deve ter 11 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	if allSame(digits) {
		return fmt.Errorf("CPF %s: %w", digits, ErrRepeatedDigits)
	}
	if d := mod11Digit(digits, cpfFirstWeights); d != digits[9] {
		return fmt.Errorf("CPF: esperado %c, recebido %c: %w", d, digits[9], ErrFirstCheckDigit)
	}
	if d := mod11Digit(digits, cpfSecondWeights); d != digits[10] {
		return fmt.Errorf("CPF: esperado %c, recebido %c: %w", d, digits[10], ErrSecondCheckDigit)
	}
	return nil
}

// CPFCheckDigits calcula los dos dígitos verificadores para los 9 primeros dígitos.
func CPFCheckDigits(base string) (string, error) {
	digits := onlyDigits(base)
	if len(digits) < 9 {
		return "", fmt.Errorf("CPF: são necessários 9 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	digits = append(digits[:9:9], 0)
	digits[9] = mod11Digit(digits, cpfFirstWeights)
	second := mod11Digit(append(digits, 0), cpfSecondWeights)
	return string([]byte{digits[9], second}), nil
}
