package nfe

import "fmt"

// pesos de los dos pasos módulo 11 del CNPJ (Receita Federal).
var (
	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida un CNPJ de 14 dígitos, con o sin máscara.
// Los dos dígitos verificadores se comprueban por separado: el primero falla con
// ErrFirstCheckDigit y el segundo con ErrSecondCheckDigit.
func ValidateCNPJ(value string) error {
	digits := onlyDigits(value)
	if len(digits) != 14 {
		return fmt.Errorf("CNPJ deve ter 14 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	if allSame(digits) {
		return fmt.Errorf("CNPJ %s: %w", digits, ErrRepeatedDigits)
	}
	if d := mod11Digit(digits, cnpjFirstWeights); d != digits[12] {
		return fmt.Errorf("CNPJ: esperado %c, recebido %c: %w", d, digits[12], ErrFirstCheckDigit)
	}
	if d := mod11Digit(digits, cnpjSecondWeights); d != digits[13] {
		return fmt.Errorf("CNPJ: esperado %c, recebido %c: %w", d, digits[13], ErrSecondCheckDigit)
	}
	return nil
}

// CNPJCheckDigits calcula los dos dígitos verificadores para los 12 primeros dígitos.
func CNPJCheckDigits(base string) (string, error) {
	digits := onlyDigits(base)
	if len(digits) < 12 {
		return "", fmt.Errorf("CNPJ: são necessários 12 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	digits = append(digits[:12:12], 0)
	digits[12] = mod11Digit(digits, cnpjFirstWeights)
	second := mod11Digit(append(digits, 0), cnpjSecondWeights)
	return string([]byte{digits[12], second}), nil
}
