// Package nfe implementa los algoritmos de verificación de identificadores
// de la NF-e brasileña: CNPJ, CPF, chave de acesso (44 dígitos), NCM y CFOP.
//
// Los algoritmos no dependen de ningún estado: todas las funciones son puras
// y seguras para uso concurrente.
package nfe

import "errors"

// Errores centinela compartidos por los validadores de CNPJ y CPF.
// Cada dígito verificador falla con su propio error para que el llamador
// pueda distinguirlos con errors.Is.
var (
	ErrLength           = errors.New("quantidade de dígitos inválida")
	ErrRepeatedDigits   = errors.New("todos os dígitos são iguais")
	ErrFirstCheckDigit  = errors.New("primeiro dígito verificador inválido")
	ErrSecondCheckDigit = errors.New("segundo dígito verificador inválido")
	ErrCheckDigit       = errors.New("dígito verificador inválido")
	ErrFormat           = errors.New("formato inválido")
)

// onlyDigits conserva solo los dígitos ASCII de s.
func onlyDigits(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return out
}

// OnlyDigits devuelve s sin separadores ("12.345.678/0001-95" → "12345678000195").
func OnlyDigits(s string) string {
	return string(onlyDigits(s))
}

func allSame(digits []byte) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

// mod11Digit aplica la regla común a CNPJ y CPF: resto < 2 → 0, si no 11 - resto.
func mod11Digit(digits []byte, weights []int) byte {
	var sum int
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}
