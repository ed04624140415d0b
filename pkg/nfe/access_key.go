package nfe

import (
	"fmt"
	"strings"
)

// AccessKeyLength es la longitud de la chave de acesso de la NF-e.
const AccessKeyLength = 44

// accessKeyWeights: 2..9 repetidos cinco veces más el ajuste final 2, 3, 4.
// El dígito en la posición i (izquierda a derecha) usa accessKeyWeights[42-i].
var accessKeyWeights = func() [43]int {
	var w [43]int
	for i := 0; i < 40; i++ {
		w[i] = 2 + i%8
	}
	w[40], w[41], w[42] = 2, 3, 4
	return w
}()

// AccessKey descompone los 44 dígitos de la chave de acesso.
type AccessKey struct {
	UF           string `json:"uf"`
	YearMonth    string `json:"ano_mes"`
	CNPJ         string `json:"cnpj"`
	Model        string `json:"modelo"`
	Series       string `json:"serie"`
	Number       string `json:"numero"`
	EmissionType string `json:"tipo_emissao"`
	Code         string `json:"codigo"`
	CheckDigit   string `json:"dv"`
}

// String reconstruye la chave a partir de sus campos.
func (k AccessKey) String() string {
	return strings.Join([]string{
		k.UF, k.YearMonth, k.CNPJ, k.Model, k.Series,
		k.Number, k.EmissionType, k.Code, k.CheckDigit,
	}, "")
}

// ParseAccessKey valida la chave de acesso (con o sin espacios) y la descompone.
// Si la longitud es correcta la descomposición se devuelve aunque el dígito
// verificador no coincida, para que el llamador pueda reportar los campos.
func ParseAccessKey(value string) (AccessKey, error) {
	digits := onlyDigits(value)
	if len(digits) != AccessKeyLength {
		return AccessKey{}, fmt.Errorf("chave de acesso deve ter 44 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	s := string(digits)
	key := AccessKey{
		UF:           s[0:2],
		YearMonth:    s[2:6],
		CNPJ:         s[6:20],
		Model:        s[20:22],
		Series:       s[22:25],
		Number:       s[25:34],
		EmissionType: s[34:35],
		Code:         s[35:43],
		CheckDigit:   s[43:44],
	}
	expected := accessKeyDigit(digits[:43])
	if expected != digits[43] {
		return key, fmt.Errorf("chave de acesso: esperado %c, recebido %c: %w", expected, digits[43], ErrCheckDigit)
	}
	return key, nil
}

// AccessKeyCheckDigit calcula el dígito verificador para los 43 primeros dígitos.
func AccessKeyCheckDigit(first43 string) (byte, error) {
	digits := onlyDigits(first43)
	if len(digits) != AccessKeyLength-1 {
		return 0, fmt.Errorf("chave de acesso: são necessários 43 dígitos, encontrados %d: %w", len(digits), ErrLength)
	}
	return accessKeyDigit(digits), nil
}

func accessKeyDigit(digits []byte) byte {
	var sum int
	for i := 0; i < 43; i++ {
		sum += int(digits[i]-'0') * accessKeyWeights[42-i]
	}
	r := sum % 11
	if r == 0 || r == 1 {
		return '0'
	}
	return byte('0' + (11 - r))
}
