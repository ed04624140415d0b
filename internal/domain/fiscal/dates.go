package fiscal

import (
	"strings"
	"time"
)

var issueDateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseIssueDate interpreta data_emissao como AAAA-MM-DD, DD/MM/AAAA o un
// prefijo RFC 3339. La hora y la zona se descartan.
func ParseIssueDate(v Value) (time.Time, bool) {
	if v.IsBlank() {
		return time.Time{}, false
	}
	s := strings.TrimSpace(v.String())
	if len(s) < 10 {
		return time.Time{}, false
	}
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IssueMonth devuelve "AAAA-MM" de data_emissao.
func IssueMonth(v Value) (string, bool) {
	t, ok := ParseIssueDate(v)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}
