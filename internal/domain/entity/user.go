package entity

// Roles válidos en el claim role del token.
const (
	RoleAdmin    = "admin"
	RoleAnalyst  = "analista" // puede persistir análisis y consultar el dashboard
	RoleReadOnly = "consulta" // solo validación y métricas sin estado
)

// ValidRole indica si r es uno de los roles conocidos.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleReadOnly:
		return true
	}
	return false
}
