package dto

// TokenRequest cuerpo de POST /api/auth/token.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse token emitido para un cliente de la API.
type TokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int    `json:"expires_in"` // segundos
}
