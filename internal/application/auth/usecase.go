// Package auth emite tokens para los clientes de la API (ERPs, integraciones).
// Los clientes se declaran en configuración con el secreto hasheado con bcrypt;
// no hay tabla de usuarios.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/nfe-fiscal/internal/application/dto"
	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/pkg/jwt"
)

const minSecretLen = 12

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Client cliente autorizado a pedir tokens.
type Client struct {
	ID         string
	Role       string
	SecretHash string // bcrypt
}

// ParseClients lee "id:rol:hash,id:rol:hash". Cadena vacía = sin clientes.
func ParseClients(raw string) ([]Client, error) {
	var out []Client
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: cliente %q, formato id:rol:hash", domain.ErrInvalidInput, entry)
		}
		if !entity.ValidRole(parts[1]) {
			return nil, fmt.Errorf("%w: rol desconocido %q para el cliente %s", domain.ErrInvalidInput, parts[1], parts[0])
		}
		if _, err := bcrypt.Cost([]byte(parts[2])); err != nil {
			return nil, fmt.Errorf("%w: hash bcrypt inválido para el cliente %s", domain.ErrInvalidInput, parts[0])
		}
		out = append(out, Client{ID: parts[0], Role: parts[1], SecretHash: parts[2]})
	}
	return out, nil
}

// HashSecret hashea un secreto de cliente con bcrypt (para AUTH_CLIENTS).
func HashSecret(secret string) (string, error) {
	if len(secret) < minSecretLen {
		return "", fmt.Errorf("%w: el secreto debe tener al menos %d caracteres", domain.ErrInvalidInput, minSecretLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// AuthUseCase emisión de tokens por client credentials.
type AuthUseCase struct {
	clients map[string]Client
	jwtCfg  JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(clients []Client, jwtCfg JWTConfig) *AuthUseCase {
	byID := make(map[string]Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	return &AuthUseCase{clients: byID, jwtCfg: jwtCfg}
}

// IssueToken verifica client_id/client_secret y devuelve un JWT con el rol del cliente.
// Cliente desconocido y secreto incorrecto devuelven el mismo ErrUnauthorized.
func (uc *AuthUseCase) IssueToken(in dto.TokenRequest) (*dto.TokenResponse, error) {
	if in.ClientID == "" || in.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id y client_secret son requeridos", domain.ErrInvalidInput)
	}
	client, ok := uc.clients[in.ClientID]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(in.ClientSecret)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, client.ID, client.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		Token:     token,
		Role:      client.Role,
		ExpiresIn: uc.jwtCfg.ExpMinutes * 60,
	}, nil
}
