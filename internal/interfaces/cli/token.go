package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-fiscal/internal/application/auth"
	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/pkg/jwt"
)

func (a *app) tokenCmd() *cobra.Command {
	var (
		userID  string
		role    string
		secret  string
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un JWT para llamar a la API",
		Long: `Emite un token HS256 firmado con JWT_SECRET (o --secret). Los clientes
declarados en AUTH_CLIENTS piden el suyo en POST /api/auth/token; este comando
es para operadores con acceso al secreto.`,
		Example: `  nfecli token --role analista --user integracao-erp`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !entity.ValidRole(role) {
				return fmt.Errorf("rol desconocido %q (admin | analista | consulta)", role)
			}
			if secret == "" {
				secret = a.cfg.JWT.Secret
			}
			if minutes <= 0 {
				minutes = a.cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(secret, userID, role, a.cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "nfecli", "sujeto del token")
	cmd.Flags().StringVar(&role, "role", entity.RoleAnalyst, "admin | analista | consulta")
	cmd.Flags().StringVar(&secret, "secret", "", "secreto HS256 (por defecto JWT_SECRET)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "validez en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	return cmd
}

func (a *app) hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "hash-secret <secreto>",
		Short:   "Hashea con bcrypt el secreto de un cliente para AUTH_CLIENTS",
		Example: `  nfecli hash-secret 's3creto-largo-del-erp'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
