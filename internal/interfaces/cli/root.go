// Package cli implementa nfecli: validación, métricas, agregación e informe PDF
// de archivos de notas, sin servidor ni base de datos.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-fiscal/internal/application/usecase"
	"github.com/jhoicas/nfe-fiscal/internal/domain/calculator"
	"github.com/jhoicas/nfe-fiscal/internal/domain/validation"
	infrapdf "github.com/jhoicas/nfe-fiscal/internal/infrastructure/pdf"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/ratetable"
	"github.com/jhoicas/nfe-fiscal/pkg/config"
	"github.com/jhoicas/nfe-fiscal/pkg/logger"
)

var version = "1.0.0"

// ErrInvalidInvoices lo devuelve validate --strict si alguna nota quedó inválida.
var ErrInvalidInvoices = errors.New("hay notas inválidas")

// app estado compartido por los subcomandos; se arma en PersistentPreRunE.
type app struct {
	envFile   string
	ratesFile string
	logLevel  string
	pretty    bool

	cfg *config.Config
	log *logger.Logger
	uc  *usecase.FiscalUseCase
}

// NewRootCmd construye el árbol de comandos.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nfecli",
		Short: "Validación y cálculo fiscal de NF-e desde archivos JSON",
		Long: `nfecli valida notas fiscales eletrônicas extraídas a JSON, calcula
sus métricas fiscales y consolida lotes, con la misma tabla de alícuotas
que usa la API.

Los archivos pueden contener una nota, un arreglo de notas o un lote
{"notas": [...]}, en UTF-8 o ISO-8859-1. "-" lee de stdin.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "archivo .env a cargar antes de la configuración")
	root.PersistentFlags().StringVar(&a.ratesFile, "rates", "", "YAML de alícuotas (por defecto FISCAL_RATES_FILE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "nivel de log (por defecto LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "JSON indentado")

	root.AddCommand(
		a.validateCmd(),
		a.metricsCmd(),
		a.aggregateCmd(),
		a.reportCmd(),
		a.tokenCmd(),
		a.hashSecretCmd(),
	)
	return root
}

// Execute ejecuta la CLI y devuelve el código de salida.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("cargar %s: %w", a.envFile, err)
		}
	} else {
		_ = godotenv.Load() // .env opcional
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.ratesFile != "" {
		cfg.Fiscal.RatesFile = a.ratesFile
	}
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.New(logger.Config{Env: cfg.App.Env, Level: level, Output: cmd.ErrOrStderr()})

	rates, err := ratetable.Load(cfg.Fiscal.RatesFile)
	if err != nil {
		return err
	}
	a.uc = usecase.NewFiscalUseCase(
		validation.NewValidator(rates),
		calculator.NewCalculator(rates),
		usecase.WithRenderer(infrapdf.NewMarotoReportRenderer()),
		usecase.WithShardSize(cfg.Fiscal.BatchShardSize),
		usecase.WithLogger(a.log.WithComponent("nfecli")),
	)
	a.log.Debug().Str("rates", rates.Version()).Str("command", cmd.Name()).Msg("nfecli listo")
	return nil
}

func (a *app) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if a.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
