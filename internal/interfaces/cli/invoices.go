package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/nfe-fiscal/internal/infrastructure/recordfile"
)

// invoiceResult resultado por nota de validate y metrics.
type invoiceResult struct {
	File       string                   `json:"arquivo"`
	Index      int                      `json:"indice"`
	Validation *entity.ValidationReport `json:"validacao,omitempty"`
	Metrics    *entity.InvoiceMetrics   `json:"metricas,omitempty"`
	Error      string                   `json:"erro,omitempty"`
}

// eachInvoice decodifica cada nota de cada archivo y aplica fn. Un error de
// decodificación o de fn queda en el resultado de esa nota y no corta el resto.
func eachInvoice(files []string, fn func(rec *entity.InvoiceRecord, r *invoiceResult) error) ([]invoiceResult, error) {
	var out []invoiceResult
	for _, file := range files {
		raws, err := recordfile.ReadFile(file)
		if err != nil {
			return nil, err
		}
		for i, raw := range raws {
			r := invoiceResult{File: file, Index: i}
			rec, err := entity.DecodeInvoiceRecord(raw)
			if err == nil {
				err = fn(rec, &r)
			}
			if err != nil {
				r.Error = err.Error()
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (a *app) validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <archivo>...",
		Short: "Valida notas y muestra hallazgos, estado y score",
		Example: `  nfecli validate nota.json
  nfecli validate --strict --pretty lote.json otras.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			results, err := eachInvoice(args, func(rec *entity.InvoiceRecord, r *invoiceResult) error {
				rep, err := a.uc.Validate(cmd.Context(), rec)
				if err != nil {
					return err
				}
				if rep.Summary.Status == fiscal.StatusInvalid {
					invalid++
				}
				r.Validation = rep
				return nil
			})
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Error != "" {
					invalid++
				}
			}
			a.log.Info().Int("notas", len(results)).Int("invalidas", invalid).Msg("validación terminada")
			if err := a.writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if strict && invalid > 0 {
				return fmt.Errorf("%w: %d de %d", ErrInvalidInvoices, invalid, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "salir con error si alguna nota es inválida")
	return cmd
}

func (a *app) metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <archivo>...",
		Short: "Calcula las métricas fiscales de cada nota",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := eachInvoice(args, func(rec *entity.InvoiceRecord, r *invoiceResult) error {
				m, err := a.uc.Metrics(cmd.Context(), rec)
				if err != nil {
					return err
				}
				r.Metrics = m
				return nil
			})
			if err != nil {
				return err
			}
			return a.writeJSON(cmd.OutOrStdout(), results)
		},
	}
}

func (a *app) aggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <archivo>...",
		Short: "Consolida todas las notas de los archivos en un único lote",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var all []json.RawMessage
			for _, file := range args {
				raws, err := recordfile.ReadFile(file)
				if err != nil {
					return err
				}
				all = append(all, raws...)
			}
			resp, err := a.uc.Aggregate(cmd.Context(), all)
			if err != nil {
				return err
			}
			return a.writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	var (
		output string
		index  int
	)
	cmd := &cobra.Command{
		Use:   "report <archivo>",
		Short: "Genera el informe de conformidad en PDF de una nota",
		Example: `  nfecli report nota.json -o conformidade.pdf
  nfecli report lote.json --index 3 -o nota3.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := recordfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			if index < 0 || index >= len(raws) {
				return fmt.Errorf("--index %d fuera de rango: el archivo tiene %d notas", index, len(raws))
			}
			rec, err := entity.DecodeInvoiceRecord(raws[index])
			if err != nil {
				return err
			}
			pdfBytes, err := a.uc.RenderReport(cmd.Context(), rec)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, pdfBytes, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", output, err)
			}
			a.log.Info().Str("file", output).Int("bytes", len(pdfBytes)).Msg("informe generado")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "conformidade.pdf", "archivo PDF de salida")
	cmd.Flags().IntVar(&index, "index", 0, "posición de la nota dentro del archivo")
	return cmd
}
